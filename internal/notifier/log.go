// Package notifier announces newly persisted listings after a run. The log
// notifier is the default; Slack is wired when a webhook URL is configured.
package notifier

import (
	"log/slog"

	"github.com/jobsift/jobsift/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each listing with company, title, location, URL, and posted date.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(listings []model.Listing) error {
	for _, l := range listings {
		args := []any{"company", l.Company, "title", l.Title, "location", l.Location, "url", l.URL, "source", l.Source}
		if l.PostedDate != nil {
			args = append(args, "posted_date", l.PostedDate.Format("2006-01-02"))
		}
		n.logger.Info("new listing", args...)
	}
	return nil
}
