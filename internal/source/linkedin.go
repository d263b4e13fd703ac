package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsift/jobsift/internal/model"
)

// LinkedIn exposes guest-accessible job search and detail endpoints that
// return server-rendered HTML fragments, no authentication required. The
// host rate-limits scrapers aggressively, so pacing and conservative retry
// budgets matter more here than anywhere else.
const (
	linkedinBaseURL  = "https://www.linkedin.com"
	linkedinPageSize = 25
	linkedinCardCap  = 30
	linkedinDescCap  = 15000
)

var (
	linkedinJobIDRe = regexp.MustCompile(`/(?:view|jobs)/(\d{6,})`)
	linkedinURNRe   = regexp.MustCompile(`jobPosting:(\d+)`)
)

// LinkedInSource scrapes LinkedIn's guest job search API. Detail references
// are the numeric posting IDs.
type LinkedInSource struct {
	fetcher Fetcher
	robots  Robots
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewLinkedInSource creates the LinkedIn adapter.
func NewLinkedInSource(fetcher Fetcher, robots Robots, logger *slog.Logger) *LinkedInSource {
	return &LinkedInSource{
		fetcher: fetcher,
		robots:  robots,
		baseURL: linkedinBaseURL,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *LinkedInSource) Name() string { return "linkedin" }

// Search paginates through the guest search API for query in location.
// Same halting and failure behavior as the Indeed adapter: empty page ends
// pagination, a first-page fetch failure fails the source.
func (s *LinkedInSource) Search(ctx context.Context, query, location string, maxResults int) ([]model.ListingStub, error) {
	maxResults = capResults(maxResults)

	var stubs []model.ListingStub
	seen := make(map[string]struct{})

	for start := 0; start < maxResults; start += linkedinPageSize {
		searchURL := fmt.Sprintf("%s/jobs-guest/jobs/api/seeMoreJobPostings/search?keywords=%s&location=%s&start=%d",
			s.baseURL, url.QueryEscape(query), url.QueryEscape(location), start)

		if !s.robots.Allowed(searchURL) {
			s.logger.Info("robots.txt advisory: linkedin path may be restricted", "url", truncate(searchURL, 100))
		}

		body, err := s.fetcher.Get(ctx, searchURL)
		if err != nil {
			if len(stubs) == 0 {
				return nil, fmt.Errorf("linkedin search %q: %w", query, err)
			}
			s.logger.Error("linkedin search page fetch failed", "start", start, "error", err)
			break
		}

		pageStubs := s.parseSearchPage(body)
		if len(pageStubs) == 0 {
			break
		}

		for _, stub := range pageStubs {
			if _, dup := seen[stub.URL]; dup {
				continue
			}
			seen[stub.URL] = struct{}{}
			stubs = append(stubs, stub)
			if len(stubs) >= maxResults {
				break
			}
		}
		if len(stubs) >= maxResults {
			break
		}
	}

	s.logger.Info("linkedin search complete", "query", query, "found", len(stubs))
	return stubs, nil
}

// FetchDetail fetches the full description from the guest detail API for the
// posting ID in ref. Returns empty text on any failure.
func (s *LinkedInSource) FetchDetail(ctx context.Context, ref string) string {
	detailURL := fmt.Sprintf("%s/jobs-guest/jobs/api/jobPosting/%s", s.baseURL, ref)
	body, err := s.fetcher.Get(ctx, detailURL)
	if err != nil {
		s.logger.Warn("linkedin detail fetch failed", "job_id", ref, "error", err)
		return ""
	}
	return parseLinkedInDetail(body)
}

// parseSearchPage extracts stubs from the HTML fragment returned by the
// guest search API.
func (s *LinkedInSource) parseSearchPage(body []byte) []model.ListingStub {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("linkedin search page parse failed", "error", err)
		return nil
	}

	cards := doc.Find("li.jobs-search-results__list-item")
	for _, sel := range []string{"div.base-card", "li"} {
		if cards.Length() > 0 {
			break
		}
		cards = doc.Find(sel)
	}

	var stubs []model.ListingStub
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= linkedinCardCap {
			return false
		}

		link := card.Find("a.base-card__full-link").First()
		if link.Length() == 0 {
			link = card.Find(`a[href*="/jobs/view/"]`).First()
		}
		if link.Length() == 0 {
			return true
		}

		jobID := extractLinkedInJobID(link.AttrOr("href", ""))
		if jobID == "" {
			jobID = linkedinURNMatch(card.AttrOr("data-entity-urn", ""))
		}
		if jobID == "" {
			return true
		}

		title := firstText(card,
			"h3.base-search-card__title",
			".base-search-card__title",
			"h3",
		)
		if title == "" {
			title = "Unknown"
		}

		company := firstText(card,
			"h4.base-search-card__subtitle",
			".base-search-card__subtitle",
			"h4",
		)
		if company == "" {
			company = "Unknown"
		}

		location := firstText(card,
			".job-search-card__location",
			".base-search-card__metadata span",
		)

		stubs = append(stubs, model.ListingStub{
			Title:      title,
			Company:    company,
			Location:   location,
			URL:        fmt.Sprintf("%s/jobs/view/%s", s.baseURL, jobID),
			Snippet:    "", // guest search fragments carry no snippet
			PostedDate: s.cardDate(card),
			Source:     "linkedin",
			DetailRef:  jobID,
		})
		return true
	})

	return stubs
}

// cardDate prefers the <time datetime="2026-02-05"> ISO attribute, falling
// back to the relative phrases in the list-date spans.
func (s *LinkedInSource) cardDate(card *goquery.Selection) *time.Time {
	if iso := card.Find("time").First().AttrOr("datetime", ""); iso != "" {
		if t, err := time.Parse("2006-01-02", truncate(iso, 10)); err == nil {
			return &t
		}
		return parseLinkedInDate(iso, s.now())
	}
	text := firstText(card,
		".job-search-card__listdate",
		".job-search-card__listdate--new",
	)
	return parseLinkedInDate(text, s.now())
}

// extractLinkedInJobID pulls the numeric posting ID out of a job URL.
func extractLinkedInJobID(href string) string {
	if m := linkedinJobIDRe.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

func linkedinURNMatch(urn string) string {
	if m := linkedinURNRe.FindStringSubmatch(urn); m != nil {
		return m[1]
	}
	return ""
}

// parseLinkedInDetail extracts the description text from a guest detail page.
func parseLinkedInDetail(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		".show-more-less-html__markup",
		".description__text",
		"section.description",
	} {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			return truncate(cleanText(el.Text()), linkedinDescCap)
		}
	}
	return ""
}

// parseLinkedInDate converts relative phrases like "2 days ago" or
// "1 week ago" into an absolute date. Unrecognized phrases yield nil.
func parseLinkedInDate(text string, now time.Time) *time.Time {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}

	day := func(d time.Time) *time.Time {
		midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		return &midnight
	}

	if strings.Contains(t, "just now") || strings.Contains(t, "moment") {
		return day(now)
	}

	n := digitsIn(t)
	if n < 1 {
		n = 1
	}
	switch {
	case strings.Contains(t, "hour"), strings.Contains(t, "minute"):
		return day(now)
	case strings.Contains(t, "day"):
		return day(now.AddDate(0, 0, -n))
	case strings.Contains(t, "week"):
		return day(now.AddDate(0, 0, -n*7))
	case strings.Contains(t, "month"):
		return day(now.AddDate(0, 0, -n*30))
	}
	return nil
}
