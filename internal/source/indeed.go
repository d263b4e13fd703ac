package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsift/jobsift/internal/model"
)

const (
	indeedBaseURL  = "https://www.indeed.com"
	indeedPageSize = 10
	// Cards parsed per page and snippet/description caps, matching the
	// search page's own layout limits.
	indeedCardCap    = 30
	indeedSnippetCap = 500
	indeedDescCap    = 15000
)

// IndeedSource scrapes Indeed search result pages and job detail pages.
// Indeed's HTML structure changes frequently, so selectors are best-effort
// with multiple fallbacks.
type IndeedSource struct {
	fetcher Fetcher
	robots  Robots
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewIndeedSource creates the Indeed adapter.
func NewIndeedSource(fetcher Fetcher, robots Robots, logger *slog.Logger) *IndeedSource {
	return &IndeedSource{
		fetcher: fetcher,
		robots:  robots,
		baseURL: indeedBaseURL,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *IndeedSource) Name() string { return "indeed" }

// Search paginates through Indeed result pages for query in location.
// Pagination halts on the first page that yields zero stubs. A fetch failure
// on the first page is the source's failure; on later pages the stubs
// collected so far are returned.
func (s *IndeedSource) Search(ctx context.Context, query, location string, maxResults int) ([]model.ListingStub, error) {
	maxResults = capResults(maxResults)

	var stubs []model.ListingStub
	seen := make(map[string]struct{})

	for start := 0; start < maxResults; start += indeedPageSize {
		searchURL := fmt.Sprintf("%s/jobs?q=%s&l=%s&start=%d",
			s.baseURL, url.QueryEscape(query), url.QueryEscape(location), start)

		if !s.robots.Allowed(searchURL) {
			s.logger.Info("robots.txt advisory: indeed path may be restricted", "url", truncate(searchURL, 80))
		}

		body, err := s.fetcher.Get(ctx, searchURL)
		if err != nil {
			if len(stubs) == 0 {
				return nil, fmt.Errorf("indeed search %q: %w", query, err)
			}
			s.logger.Error("indeed search page fetch failed", "start", start, "error", err)
			break
		}

		pageStubs := s.parseSearchPage(body)
		if len(pageStubs) == 0 {
			break // end of results, or markup we no longer recognize
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

	s.logger.Info("indeed search complete", "query", query, "found", len(stubs))
	return stubs, nil
}

// FetchDetail fetches the full job description for the listing at ref (the
// canonical job URL). Returns empty text on any failure.
func (s *IndeedSource) FetchDetail(ctx context.Context, ref string) string {
	body, err := s.fetcher.Get(ctx, ref)
	if err != nil {
		s.logger.Warn("indeed detail fetch failed", "url", truncate(ref, 100), "error", err)
		return ""
	}
	return parseIndeedDetail(body)
}

// parseSearchPage extracts listing stubs from one search results page.
func (s *IndeedSource) parseSearchPage(body []byte) []model.ListingStub {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("indeed search page parse failed", "error", err)
		return nil
	}

	// Indeed wraps each job card in an element carrying data-jk (job key);
	// older layouts are tried in order.
	cards := doc.Find("div[data-jk]")
	for _, sel := range []string{"td.resultContent", ".job_seen_beacon", ".jobsearch-SerpJobCard"} {
		if cards.Length() > 0 {
			break
		}
		cards = doc.Find(sel)
	}

	var stubs []model.ListingStub
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= indeedCardCap {
			return false
		}

		jobURL := s.cardURL(card)
		if jobURL == "" {
			return true
		}

		title := firstText(card,
			"h2.jobTitle a span",
			"h2.jobTitle span",
			"h2.jobTitle",
			"[data-testid=jobTitle]",
			".jobTitle",
		)
		if title == "" {
			title = "Unknown"
		}

		company := firstText(card,
			"[data-testid=company-name]",
			".companyName",
			".company",
		)
		if company == "" {
			company = "Unknown"
		}

		location := firstText(card,
			"[data-testid=text-location]",
			".companyLocation",
			".location",
		)

		snippet := truncate(firstText(card,
			".job-snippet",
			"[class*=snippet]",
			".summary",
		), indeedSnippetCap)

		dateText := firstText(card,
			"[data-testid=myJobsStateDate]",
			".date",
			"span.visually-hidden",
		)

		stubs = append(stubs, model.ListingStub{
			Title:      title,
			Company:    company,
			Location:   location,
			URL:        jobURL,
			Snippet:    snippet,
			PostedDate: parseIndeedDate(dateText, s.now()),
			Source:     "indeed",
			DetailRef:  jobURL,
		})
		return true
	})

	return stubs
}

// cardURL builds the canonical job URL for a card, preferring the job key
// (data-jk attribute, nested link, or href query parameter) and falling back
// to the first job-ish href.
func (s *IndeedSource) cardURL(card *goquery.Selection) string {
	jk := card.AttrOr("data-jk", "")
	if jk == "" {
		jk = card.Find("a[data-jk]").First().AttrOr("data-jk", "")
	}
	if jk == "" {
		if href := card.Find("a[href]").First().AttrOr("href", ""); href != "" {
			if u, err := url.Parse(href); err == nil {
				jk = u.Query().Get("jk")
			}
		}
	}
	if jk != "" {
		return fmt.Sprintf("%s/viewjob?jk=%s", s.baseURL, jk)
	}

	link := card.Find(`a[href*="/viewjob"], a[href*="/rc/clk"], a[href*="/job/"]`).First()
	href := link.AttrOr("href", "")
	if href == "" {
		return ""
	}
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// parseIndeedDetail extracts the full description text from a detail page.
func parseIndeedDetail(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		"#jobDescriptionText",
		".jobsearch-jobDescriptionText",
		"[class*=jobDescription]",
	} {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			return truncate(cleanText(el.Text()), indeedDescCap)
		}
	}
	return ""
}

// parseIndeedDate converts Indeed's relative date strings ("Just posted",
// "3 days ago", "30+ days ago") into an absolute date. Unrecognized phrases
// yield nil, never an error.
func parseIndeedDate(text string, now time.Time) *time.Time {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}

	day := func(d time.Time) *time.Time {
		midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		return &midnight
	}

	switch {
	case strings.Contains(t, "just posted"), strings.Contains(t, "today"):
		return day(now)
	case strings.Contains(t, "yesterday"):
		return day(now.AddDate(0, 0, -1))
	}

	if n := digitsIn(t); n > 0 {
		switch {
		case strings.Contains(t, "hour"):
			return day(now)
		case strings.Contains(t, "day"):
			return day(now.AddDate(0, 0, -min(n, 90)))
		case strings.Contains(t, "month"):
			return day(now.AddDate(0, 0, -min(n*30, 365)))
		}
	}
	if strings.Contains(t, "30+") {
		return day(now.AddDate(0, 0, -30))
	}
	return nil
}
