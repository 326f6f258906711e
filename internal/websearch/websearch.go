// Package websearch looks a question up on the web when the model cannot
// answer it from the article: it searches DuckDuckGo lite, browses the first
// results, and distills the paragraphs that mention the query.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultSearchURL is the DuckDuckGo lite endpoint.
	DefaultSearchURL = "https://lite.duckduckgo.com/lite/"

	maxResults   = 2
	distillRunes = 200
)

// Searcher runs web lookups.
type Searcher struct {
	SearchURL string
	Client    *http.Client
	UserAgent string
}

// New returns a Searcher using DuckDuckGo lite.
func New() *Searcher {
	return &Searcher{
		SearchURL: DefaultSearchURL,
		Client:    &http.Client{Timeout: 5 * time.Second},
		UserAgent: "Mozilla/5.0",
	}
}

// Lookup searches for query and returns a short report distilled from the
// first results. It never fails; problems are reported inline.
func (s *Searcher) Lookup(ctx context.Context, searchQuery, question string) string {
	urls, err := s.Results(ctx, searchQuery)
	if err != nil {
		return fmt.Sprintf("[Search Error] %v", err)
	}
	if len(urls) == 0 {
		return "MULTIVAC: No suitable search results to browse."
	}
	parts := make([]string, 0, len(urls))
	for _, u := range urls {
		parts = append(parts, fmt.Sprintf("From %s: %s", u, s.Extract(ctx, u, question)))
	}
	return strings.Join(parts, "\n")
}

// Results returns up to two result URLs for query, skipping search-engine
// and login links.
func (s *Searcher) Results(ctx context.Context, query string) ([]string, error) {
	doc, err := s.fetch(ctx, s.SearchURL+"?q="+url.QueryEscape(strings.TrimSpace(query)))
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		target := resolveRedirect(href)
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			return true
		}
		lower := strings.ToLower(target)
		if strings.Contains(lower, "duckduckgo") || strings.Contains(lower, "login") || seen[target] {
			return true
		}
		seen[target] = true
		urls = append(urls, target)
		return len(urls) < maxResults
	})
	return urls, nil
}

// Extract fetches pageURL and returns the first characters of the paragraphs
// that mention any word of query.
func (s *Searcher) Extract(ctx context.Context, pageURL, query string) string {
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return fmt.Sprintf("[Browse Error] %v", err)
	}

	keywords := strings.Fields(strings.ToLower(query))
	var relevant []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := p.Text()
		lower := strings.ToLower(text)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				relevant = append(relevant, strings.TrimSpace(text))
				return
			}
		}
	})
	if len(relevant) == 0 {
		return "MULTIVAC: No relevant data found on this page."
	}
	return Distill(strings.Join(relevant, " ")) + "..."
}

// Distill trims text to the distillation length.
func Distill(text string) string {
	r := []rune(text)
	if len(r) > distillRunes {
		r = r[:distillRunes]
	}
	return strings.TrimSpace(string(r))
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func (s *Searcher) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	return doc, nil
}
