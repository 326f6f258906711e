// Package wiki fetches article text and links from a MediaWiki API.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a title does not exist.
var ErrNotFound = errors.New("page not found")

// AmbiguousError is returned for disambiguation pages. Options lists the
// candidate titles.
type AmbiguousError struct {
	Title   string
	Options []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q may refer to %d pages", e.Title, len(e.Options))
}

// Page is a fetched article.
type Page struct {
	Title   string
	Content string
	Links   []string
}

// Provider searches for and fetches articles.
type Provider interface {
	Search(ctx context.Context, query string) ([]string, error)
	Page(ctx context.Context, title string) (*Page, error)
}

// Client implements Provider against the MediaWiki action API.
type Client struct {
	apiURL     string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client for the given language edition. A non-empty
// apiURL overrides the Wikipedia endpoint.
func NewClient(language, apiURL string) *Client {
	if apiURL == "" {
		if language == "" {
			language = "en"
		}
		apiURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "telewiki/1.0 (telnet wiki browser)",
	}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// Search returns matching titles, best match first.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"10"},
		"srprop":   {""},
	}
	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

type pageLink struct {
	Title string `json:"title"`
}

type pageResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages []struct {
			Title     string                     `json:"title"`
			Missing   bool                       `json:"missing"`
			Invalid   bool                       `json:"invalid"`
			Extract   string                     `json:"extract"`
			PageProps map[string]json.RawMessage `json:"pageprops"`
			Links     []pageLink                 `json:"links"`
		} `json:"pages"`
	} `json:"query"`
}

// Page fetches the plain-text extract and article links of title, following
// redirects and link continuation.
func (c *Client) Page(ctx context.Context, title string) (*Page, error) {
	params := url.Values{
		"action":          {"query"},
		"prop":            {"extracts|links|pageprops"},
		"titles":          {title},
		"explaintext":     {"1"},
		"exsectionformat": {"wiki"},
		"redirects":       {"1"},
		"pllimit":         {"max"},
		"plnamespace":     {"0"},
		"ppprop":          {"disambiguation"},
	}

	page := &Page{Title: title}
	disambiguation := false
	for {
		var resp pageResponse
		if err := c.get(ctx, params, &resp); err != nil {
			return nil, fmt.Errorf("fetching %q: %w", title, err)
		}
		if len(resp.Query.Pages) == 0 {
			return nil, fmt.Errorf("fetching %q: %w", title, ErrNotFound)
		}
		p := resp.Query.Pages[0]
		if p.Missing || p.Invalid {
			return nil, fmt.Errorf("fetching %q: %w", title, ErrNotFound)
		}
		page.Title = p.Title
		if p.Extract != "" {
			page.Content = p.Extract
		}
		if _, ok := p.PageProps["disambiguation"]; ok {
			disambiguation = true
		}
		for _, l := range p.Links {
			page.Links = append(page.Links, l.Title)
		}

		cont, ok := resp.Continue["plcontinue"]
		if !ok {
			break
		}
		params.Set("plcontinue", cont)
		if cv, ok := resp.Continue["continue"]; ok {
			params.Set("continue", cv)
		}
	}

	if disambiguation {
		return nil, &AmbiguousError{Title: page.Title, Options: page.Links}
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
