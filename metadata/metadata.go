// Package metadata fetches a page and extracts its title and description.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// UserAgent identifies the fetcher to the sites it visits.
	UserAgent = "Mozilla/5.0 (compatible; IcebreakrBot/1.0; +https://icebreakr.app)"

	// DefaultDescription stands in for a missing or unreadable description.
	DefaultDescription = "No public description available."

	// DefaultTimeout bounds a whole fetch, including reading the body.
	DefaultTimeout = 8 * time.Second

	maxBodySize = 2 << 20 // 2MB
)

// Page is the metadata used to personalize a generation.
type Page struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Default returns the fallback metadata for rawURL: its host as the title
// and the fixed description.
func Default(rawURL string) Page {
	return Page{Title: hostOf(rawURL), Description: DefaultDescription}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// Fetcher retrieves page metadata over HTTP.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher creates a Fetcher. A nil client uses http.DefaultClient, which
// follows redirects; a non-positive timeout uses DefaultTimeout.
func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: client, timeout: timeout}
}

// Fetch issues a single GET for rawURL and extracts its metadata. Any
// transport failure, non-2xx status or timeout is returned as an error.
// Fields missing from an otherwise readable page are filled with defaults.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("fetch %s: status code %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Page{}, fmt.Errorf("read body from %s: %w", rawURL, err)
	}

	title, description, err := Extract(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	page := Default(rawURL)
	if title != "" {
		page.Title = title
	}
	if description != "" {
		page.Description = description
	}
	return page, nil
}

// Extract returns the first <title> text and the first meta description
// (name="description" or property="og:description") found in html, with
// whitespace collapsed. Either may be empty.
func Extract(html string) (title, description string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}

	title = cleanText(doc.Find("title").First().Text())

	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		if !strings.EqualFold(strings.TrimSpace(name), "description") &&
			!strings.EqualFold(strings.TrimSpace(property), "og:description") {
			return true
		}
		content, ok := s.Attr("content")
		if !ok {
			return true
		}
		if c := cleanText(content); c != "" {
			description = c
			return false
		}
		return true
	})

	return title, description, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
