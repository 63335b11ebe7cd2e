// Package discogs talks to the Discogs website: it issues catalog
// searches, fetches record pages, and parses both kinds of response
// into usable results. Parsing is structurally brittle by design;
// markup drift on the site degrades to partial or empty results, never
// an error.
package discogs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production site root.
const DefaultBaseURL = "https://www.discogs.com"

// Client fetches search results and record pages from the site.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a site client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("discogs base url required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured site root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL turns a result href (relative path) into an absolute
// record URL.
func (c *Client) ResolveURL(href string) string {
	return c.baseURL + href
}

// Search issues a catalog search and returns the raw results page.
// byCat selects an exact-release search; otherwise the broader master
// ("work") search is used.
func (c *Client) Search(ctx context.Context, query string, byCat bool) (string, error) {
	queryType := "master"
	if byCat {
		queryType = "release"
	}
	params := url.Values{}
	params.Set("type", queryType)
	params.Set("q", query)
	return c.get(ctx, c.baseURL+"/search/?"+params.Encode())
}

// Page fetches a record page by absolute URL.
func (c *Client) Page(ctx context.Context, pageURL string) (string, error) {
	return c.get(ctx, pageURL)
}

func (c *Client) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("discogs: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("discogs: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("discogs: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("discogs: read %s: %w", rawURL, err)
	}
	return string(body), nil
}
