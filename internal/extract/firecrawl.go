package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.firecrawl.dev/v1"
	defaultTimeout = 60 * time.Second
)

// Client communicates with the Firecrawl scrape API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Firecrawl client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ScrapeOptions controls what the scraper returns. The zero value is not
// useful; use DefaultScrapeOptions.
type ScrapeOptions struct {
	Formats         []string
	OnlyMainContent bool
}

// DefaultScrapeOptions requests markdown of the page's main content.
func DefaultScrapeOptions() ScrapeOptions {
	return ScrapeOptions{
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Scrape fetches a page and returns its content as markdown. When the
// scraper yields no markdown, string fields of the result are combined
// into "## Key" sections as a fallback.
func (c *Client) Scrape(ctx context.Context, pageURL string, opts ScrapeOptions) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("firecrawl API key is not configured")
	}
	if pageURL == "" {
		return "", fmt.Errorf("url is required")
	}
	if len(opts.Formats) == 0 {
		opts = DefaultScrapeOptions()
	}

	body, err := json.Marshal(scrapeRequest{
		URL:             pageURL,
		Formats:         opts.Formats,
		OnlyMainContent: opts.OnlyMainContent,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scraping %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return "", fmt.Errorf("scrape returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding scrape response: %w", err)
	}
	if !parsed.Success {
		return "", fmt.Errorf("scrape failed: %s", parsed.Error)
	}

	var fields map[string]any
	if err := json.Unmarshal(parsed.Data, &fields); err != nil {
		return "", fmt.Errorf("decoding scrape data: %w", err)
	}

	if md, ok := fields["markdown"].(string); ok && strings.TrimSpace(md) != "" {
		return strings.TrimSpace(md), nil
	}
	return combineFields(fields), nil
}

// combineFields renders every string field of the scrape result as a
// titled section, in stable key order.
func combineFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		title := strings.ToUpper(k[:1]) + k[1:]
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, fields[k].(string))
	}
	return strings.TrimSpace(b.String())
}
