package priorart

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

	"patent-backend/internal/upstream"
)

const (
	DefaultEndpoint = "https://serpapi.com/search.json"
	ProviderName    = "serpapi"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client queries the SerpAPI patent search engine.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if strings.TrimSpace(endpoint) != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a search client. Each call is a single attempt bounded by a 30s timeout.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// Search returns at most MaxItems results for query, ranked as the provider returned them.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	if c.apiKey == "" {
		return nil, &upstream.ServiceError{Provider: ProviderName, Message: "SERPAPI_API_KEY is not configured"}
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("tbm", "pts")
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &upstream.ServiceError{Provider: ProviderName, Err: redactKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &upstream.ServiceError{Provider: ProviderName, StatusCode: resp.StatusCode, Err: err}
	}

	var parsed searchResponse
	parseErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(parsed.Error)
		if parseErr != nil || msg == "" {
			msg = fmt.Sprintf("search provider returned status %d", resp.StatusCode)
		}
		return nil, &upstream.ServiceError{Provider: ProviderName, StatusCode: resp.StatusCode, Message: msg}
	}
	if parseErr != nil {
		return nil, &upstream.FormatError{Provider: ProviderName, Stage: "prior-art", Reason: parseErr.Error(), Raw: truncate(string(body), 512)}
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return nil, &upstream.ServiceError{Provider: ProviderName, StatusCode: resp.StatusCode, Message: msg}
	}

	items := make([]Item, 0, MaxItems)
	for _, r := range parsed.OrganicResults {
		if len(items) == MaxItems {
			break
		}
		items = append(items, Item{Title: r.Title, Snippet: r.Snippet, Link: r.Link})
	}
	return items, nil
}

// url.Error embeds the full request URL, including api_key.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(key), "REDACTED")
		return urlErr
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
