// Package websearch provides an HTTP client for the Google Custom
// Search JSON API, used to enrich answers when the local knowledge
// base has no coverage.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/annapurna-labs/annapurna/internal/resilience"
)

// DefaultBaseURL is the public Custom Search endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Client talks to the Custom Search API.
type Client struct {
	baseURL    string
	apiKey     string
	engineID   string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new search client. An empty baseURL selects the
// public endpoint.
func NewClient(baseURL, apiKey, engineID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		engineID: engineID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Enabled reports whether the client has credentials configured.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.engineID != ""
}

// Search runs a query and returns up to max hits.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if max <= 0 {
		max = 3
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprint(max))

	resp, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var result struct {
		Items []Result `json:"items"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search: %w", err)
	}
	if len(result.Items) > max {
		result.Items = result.Items[:max]
	}
	return result.Items, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("search API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
