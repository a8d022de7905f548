// Package stats implements the HTTP client for the external stat
// oracle used to settle stat bets.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client fetches stat values from the oracle service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a stats client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchStatValue returns the current value for (category, name).
func (c *Client) FetchStatValue(ctx context.Context, category, name string) (int, error) {
	u := fmt.Sprintf("%s/api/v1/stats/%s/%s",
		c.baseURL, url.PathEscape(category), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("stat oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("stat oracle returned %d for %s/%s", resp.StatusCode, category, name)
	}

	var data struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode stat response: %w", err)
	}
	return data.Value, nil
}
