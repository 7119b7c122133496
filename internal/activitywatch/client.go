// Package activitywatch queries window-focus events from a local
// ActivityWatch server.
package activitywatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:5600"

// EventData holds the window attributes of one event.
type EventData struct {
	App   string `json:"app"`
	Title string `json:"title"`
}

// Event is one window-focus interval. Duration is in seconds.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration"`
	Data      EventData `json:"data"`
}

// Client talks to an ActivityWatch server instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client. An empty baseURL falls back to the local default.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Events fetches the events of a bucket within [start, end).
func (c *Client) Events(ctx context.Context, bucket string, start, end time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/api/0/buckets/%s/events?%s",
		c.baseURL, url.PathEscape(bucket), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build events request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch events from bucket %s: %w", bucket, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch events from bucket %s: status %d", bucket, resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode events from bucket %s: %w", bucket, err)
	}
	return events, nil
}
