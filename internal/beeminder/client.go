// Package beeminder is a thin client for the Beeminder goal-tracking API.
// The engine only needs two operations: list the existing datapoints of a
// goal and append a new datapoint. Datapoints are immutable history; this
// client exposes no update or delete.
package beeminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.beeminder.com/api/v1"

var (
	// ErrUnavailable indicates a transport or auth failure talking to the
	// goal service.
	ErrUnavailable = errors.New("beeminder unavailable")

	// ErrRejected indicates the goal service refused a create request
	// (invalid goal, bad payload). Never retried by the client.
	ErrRejected = errors.New("beeminder rejected request")
)

// Datapoint is one recorded observation on a goal.
type Datapoint struct {
	ID        string
	Value     float64
	Timestamp time.Time
	Daystamp  string
	Comment   string
	RequestID string
}

// CreateDatapoint is the payload for appending a datapoint to a goal.
// RequestID, when set, acts as an idempotency key on the service side.
type CreateDatapoint struct {
	Value     float64
	Timestamp time.Time
	Daystamp  string
	Comment   string
	RequestID string
}

// Client talks to the Beeminder API for a single user.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	token      string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a client authenticated with the given API token.
func New(username, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		username:   username,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire format: Beeminder represents timestamps as unix seconds.
type wireDatapoint struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Daystamp  string  `json:"daystamp"`
	Comment   string  `json:"comment"`
	RequestID string  `json:"requestid"`
}

func (w wireDatapoint) datapoint() Datapoint {
	return Datapoint{
		ID:        w.ID,
		Value:     w.Value,
		Timestamp: time.Unix(w.Timestamp, 0).UTC(),
		Daystamp:  w.Daystamp,
		Comment:   w.Comment,
		RequestID: w.RequestID,
	}
}

func (c *Client) goalPath(goal string) string {
	return fmt.Sprintf("%s/users/%s/goals/%s/datapoints.json",
		c.baseURL, url.PathEscape(c.username), url.PathEscape(goal))
}

// Datapoints lists all datapoints of a goal, ordered ascending by
// timestamp. Transport and auth failures surface as ErrUnavailable.
func (c *Client) Datapoints(ctx context.Context, goal string) ([]Datapoint, error) {
	query := url.Values{}
	query.Set("auth_token", c.token)
	query.Set("sort", "timestamp")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.goalPath(goal)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build datapoints request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list datapoints for %s: %v", ErrUnavailable, goal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list datapoints for %s: %s", ErrUnavailable, goal, readErrorBody(resp))
	}

	var wire []wireDatapoint
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode datapoints for %s: %v", ErrUnavailable, goal, err)
	}

	datapoints := make([]Datapoint, len(wire))
	for i, w := range wire {
		datapoints[i] = w.datapoint()
	}
	sort.SliceStable(datapoints, func(i, j int) bool {
		return datapoints[i].Timestamp.Before(datapoints[j].Timestamp)
	})
	return datapoints, nil
}

// Create appends a datapoint to a goal. A non-2xx response surfaces as
// ErrRejected and is never retried here; retry policy belongs to the
// caller's next run, where the dedup read-back catches completed creates.
func (c *Client) Create(ctx context.Context, goal string, dp CreateDatapoint) (*Datapoint, error) {
	form := url.Values{}
	form.Set("auth_token", c.token)
	form.Set("value", strconv.FormatFloat(dp.Value, 'f', -1, 64))
	if !dp.Timestamp.IsZero() {
		form.Set("timestamp", strconv.FormatInt(dp.Timestamp.Unix(), 10))
	}
	if dp.Daystamp != "" {
		form.Set("daystamp", dp.Daystamp)
	}
	if dp.Comment != "" {
		form.Set("comment", dp.Comment)
	}
	if dp.RequestID != "" {
		form.Set("requestid", dp.RequestID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.goalPath(goal), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: create datapoint on %s: %v", ErrUnavailable, goal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: create datapoint on %s: %s", ErrRejected, goal, readErrorBody(resp))
	}

	var wire wireDatapoint
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode created datapoint on %s: %v", ErrUnavailable, goal, err)
	}
	created := wire.datapoint()
	return &created, nil
}

// readErrorBody returns a short description of a failed response.
func readErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
}
