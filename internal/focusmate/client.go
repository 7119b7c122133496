// Package focusmate fetches coworking sessions from the Focusmate API.
package focusmate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.focusmate.com/v1"

// SessionUser is one participant of a session. The first entry is always
// the authenticated user.
type SessionUser struct {
	UserID       string `json:"userId"`
	SessionTitle string `json:"sessionTitle"`
	Completed    bool   `json:"completed"`
}

// Session is one scheduled or completed coworking session. Duration is in
// milliseconds, as the API reports it.
type Session struct {
	ID        string        `json:"sessionId"`
	StartTime time.Time     `json:"startTime"`
	Duration  int64         `json:"duration"`
	Users     []SessionUser `json:"users"`
}

// Completed reports whether the authenticated user completed the session.
func (s Session) Completed() bool {
	return len(s.Users) > 0 && s.Users[0].Completed
}

// Title returns the session title set by the authenticated user.
func (s Session) Title() string {
	if len(s.Users) == 0 {
		return ""
	}
	return s.Users[0].SessionTitle
}

// PartnerID returns the other participant's user id, empty for solo
// sessions.
func (s Session) PartnerID() string {
	if len(s.Users) < 2 {
		return ""
	}
	return s.Users[1].UserID
}

// Profile is a Focusmate user profile.
type Profile struct {
	Name string `json:"name"`
}

// Client talks to the Focusmate API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a client. An empty baseURL falls back to the public API.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("focusmate request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("focusmate request %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode focusmate response %s: %w", path, err)
	}
	return nil
}

// Sessions fetches the user's sessions within [start, end].
func (c *Client) Sessions(ctx context.Context, start, end time.Time) ([]Session, error) {
	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))

	var response struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.get(ctx, "/sessions", query, &response); err != nil {
		return nil, err
	}
	return response.Sessions, nil
}

// Profile fetches another user's public profile.
func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	var response struct {
		User Profile `json:"user"`
	}
	if err := c.get(ctx, "/users/"+url.PathEscape(userID), nil, &response); err != nil {
		return nil, err
	}
	return &response.User, nil
}
