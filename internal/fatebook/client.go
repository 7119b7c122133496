// Package fatebook fetches forecasting questions from the Fatebook API.
package fatebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://fatebook.io/api"

// questionLimit caps one fetch; Fatebook has no pagination on this
// endpoint.
const questionLimit = 10000

// Question is one forecasting question.
type Question struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	ResolveBy time.Time `json:"resolveBy"`
	Resolved  bool      `json:"resolved"`
}

// Client talks to the Fatebook API.
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

// Questions fetches all of the user's questions.
func (c *Client) Questions(ctx context.Context) ([]Question, error) {
	query := url.Values{}
	query.Set("apiKey", c.apiKey)
	query.Set("limit", fmt.Sprint(questionLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v0/getQuestions?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build questions request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch questions: status %d", resp.StatusCode)
	}

	var response struct {
		Items []Question `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return response.Items, nil
}
