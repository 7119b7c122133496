// Package github fetches a user's commits from the GitHub REST API. A
// token is optional; it raises the rate limit but public read access works
// without it.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.github.com"
	userAgent      = "beesync/1.0"
	perPage        = 100
)

// Commit is one commit authored by the configured user.
type Commit struct {
	SHA           string
	Message       string
	Repository    string
	CommitterDate time.Time
}

// Client talks to the GitHub API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithLimiter overrides the request limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// New creates a client. An empty token means unauthenticated access.
func New(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		// One request per second keeps a full repo sweep well inside
		// the unauthenticated hourly budget.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	// Empty repositories answer 409 on the commits endpoint.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github request: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

// Repositories lists all repository full names of a user, exhausting
// pagination.
func (c *Client) Repositories(ctx context.Context, username string) ([]string, error) {
	var repositories []string
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("per_page", fmt.Sprint(perPage))
		query.Set("page", fmt.Sprint(page))
		endpoint := fmt.Sprintf("%s/users/%s/repos?%s",
			c.baseURL, url.PathEscape(username), query.Encode())

		var batch []struct {
			FullName string `json:"full_name"`
		}
		if err := c.getJSON(ctx, endpoint, &batch); err != nil {
			return nil, fmt.Errorf("list repositories for %s: %w", username, err)
		}
		for _, repo := range batch {
			repositories = append(repositories, repo.FullName)
		}
		if len(batch) < perPage {
			return repositories, nil
		}
	}
}

// Commits fetches all commits authored by the user across all their
// repositories since the given time. Pagination is exhausted per
// repository; an incomplete list would suppress real records downstream.
func (c *Client) Commits(ctx context.Context, username string, since time.Time) ([]Commit, error) {
	repositories, err := c.Repositories(ctx, username)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	for _, repo := range repositories {
		repoCommits, err := c.repositoryCommits(ctx, repo, username, since)
		if err != nil {
			return nil, err
		}
		commits = append(commits, repoCommits...)
	}
	return commits, nil
}

func (c *Client) repositoryCommits(ctx context.Context, repo, username string, since time.Time) ([]Commit, error) {
	var commits []Commit
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("since", since.Format(time.RFC3339))
		query.Set("author", username)
		query.Set("per_page", fmt.Sprint(perPage))
		query.Set("page", fmt.Sprint(page))
		endpoint := fmt.Sprintf("%s/repos/%s/commits?%s", c.baseURL, repo, query.Encode())

		var batch []struct {
			SHA    string `json:"sha"`
			Commit struct {
				Message   string `json:"message"`
				Committer struct {
					Date time.Time `json:"date"`
				} `json:"committer"`
			} `json:"commit"`
		}
		if err := c.getJSON(ctx, endpoint, &batch); err != nil {
			return nil, fmt.Errorf("list commits for %s: %w", repo, err)
		}

		for _, item := range batch {
			commits = append(commits, Commit{
				SHA:           item.SHA,
				Message:       item.Commit.Message,
				Repository:    repo,
				CommitterDate: item.Commit.Committer.Date,
			})
		}
		if len(batch) < perPage {
			return commits, nil
		}
	}
}
