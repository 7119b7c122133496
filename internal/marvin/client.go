// Package marvin reads task documents from an Amazing Marvin CouchDB
// database. Marvin documents are loosely shaped (fields appear and
// disappear across app versions), so extraction goes through gjson instead
// of rigid structs.
package marvin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Credentials hold the CouchDB sync credentials from the Marvin app.
type Credentials struct {
	URI      string
	Username string
	Password string
	Database string
}

// Task is a completed task extracted from a Marvin document.
type Task struct {
	ID     string
	Title  string
	DoneAt time.Time
}

// Client queries the Marvin CouchDB database.
type Client struct {
	httpClient  *http.Client
	credentials Credentials
}

// New creates a client for the given CouchDB credentials.
func New(credentials Credentials) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		credentials: credentials,
	}
}

// findDocs runs a CouchDB _find query and returns the matched documents.
func (c *Client) findDocs(ctx context.Context, selector map[string]any) ([]gjson.Result, error) {
	body, err := json.Marshal(map[string]any{"selector": selector})
	if err != nil {
		return nil, fmt.Errorf("marshal selector: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_find",
		strings.TrimRight(c.credentials.URI, "/"),
		url.PathEscape(c.credentials.Database))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build find request: %w", err)
	}
	req.SetBasicAuth(c.credentials.Username, c.credentials.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("find documents: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read find response: %w", err)
	}
	return gjson.GetBytes(raw, "docs").Array(), nil
}

// categoryID resolves a category title to its document id. Exactly one
// category must match.
func (c *Client) categoryID(ctx context.Context, title string) (string, error) {
	docs, err := c.findDocs(ctx, map[string]any{
		"db":    "Categories",
		"type":  "category",
		"title": title,
	})
	if err != nil {
		return "", err
	}

	switch len(docs) {
	case 0:
		return "", fmt.Errorf("no category with title %q", title)
	case 1:
		id := docs[0].Get("_id").String()
		if id == "" {
			return "", fmt.Errorf("category %q has no _id", title)
		}
		return id, nil
	default:
		return "", fmt.Errorf("found %d categories with title %q, expected one", len(docs), title)
	}
}

// CompletedTasks returns the tasks in a category marked done at or after
// since. Documents without a usable _id or doneAt are skipped.
func (c *Client) CompletedTasks(ctx context.Context, category string, since time.Time) ([]Task, error) {
	categoryID, err := c.categoryID(ctx, category)
	if err != nil {
		return nil, err
	}

	docs, err := c.findDocs(ctx, map[string]any{
		"db":       "Tasks",
		"parentId": categoryID,
		"done":     true,
		"doneAt":   map[string]any{"$gte": since.UnixMilli()},
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		id := doc.Get("_id").String()
		doneAt := doc.Get("doneAt")
		if id == "" || !doneAt.Exists() {
			continue
		}
		title := doc.Get("title").String()
		if title == "" {
			title = "Untitled task"
		}
		tasks = append(tasks, Task{
			ID:     id,
			Title:  title,
			DoneAt: time.UnixMilli(doneAt.Int()).UTC(),
		})
	}
	return tasks, nil
}
