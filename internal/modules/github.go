package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/github"
	"github.com/felixmde/beesync/internal/secret"
)

// GitHubConfig configures the commit sync. The token is optional; without
// it the sync runs against the public unauthenticated rate limit.
type GitHubConfig struct {
	GoalName string       `toml:"goal_name"`
	Username string       `toml:"username"`
	Key      *secret.Spec `toml:"key"`
}

// Validate checks the config for required fields.
func (c GitHubConfig) Validate() error {
	if c.GoalName == "" {
		return fmt.Errorf("github: goal_name is required")
	}
	if c.Username == "" {
		return fmt.Errorf("github: username is required")
	}
	if c.Key != nil {
		if err := c.Key.Validate(); err != nil {
			return fmt.Errorf("github: key: %w", err)
		}
	}
	return nil
}

// CommitSource supplies authored commits, satisfied by *github.Client.
type CommitSource interface {
	Commits(ctx context.Context, username string, since time.Time) ([]github.Commit, error)
}

// CommitSourceFactory builds a commit source once the optional token is
// resolved. An empty token means unauthenticated access.
type CommitSourceFactory func(token string) CommitSource

// GitHub records one datapoint per authored commit, identified by the
// commit SHA.
type GitHub struct {
	config    GitHubConfig
	newClient CommitSourceFactory
}

// NewGitHub creates the module. The factory defaults to the real API
// client when nil.
func NewGitHub(config GitHubConfig, factory CommitSourceFactory) *GitHub {
	if factory == nil {
		factory = func(token string) CommitSource {
			return github.New(token)
		}
	}
	return &GitHub{config: config, newClient: factory}
}

func (m *GitHub) Name() string    { return "github" }
func (m *GitHub) Goals() []string { return []string{m.config.GoalName} }

func (m *GitHub) Secrets() map[string]secret.Spec {
	if m.config.Key == nil {
		return nil
	}
	return map[string]secret.Spec{"token": *m.config.Key}
}

// IdentityOf recovers the commit SHA from the datapoint request id.
func (m *GitHub) IdentityOf(dp beeminder.Datapoint) []string {
	if dp.RequestID == "" {
		return nil
	}
	return []string{dp.RequestID}
}

func (m *GitHub) Fetch(ctx context.Context, creds map[string]string, existing *engine.Existing) ([]engine.Candidate, error) {
	client := m.newClient(creds["token"])

	// Incremental fetch from the latest synced commit; a most-recent
	// placeholder datapoint with value 0 forces the full sweep.
	since := time.Unix(0, 0).UTC()
	if len(existing.Primary) > 0 {
		if last := existing.Primary[len(existing.Primary)-1]; last.Value != 0 {
			since = last.Timestamp
		}
	}

	commits, err := client.Commits(ctx, m.config.Username, since)
	if err != nil {
		return nil, err
	}

	candidates := make([]engine.Candidate, 0, len(commits))
	for _, commit := range commits {
		firstLine, _, _ := strings.Cut(commit.Message, "\n")
		candidates = append(candidates, engine.Candidate{
			Goal:       m.config.GoalName,
			ExternalID: commit.SHA,
			Value:      1,
			Timestamp:  commit.CommitterDate,
			Daystamp:   daystamp(commit.CommitterDate.UTC()),
			Comment:    fmt.Sprintf("%s: %s", commit.Repository, strings.TrimSpace(firstLine)),
		})
	}
	return candidates, nil
}
