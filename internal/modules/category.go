package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/marvin"
	"github.com/felixmde/beesync/internal/secret"
)

const defaultCategoryLookbackDays = 14

// CategoryConfig configures the task-manager sync. The CouchDB credentials
// are all secrets since Marvin hands them out as one opaque bundle.
type CategoryConfig struct {
	URI          secret.Spec `toml:"uri"`
	Username     secret.Spec `toml:"username"`
	Password     secret.Spec `toml:"password"`
	DatabaseName secret.Spec `toml:"database_name"`
	Category     string      `toml:"category"`
	GoalName     string      `toml:"goal_name"`
	LookbackDays int         `toml:"lookback_days"`
}

// Validate checks the config for required fields.
func (c CategoryConfig) Validate() error {
	if c.Category == "" {
		return fmt.Errorf("category: category is required")
	}
	if c.GoalName == "" {
		return fmt.Errorf("category: goal_name is required")
	}
	for name, spec := range map[string]secret.Spec{
		"uri": c.URI, "username": c.Username, "password": c.Password, "database_name": c.DatabaseName,
	} {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("category: %s: %w", name, err)
		}
	}
	return nil
}

func (c CategoryConfig) lookbackDays() int {
	if c.LookbackDays > 0 {
		return c.LookbackDays
	}
	return defaultCategoryLookbackDays
}

// TaskSource supplies completed tasks, satisfied by *marvin.Client.
type TaskSource interface {
	CompletedTasks(ctx context.Context, category string, since time.Time) ([]marvin.Task, error)
}

// TaskSourceFactory builds a task source once the credentials are
// resolved.
type TaskSourceFactory func(credentials marvin.Credentials) TaskSource

// Category records one datapoint per task completed in a category within
// the lookback window. The task id is the external identity.
type Category struct {
	config    CategoryConfig
	newClient TaskSourceFactory
	now       func() time.Time
}

// NewCategory creates the module. The factory defaults to the real client
// when nil.
func NewCategory(config CategoryConfig, factory TaskSourceFactory) *Category {
	if factory == nil {
		factory = func(credentials marvin.Credentials) TaskSource {
			return marvin.New(credentials)
		}
	}
	return &Category{config: config, newClient: factory}
}

func (m *Category) Name() string    { return "category" }
func (m *Category) Goals() []string { return []string{m.config.GoalName} }

func (m *Category) Secrets() map[string]secret.Spec {
	return map[string]secret.Spec{
		"uri":           m.config.URI,
		"username":      m.config.Username,
		"password":      m.config.Password,
		"database_name": m.config.DatabaseName,
	}
}

// IdentityOf recovers the task id from the datapoint request id.
func (m *Category) IdentityOf(dp beeminder.Datapoint) []string {
	if dp.RequestID == "" {
		return nil
	}
	return []string{dp.RequestID}
}

func (m *Category) Fetch(ctx context.Context, creds map[string]string, _ *engine.Existing) ([]engine.Candidate, error) {
	client := m.newClient(marvin.Credentials{
		URI:      creds["uri"],
		Username: creds["username"],
		Password: creds["password"],
		Database: creds["database_name"],
	})

	since := nowOrDefault(m.now).AddDate(0, 0, -m.config.lookbackDays())
	tasks, err := client.CompletedTasks(ctx, m.config.Category, since)
	if err != nil {
		return nil, err
	}

	candidates := make([]engine.Candidate, 0, len(tasks))
	for _, task := range tasks {
		candidates = append(candidates, engine.Candidate{
			Goal:       m.config.GoalName,
			ExternalID: task.ID,
			Value:      1,
			Timestamp:  task.DoneAt,
			Daystamp:   daystamp(task.DoneAt.UTC()),
			Comment:    task.Title,
		})
	}
	return candidates, nil
}
