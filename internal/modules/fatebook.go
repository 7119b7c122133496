package modules

import (
	"context"
	"fmt"

	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/fatebook"
	"github.com/felixmde/beesync/internal/secret"
)

// FatebookConfig configures the forecasting-question sync.
type FatebookConfig struct {
	GoalName string      `toml:"goal_name"`
	Key      secret.Spec `toml:"key"`
	BaseURL  string      `toml:"base_url"`
}

// Validate checks the config for required fields.
func (c FatebookConfig) Validate() error {
	if err := c.Key.Validate(); err != nil {
		return fmt.Errorf("fatebook: key: %w", err)
	}
	return nil
}

// goal returns the configured goal, defaulting to "fatebook".
func (c FatebookConfig) goal() string {
	if c.GoalName != "" {
		return c.GoalName
	}
	return "fatebook"
}

// QuestionSource supplies forecasting questions, satisfied by
// *fatebook.Client.
type QuestionSource interface {
	Questions(ctx context.Context) ([]fatebook.Question, error)
}

// QuestionSourceFactory builds a question source once the API key is
// resolved.
type QuestionSourceFactory func(apiKey string) QuestionSource

// Fatebook records one datapoint per created question, identified by the
// question id.
type Fatebook struct {
	config    FatebookConfig
	newClient QuestionSourceFactory
}

// NewFatebook creates the module. The factory defaults to the real API
// client when nil.
func NewFatebook(config FatebookConfig, factory QuestionSourceFactory) *Fatebook {
	if factory == nil {
		factory = func(apiKey string) QuestionSource {
			return fatebook.New(apiKey, config.BaseURL)
		}
	}
	return &Fatebook{config: config, newClient: factory}
}

func (m *Fatebook) Name() string    { return "fatebook" }
func (m *Fatebook) Goals() []string { return []string{m.config.goal()} }

func (m *Fatebook) Secrets() map[string]secret.Spec {
	return map[string]secret.Spec{"api_key": m.config.Key}
}

// IdentityOf recovers the question id from the datapoint request id.
func (m *Fatebook) IdentityOf(dp beeminder.Datapoint) []string {
	if dp.RequestID == "" {
		return nil
	}
	return []string{dp.RequestID}
}

func (m *Fatebook) Fetch(ctx context.Context, creds map[string]string, _ *engine.Existing) ([]engine.Candidate, error) {
	questions, err := m.newClient(creds["api_key"]).Questions(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]engine.Candidate, 0, len(questions))
	for _, question := range questions {
		candidates = append(candidates, engine.Candidate{
			Goal:       m.config.goal(),
			ExternalID: question.ID,
			Value:      1,
			Timestamp:  question.CreatedAt,
			Daystamp:   daystamp(question.CreatedAt.UTC()),
			Comment:    question.Title,
		})
	}
	return candidates, nil
}
