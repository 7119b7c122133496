package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixmde/beesync/internal/activitywatch"
	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/classifier"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/secret"
)

var browserMarkers = []string{"firefox", "brave", "chromium"}

const (
	commentNoTitles = "🫙 No titles."
	commentApproved = "✨ GPT approved."
)

// CleanViewConfig configures the AI-classified day sync.
type CleanViewConfig struct {
	ActivityWatchBaseURL     string      `toml:"activity_watch_base_url"`
	WindowBucket             string      `toml:"window_bucket"`
	GoalName                 string      `toml:"goal_name"`
	LookbackDays             int         `toml:"lookback_days"`
	MinWindowDurationSeconds float64     `toml:"min_window_duration_seconds"`
	OpenAIKey                secret.Spec `toml:"openai_key"`
	OpenAIModel              string      `toml:"openai_model"`
	PromptTemplate           string      `toml:"prompt_template"`
}

// Validate checks the config for required fields.
func (c CleanViewConfig) Validate() error {
	if c.WindowBucket == "" {
		return fmt.Errorf("clean_view: window_bucket is required")
	}
	if c.GoalName == "" {
		return fmt.Errorf("clean_view: goal_name is required")
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("clean_view: lookback_days must be positive")
	}
	if c.PromptTemplate == "" {
		return fmt.Errorf("clean_view: prompt_template is required")
	}
	if err := c.OpenAIKey.Validate(); err != nil {
		return fmt.Errorf("clean_view: openai_key: %w", err)
	}
	return nil
}

// ClassifierFactory builds a classifier once the API key is resolved.
type ClassifierFactory func(apiKey string) classifier.Classifier

// CleanView emits one datapoint per calendar day: value 1 for a clean day
// of browser titles, value 0 otherwise. The daystamp is the external
// identity; a day already present in history is never revisited.
type CleanView struct {
	config        CleanViewConfig
	events        EventSource
	newClassifier ClassifierFactory
	now           func() time.Time
}

// NewCleanView creates the module. The factory defaults to the OpenAI
// classifier when nil.
func NewCleanView(config CleanViewConfig, events EventSource, factory ClassifierFactory) *CleanView {
	if factory == nil {
		factory = func(apiKey string) classifier.Classifier {
			return classifier.NewOpenAI(apiKey, config.OpenAIModel, config.PromptTemplate)
		}
	}
	return &CleanView{config: config, events: events, newClassifier: factory}
}

func (m *CleanView) Name() string    { return "clean-view" }
func (m *CleanView) Goals() []string { return []string{m.config.GoalName} }

func (m *CleanView) Secrets() map[string]secret.Spec {
	return map[string]secret.Spec{"openai": m.config.OpenAIKey}
}

// IdentityOf recovers the day from the datapoint daystamp.
func (m *CleanView) IdentityOf(dp beeminder.Datapoint) []string {
	if dp.Daystamp == "" {
		return nil
	}
	return []string{dp.Daystamp}
}

func (m *CleanView) Fetch(ctx context.Context, creds map[string]string, existing *engine.Existing) ([]engine.Candidate, error) {
	clf := m.newClassifier(creds["openai"])

	now := nowOrDefault(m.now)
	// Days end at local midnight; the most recent window covers yesterday.
	endOfDayToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var candidates []engine.Candidate
	for dayOffset := m.config.LookbackDays - 1; dayOffset >= 0; dayOffset-- {
		end := endOfDayToday.AddDate(0, 0, -dayOffset)
		start := end.AddDate(0, 0, -1)
		stamp := daystamp(end)

		// Classified days are final; skip without spending a classifier
		// call. The engine's diff would drop them anyway.
		if existing.Has(m.config.GoalName, stamp) {
			continue
		}

		events, err := m.events.Events(ctx, m.config.WindowBucket, start, end)
		if err != nil {
			return nil, err
		}

		titles := browserTitles(events, m.config.MinWindowDurationSeconds)

		value := 1.0
		comment := commentNoTitles
		if len(titles) > 0 {
			verdict, err := clf.Classify(ctx, titles)
			if err != nil {
				return nil, err
			}
			if verdict.Clean {
				comment = commentApproved
			} else {
				value = 0
				comment = verdict.Detail
			}
		}

		candidates = append(candidates, engine.Candidate{
			Goal:       m.config.GoalName,
			ExternalID: stamp,
			Value:      value,
			Timestamp:  end,
			Daystamp:   stamp,
			Comment:    comment,
		})
	}
	return candidates, nil
}

// browserTitles collects the distinct browser window titles above the
// duration threshold, sorted for deterministic prompts.
func browserTitles(events []activitywatch.Event, minDuration float64) []string {
	seen := make(map[string]struct{})
	for _, event := range events {
		if event.Duration <= minDuration {
			continue
		}
		lower := strings.ToLower(event.Data.Title)
		for _, marker := range browserMarkers {
			if strings.Contains(lower, marker) {
				seen[event.Data.Title] = struct{}{}
				break
			}
		}
	}

	titles := make([]string, 0, len(seen))
	for title := range seen {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}
