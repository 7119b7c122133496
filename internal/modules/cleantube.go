package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixmde/beesync/internal/activitywatch"
	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/secret"
)

// youtubeTitleSeparator splits a browser window title into the video title
// and the trailing " - YouTube — <browser>" suffix.
const youtubeTitleSeparator = " - YouTube —"

// CleanTubeConfig configures the viewing-habit sync.
type CleanTubeConfig struct {
	ActivityWatchBaseURL    string  `toml:"activity_watch_base_url"`
	WindowBucket            string  `toml:"window_bucket"`
	GoalName                string  `toml:"goal_name"`
	LookbackDays            int     `toml:"lookback_days"`
	MinVideoDurationSeconds float64 `toml:"min_video_duration_seconds"`
}

// Validate checks the config for required fields.
func (c CleanTubeConfig) Validate() error {
	if c.WindowBucket == "" {
		return fmt.Errorf("clean_tube: window_bucket is required")
	}
	if c.GoalName == "" {
		return fmt.Errorf("clean_tube: goal_name is required")
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("clean_tube: lookback_days must be positive")
	}
	return nil
}

// EventSource supplies window-focus events, satisfied by
// *activitywatch.Client.
type EventSource interface {
	Events(ctx context.Context, bucket string, start, end time.Time) ([]activitywatch.Event, error)
}

// CleanTube reports each distinct video watched beyond a minimum
// cumulative duration. The video title is the external identity, embedded
// verbatim as the datapoint comment.
type CleanTube struct {
	config CleanTubeConfig
	events EventSource
	now    func() time.Time
}

// NewCleanTube creates the module on top of an event source.
func NewCleanTube(config CleanTubeConfig, events EventSource) *CleanTube {
	return &CleanTube{config: config, events: events}
}

func (m *CleanTube) Name() string                    { return "clean-tube" }
func (m *CleanTube) Goals() []string                 { return []string{m.config.GoalName} }
func (m *CleanTube) Secrets() map[string]secret.Spec { return nil }

// IdentityOf recovers the video title from the datapoint comment.
func (m *CleanTube) IdentityOf(dp beeminder.Datapoint) []string {
	if dp.Comment == "" {
		return nil
	}
	return []string{dp.Comment}
}

func (m *CleanTube) Fetch(ctx context.Context, _ map[string]string, _ *engine.Existing) ([]engine.Candidate, error) {
	now := nowOrDefault(m.now)
	start := now.AddDate(0, 0, -m.config.LookbackDays)

	events, err := m.events.Events(ctx, m.config.WindowBucket, start, now)
	if err != nil {
		return nil, err
	}

	videoDurations := make(map[string]float64)
	for _, event := range events {
		videoTitle, _, found := strings.Cut(event.Data.Title, youtubeTitleSeparator)
		if !found {
			continue
		}
		videoDurations[strings.TrimSpace(videoTitle)] += event.Duration
	}

	titles := make([]string, 0, len(videoDurations))
	for title, duration := range videoDurations {
		if duration > m.config.MinVideoDurationSeconds {
			titles = append(titles, title)
		}
	}
	sort.Strings(titles)

	candidates := make([]engine.Candidate, 0, len(titles))
	for _, title := range titles {
		candidates = append(candidates, engine.Candidate{
			Goal:       m.config.GoalName,
			ExternalID: title,
			Value:      1,
			Timestamp:  now,
			Comment:    title,
		})
	}
	return candidates, nil
}
