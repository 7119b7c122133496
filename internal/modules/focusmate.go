package modules

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/focusmate"
	"github.com/felixmde/beesync/internal/secret"
)

// FocusmateConfig configures the session sync.
type FocusmateConfig struct {
	GoalName string      `toml:"goal_name"`
	AutoTags []string    `toml:"auto_tags"`
	Key      secret.Spec `toml:"key"`
	BaseURL  string      `toml:"base_url"`
}

// Validate checks the config for required fields.
func (c FocusmateConfig) Validate() error {
	if c.GoalName == "" {
		return fmt.Errorf("focusmate: goal_name is required")
	}
	if err := c.Key.Validate(); err != nil {
		return fmt.Errorf("focusmate: key: %w", err)
	}
	return nil
}

// SessionSource supplies completed sessions and partner profiles,
// satisfied by *focusmate.Client.
type SessionSource interface {
	Sessions(ctx context.Context, start, end time.Time) ([]focusmate.Session, error)
	Profile(ctx context.Context, userID string) (*focusmate.Profile, error)
}

// SessionSourceFactory builds a session source once the API key is
// resolved.
type SessionSourceFactory func(apiKey string) SessionSource

// Focusmate turns completed coworking sessions into datapoints. Identity
// is the session start timestamp as recorded on existing datapoints; this
// is a heuristic, not a unique id (the session id only travels along for
// future strengthening). A hashtag in the session title matching a
// configured tag fans the session out to that tag's own goal.
type Focusmate struct {
	config    FocusmateConfig
	newClient SessionSourceFactory
	now       func() time.Time
}

// NewFocusmate creates the module. The factory defaults to the real API
// client when nil.
func NewFocusmate(config FocusmateConfig, factory SessionSourceFactory) *Focusmate {
	if factory == nil {
		factory = func(apiKey string) SessionSource {
			return focusmate.New(apiKey, config.BaseURL)
		}
	}
	return &Focusmate{config: config, newClient: factory}
}

func (m *Focusmate) Name() string { return "focusmate" }

func (m *Focusmate) Goals() []string {
	goals := []string{m.config.GoalName}
	return append(goals, m.config.AutoTags...)
}

func (m *Focusmate) Secrets() map[string]secret.Spec {
	return map[string]secret.Spec{"api_key": m.config.Key}
}

// IdentityOf recovers the session start as a unix timestamp string.
func (m *Focusmate) IdentityOf(dp beeminder.Datapoint) []string {
	return []string{strconv.FormatInt(dp.Timestamp.Unix(), 10)}
}

func (m *Focusmate) Fetch(ctx context.Context, creds map[string]string, existing *engine.Existing) ([]engine.Candidate, error) {
	client := m.newClient(creds["api_key"])
	now := nowOrDefault(m.now)

	// First-run backfill: with no usable history at all, fetch everything.
	// A most-recent datapoint with value 0 is a placeholder, not sync
	// evidence, so it also triggers the full fetch.
	start := time.Unix(0, 0).UTC()
	if len(existing.Primary) > 0 {
		if last := existing.Primary[len(existing.Primary)-1]; last.Value != 0 {
			start = last.Timestamp
		}
	}
	end := now.Add(24 * time.Hour)

	sessions, err := client.Sessions(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var candidates []engine.Candidate
	for _, session := range sessions {
		if !session.Completed() {
			continue
		}

		comment := m.sessionComment(ctx, client, session)
		externalID := strconv.FormatInt(session.StartTime.Unix(), 10)

		candidates = append(candidates, engine.Candidate{
			Goal:       m.config.GoalName,
			ExternalID: externalID,
			Value:      1,
			Timestamp:  session.StartTime,
			Daystamp:   daystamp(session.StartTime.UTC()),
			Comment:    comment,
		})

		for _, tag := range m.config.AutoTags {
			if !containsHashtag(session.Title(), tag) {
				continue
			}
			candidates = append(candidates, engine.Candidate{
				Goal:       tag,
				ExternalID: externalID,
				Value:      1,
				Timestamp:  session.StartTime,
				Daystamp:   daystamp(session.StartTime.UTC()),
				Comment:    comment,
			})
		}
	}
	return candidates, nil
}

// sessionComment renders "Monday, 15:00 (UTC), <title> with <partner> for
// N mins". The partner lookup is best-effort.
func (m *Focusmate) sessionComment(ctx context.Context, client SessionSource, session focusmate.Session) string {
	start := session.StartTime.UTC()
	formatted := fmt.Sprintf("%s, %02d:%02d (UTC)", start.Weekday(), start.Hour(), start.Minute())

	partner := "unknown partner"
	if partnerID := session.PartnerID(); partnerID != "" {
		if profile, err := client.Profile(ctx, partnerID); err == nil && profile.Name != "" {
			partner = profile.Name
		}
	}

	return fmt.Sprintf("%s, %s with %s for %d mins",
		formatted, session.Title(), partner, session.Duration/60000)
}

func containsHashtag(title, tag string) bool {
	return tag != "" && title != "" && strings.Contains(title, "#"+tag)
}
