package modules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixmde/beesync/internal/activitywatch"
	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/testutil"
)

// fakeEventSource returns canned events and records the requested window.
type fakeEventSource struct {
	events    []activitywatch.Event
	err       error
	gotBucket string
	gotStart  time.Time
	gotEnd    time.Time
	byWindow  func(start, end time.Time) []activitywatch.Event
}

func (f *fakeEventSource) Events(_ context.Context, bucket string, start, end time.Time) ([]activitywatch.Event, error) {
	f.gotBucket = bucket
	f.gotStart = start
	f.gotEnd = end
	if f.err != nil {
		return nil, f.err
	}
	if f.byWindow != nil {
		return f.byWindow(start, end), nil
	}
	return f.events, nil
}

func watchEvent(title string, duration float64) activitywatch.Event {
	return activitywatch.Event{
		Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  duration,
		Data:      activitywatch.EventData{App: "firefox", Title: title},
	}
}

func cleanTubeConfig() CleanTubeConfig {
	return CleanTubeConfig{
		WindowBucket:            "aw-watcher-window_host",
		GoalName:                "clean-tube",
		LookbackDays:            3,
		MinVideoDurationSeconds: 60,
	}
}

func TestCleanTube_MinimumDurationFilter(t *testing.T) {
	// Three distinct videos at 30s, 65s, and 120s cumulative: only the
	// two above the 60s minimum survive.
	events := &fakeEventSource{events: []activitywatch.Event{
		watchEvent("Short Clip - YouTube — Mozilla Firefox", 30),
		watchEvent("Medium Video - YouTube — Mozilla Firefox", 40),
		watchEvent("Medium Video - YouTube — Mozilla Firefox", 25),
		watchEvent("Long Documentary - YouTube — Mozilla Firefox", 120),
		watchEvent("unrelated window title", 900),
	}}

	module := NewCleanTube(cleanTubeConfig(), events)
	candidates, err := module.Fetch(context.Background(), nil, &engine.Existing{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Long Documentary", candidates[0].ExternalID)
	assert.Equal(t, "Medium Video", candidates[1].ExternalID)
	assert.Equal(t, 1.0, candidates[0].Value)
	assert.Equal(t, "aw-watcher-window_host", events.gotBucket)
}

func TestCleanTube_LookbackWindow(t *testing.T) {
	events := &fakeEventSource{}
	module := NewCleanTube(cleanTubeConfig(), events)
	module.now = func() time.Time { return time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC) }

	_, err := module.Fetch(context.Background(), nil, &engine.Existing{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 7, 12, 0, 0, 0, time.UTC), events.gotStart)
	assert.Equal(t, time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC), events.gotEnd)
}

func TestCleanTube_FetchErrorPropagates(t *testing.T) {
	events := &fakeEventSource{err: errors.New("aw server down")}
	module := NewCleanTube(cleanTubeConfig(), events)

	_, err := module.Fetch(context.Background(), nil, &engine.Existing{})
	assert.Error(t, err)
}

func TestCleanTube_IdentityFromComment(t *testing.T) {
	module := NewCleanTube(cleanTubeConfig(), &fakeEventSource{})

	ids := module.IdentityOf(beeminder.Datapoint{Comment: "Long Documentary"})
	assert.Equal(t, []string{"Long Documentary"}, ids)
	assert.Empty(t, module.IdentityOf(beeminder.Datapoint{}))
}

func TestCleanTube_EngineSkipsLoggedVideos(t *testing.T) {
	goals := testutil.NewFakeGoalService()
	goals.Seed("clean-tube", beeminder.Datapoint{
		Comment:   "Long Documentary",
		Value:     1,
		Timestamp: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})

	events := &fakeEventSource{events: []activitywatch.Event{
		watchEvent("Long Documentary - YouTube — Mozilla Firefox", 120),
		watchEvent("Fresh Video - YouTube — Mozilla Firefox", 90),
	}}
	module := NewCleanTube(cleanTubeConfig(), events)

	eng := engine.New(goals, testutil.NewTestLogger())
	summaries := eng.Run(context.Background(), []engine.Module{module})

	assert.Equal(t, 1, summaries[0].Created)
	assert.Equal(t, 1, summaries[0].Skipped)
	creates := goals.Creates()
	require.Len(t, creates, 1)
	assert.Equal(t, "Fresh Video", creates[0].Data.Comment)
}
