package modules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixmde/beesync/internal/activitywatch"
	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/classifier"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/secret"
	"github.com/felixmde/beesync/internal/testutil"
)

// fakeClassifier returns a fixed verdict and records its inputs.
type fakeClassifier struct {
	verdict classifier.Verdict
	calls   int
	titles  [][]string
}

func (f *fakeClassifier) Classify(_ context.Context, titles []string) (classifier.Verdict, error) {
	f.calls++
	f.titles = append(f.titles, titles)
	return f.verdict, nil
}

func cleanViewModule(t *testing.T, events EventSource, clf *fakeClassifier) *CleanView {
	t.Setenv("OPENAI_TEST_KEY", "oa-key")
	config := CleanViewConfig{
		WindowBucket:             "aw-watcher-window_host",
		GoalName:                 "clean-view",
		LookbackDays:             2,
		MinWindowDurationSeconds: 5,
		OpenAIKey:                secret.Spec{Env: "OPENAI_TEST_KEY"},
		OpenAIModel:              "gpt-4o-mini",
		PromptTemplate:           "Check:\n{{titles}}",
	}
	module := NewCleanView(config, events, func(string) classifier.Classifier { return clf })
	module.now = func() time.Time { return time.Date(2025, 5, 10, 13, 0, 0, 0, time.UTC) }
	return module
}

func browserEvent(title string, duration float64) activitywatch.Event {
	return activitywatch.Event{
		Duration: duration,
		Data:     activitywatch.EventData{App: "firefox", Title: title},
	}
}

func TestCleanView_CleanDay(t *testing.T) {
	events := &fakeEventSource{events: []activitywatch.Event{
		browserEvent("docs — Mozilla Firefox", 30),
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{Clean: true}}

	candidates, err := cleanViewModule(t, events, clf).Fetch(context.Background(), nil, &engine.Existing{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	for _, candidate := range candidates {
		assert.Equal(t, 1.0, candidate.Value)
		assert.Equal(t, commentApproved, candidate.Comment)
		assert.Equal(t, candidate.Daystamp, candidate.ExternalID)
	}
	// Oldest day first: 20250509 then 20250510.
	assert.Equal(t, "20250509", candidates[0].Daystamp)
	assert.Equal(t, "20250510", candidates[1].Daystamp)
}

func TestCleanView_DirtyDayCarriesDetailAndZeroValue(t *testing.T) {
	events := &fakeEventSource{events: []activitywatch.Event{
		browserEvent("endless feed — Mozilla Firefox", 600),
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{Clean: false, Detail: "Feed scrolling."}}

	candidates, err := cleanViewModule(t, events, clf).Fetch(context.Background(), nil, &engine.Existing{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 0.0, candidates[0].Value)
	assert.Equal(t, "Feed scrolling.", candidates[0].Comment)
}

func TestCleanView_EmptyDayIsCleanWithoutClassifierCall(t *testing.T) {
	events := &fakeEventSource{events: []activitywatch.Event{
		browserEvent("too short — Mozilla Firefox", 2), // below min duration
		{Duration: 600, Data: activitywatch.EventData{App: "emacs", Title: "main.go"}},
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{Clean: false}}

	candidates, err := cleanViewModule(t, events, clf).Fetch(context.Background(), nil, &engine.Existing{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, 0, clf.calls, "no titles, no classifier call")
	assert.Equal(t, commentNoTitles, candidates[0].Comment)
	assert.Equal(t, 1.0, candidates[0].Value)
}

func TestCleanView_TitlesDeduplicatedAndSorted(t *testing.T) {
	events := &fakeEventSource{events: []activitywatch.Event{
		browserEvent("b page — Mozilla Firefox", 30),
		browserEvent("a page — Brave", 30),
		browserEvent("b page — Mozilla Firefox", 40),
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{Clean: true}}

	_, err := cleanViewModule(t, events, clf).Fetch(context.Background(), nil, &engine.Existing{})
	require.NoError(t, err)
	require.NotEmpty(t, clf.titles)
	assert.Equal(t, []string{"a page — Brave", "b page — Mozilla Firefox"}, clf.titles[0])
}

func TestCleanView_SkipsAlreadyClassifiedDays(t *testing.T) {
	events := &fakeEventSource{events: []activitywatch.Event{
		browserEvent("docs — Mozilla Firefox", 30),
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{Clean: true}}
	module := cleanViewModule(t, events, clf)

	goals := testutil.NewFakeGoalService()
	goals.Seed("clean-view", beeminder.Datapoint{Value: 1, Daystamp: "20250509",
		Timestamp: time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC)})

	eng := engine.New(goals, testutil.NewTestLogger())
	summaries := eng.Run(context.Background(), []engine.Module{module})

	// Only the unclassified day is fetched and posted; the known day
	// costs no classifier call at all.
	assert.Equal(t, 1, summaries[0].Created)
	assert.Equal(t, 1, clf.calls)
	creates := goals.CreatesFor("clean-view")
	require.Len(t, creates, 1)
	assert.Equal(t, "20250510", creates[0].Data.Daystamp)
}
