// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/felixmde/beesync/internal/beeminder"
)

// NewTestLogger creates a quiet logger for tests.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// FakeGoalService is an in-memory goal service. Created datapoints become
// visible to subsequent Datapoints calls, so idempotence across runs can be
// exercised without a network.
type FakeGoalService struct {
	mu         sync.Mutex
	datapoints map[string][]beeminder.Datapoint
	listErr    map[string]error
	createErr  map[string]error
	creates    []CreateCall
	nextID     int
}

// CreateCall records one Create invocation.
type CreateCall struct {
	Goal string
	Data beeminder.CreateDatapoint
}

func NewFakeGoalService() *FakeGoalService {
	return &FakeGoalService{
		datapoints: make(map[string][]beeminder.Datapoint),
		listErr:    make(map[string]error),
		createErr:  make(map[string]error),
	}
}

// Seed installs pre-existing datapoints on a goal.
func (f *FakeGoalService) Seed(goal string, dps ...beeminder.Datapoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datapoints[goal] = append(f.datapoints[goal], dps...)
}

// FailList makes Datapoints fail for a goal.
func (f *FakeGoalService) FailList(goal string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[goal] = err
}

// FailCreate makes Create fail for a goal.
func (f *FakeGoalService) FailCreate(goal string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr[goal] = err
}

func (f *FakeGoalService) Datapoints(_ context.Context, goal string) ([]beeminder.Datapoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.listErr[goal]; err != nil {
		return nil, err
	}

	result := make([]beeminder.Datapoint, len(f.datapoints[goal]))
	copy(result, f.datapoints[goal])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (f *FakeGoalService) Create(_ context.Context, goal string, dp beeminder.CreateDatapoint) (*beeminder.Datapoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.createErr[goal]; err != nil {
		return nil, err
	}

	f.creates = append(f.creates, CreateCall{Goal: goal, Data: dp})
	f.nextID++
	created := beeminder.Datapoint{
		ID:        fmt.Sprintf("dp-%d", f.nextID),
		Value:     dp.Value,
		Timestamp: dp.Timestamp,
		Daystamp:  dp.Daystamp,
		Comment:   dp.Comment,
		RequestID: dp.RequestID,
	}
	f.datapoints[goal] = append(f.datapoints[goal], created)
	return &created, nil
}

// Creates returns all recorded Create calls in order.
func (f *FakeGoalService) Creates() []CreateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]CreateCall, len(f.creates))
	copy(result, f.creates)
	return result
}

// CreatesFor returns recorded Create calls against one goal.
func (f *FakeGoalService) CreatesFor(goal string) []CreateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []CreateCall
	for _, call := range f.creates {
		if call.Goal == goal {
			result = append(result, call)
		}
	}
	return result
}
