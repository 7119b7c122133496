package engine

import (
	"context"
	"time"

	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/secret"
)

// Candidate is a fetched record from a source service, not yet confirmed
// new. ExternalID is the service-specific identifier (video title, session
// start, question id, task id, commit SHA) used for dedup against history.
type Candidate struct {
	Goal       string
	ExternalID string
	Value      float64
	Timestamp  time.Time
	Daystamp   string
	Comment    string
}

// Module is one pluggable synchronization source. The engine resolves its
// declared secrets, builds the dedup index for its declared goals, asks it
// for candidates, and posts whatever is not already represented.
type Module interface {
	// Name identifies the module in logs and summaries.
	Name() string

	// Goals returns the goals this module may emit candidates for, the
	// primary goal first. The engine fetches existing datapoints for all
	// of them before Fetch runs.
	Goals() []string

	// Secrets declares the credentials the module needs, by name. The
	// engine resolves them before Fetch and aborts the module on failure.
	Secrets() map[string]secret.Spec

	// IdentityOf recovers the external identifiers represented by an
	// existing datapoint, per this module's identity scheme. An empty
	// result means the datapoint carries no recoverable identity.
	IdentityOf(dp beeminder.Datapoint) []string

	// Fetch returns candidate records. creds holds the resolved secrets
	// keyed as declared by Secrets. existing summarizes what the engine
	// already knows so the module can shortcut (e.g. fetch only after the
	// latest known timestamp).
	Fetch(ctx context.Context, creds map[string]string, existing *Existing) ([]Candidate, error)
}

// GoalService is the goal-tracking boundary the engine writes to,
// satisfied by *beeminder.Client.
type GoalService interface {
	Datapoints(ctx context.Context, goal string) ([]beeminder.Datapoint, error)
	Create(ctx context.Context, goal string, dp beeminder.CreateDatapoint) (*beeminder.Datapoint, error)
}

// Existing summarizes the already-synced state for one module run.
type Existing struct {
	// Primary holds the primary goal's datapoints, ascending by timestamp.
	Primary []beeminder.Datapoint

	// Latest is the timestamp of the most recent primary datapoint, zero
	// when the goal has no datapoints at all (first-run backfill case).
	Latest time.Time

	known map[string]map[string]struct{}
}

// Has reports whether the given external id is already represented on the
// given goal.
func (e *Existing) Has(goal, externalID string) bool {
	ids, ok := e.known[goal]
	if !ok {
		return false
	}
	_, ok = ids[externalID]
	return ok
}

// Summary reports the outcome of one module's iteration within a run.
type Summary struct {
	Module     string
	Discovered int
	Skipped    int
	Created    int
	Errors     []error
}

// Failed reports whether the module produced nothing but errors.
func (s Summary) Failed() bool {
	return len(s.Errors) > 0 && s.Created == 0
}
