// Package engine drives one synchronization pass: for each configured
// module it resolves secrets, reads the goal service's existing datapoints,
// diffs the module's candidates against them, and appends what is missing.
// There is no local state; dedup is always derived from the read-back.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/secret"
)

// requestIDNamespace seeds deterministic request ids: the same goal and
// external id always map to the same request id, so a retried create is an
// idempotent no-op on the service side.
var requestIDNamespace = uuid.MustParse("b36f8c64-5b2e-48a2-9f0d-7c1d7a30b1ad")

// RequestID derives the idempotency key for a candidate.
func RequestID(goal, externalID string) string {
	return uuid.NewSHA1(requestIDNamespace, []byte(goal+":"+externalID)).String()
}

// Engine runs sync modules against a goal service.
type Engine struct {
	goals  GoalService
	logger *slog.Logger
}

// New creates an engine writing to the given goal service.
func New(goals GoalService, logger *slog.Logger) *Engine {
	return &Engine{goals: goals, logger: logger}
}

// Run performs one full pass over the given modules, sequentially. A
// module's failure never blocks its siblings; cancellation skips the
// remaining modules. The returned summaries are in module order.
func (e *Engine) Run(ctx context.Context, modules []Module) []Summary {
	summaries := make([]Summary, 0, len(modules))

	for _, module := range modules {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("run cancelled, skipping remaining modules", "module", module.Name())
			summaries = append(summaries, Summary{Module: module.Name(), Errors: []error{err}})
			continue
		}

		summary := e.runModule(ctx, module)
		summaries = append(summaries, summary)

		e.logger.Info("module completed",
			"module", summary.Module,
			"discovered", summary.Discovered,
			"skipped", summary.Skipped,
			"created", summary.Created,
			"errors", len(summary.Errors))
	}

	return summaries
}

// runModule executes the per-module state sequence: resolve secrets, fetch
// existing, fetch candidates, diff, post. Every failure is captured in the
// summary rather than propagated.
func (e *Engine) runModule(ctx context.Context, module Module) Summary {
	summary := Summary{Module: module.Name()}

	creds, err := secret.ResolveAll(ctx, module.Secrets())
	if err != nil {
		summary.Errors = append(summary.Errors, err)
		return summary
	}

	existing, err := e.fetchExisting(ctx, module)
	if err != nil {
		summary.Errors = append(summary.Errors, err)
		return summary
	}

	candidates, err := module.Fetch(ctx, creds, existing)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("%w: %s: %v", ErrModuleFetch, module.Name(), err))
		return summary
	}
	summary.Discovered = len(candidates)

	// Ascending time order keeps latest-timestamp heuristics correct on
	// the next run even if a later create fails.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.Before(candidates[j].Timestamp)
	})

	declared := make(map[string]struct{}, len(module.Goals()))
	for _, goal := range module.Goals() {
		declared[goal] = struct{}{}
	}

	posted := make(map[string]struct{})
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, err)
			break
		}

		if _, ok := declared[candidate.Goal]; !ok {
			summary.Errors = append(summary.Errors,
				fmt.Errorf("%w: %s -> %s", ErrUndeclaredGoal, candidate.ExternalID, candidate.Goal))
			continue
		}

		// A candidate is represented either by its raw external id
		// (comment- or timestamp-embedded identity) or by the request id
		// derived from it (idempotency-key identity).
		key := candidate.Goal + "\x00" + candidate.ExternalID
		if existing.Has(candidate.Goal, candidate.ExternalID) ||
			existing.Has(candidate.Goal, RequestID(candidate.Goal, candidate.ExternalID)) {
			summary.Skipped++
			e.logger.Debug("candidate already represented",
				"module", module.Name(), "goal", candidate.Goal, "id", candidate.ExternalID)
			continue
		}
		if _, ok := posted[key]; ok {
			summary.Skipped++
			continue
		}

		_, err := e.goals.Create(ctx, candidate.Goal, beeminder.CreateDatapoint{
			Value:     candidate.Value,
			Timestamp: candidate.Timestamp,
			Daystamp:  candidate.Daystamp,
			Comment:   candidate.Comment,
			RequestID: RequestID(candidate.Goal, candidate.ExternalID),
		})
		if err != nil {
			// No rollback; the next run's diff will retry this one.
			summary.Errors = append(summary.Errors, err)
			continue
		}
		posted[key] = struct{}{}
		summary.Created++
		e.logger.Info("created datapoint",
			"module", module.Name(), "goal", candidate.Goal, "comment", candidate.Comment)
	}

	return summary
}

// fetchExisting lists datapoints for every goal the module declares and
// builds the per-goal known-id index via the module's identity scheme.
func (e *Engine) fetchExisting(ctx context.Context, module Module) (*Existing, error) {
	existing := &Existing{known: make(map[string]map[string]struct{})}

	for i, goal := range module.Goals() {
		datapoints, err := e.goals.Datapoints(ctx, goal)
		if err != nil {
			return nil, err
		}

		ids := make(map[string]struct{}, len(datapoints))
		for _, dp := range datapoints {
			for _, id := range module.IdentityOf(dp) {
				ids[id] = struct{}{}
			}
		}
		existing.known[goal] = ids

		if i == 0 {
			existing.Primary = datapoints
			if len(datapoints) > 0 {
				existing.Latest = datapoints[len(datapoints)-1].Timestamp
			}
		}
	}

	return existing, nil
}
