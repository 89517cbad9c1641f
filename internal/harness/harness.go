package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/engine"
	"github.com/roach88/threadgate/internal/policy"
	"github.com/roach88/threadgate/internal/store"
	"github.com/roach88/threadgate/internal/timeline"
)

// StepResult pairs one step's turn id with its pipeline outcome.
type StepResult struct {
	TurnID string
	engine.Result
}

// Result is the full outcome of a scenario run: per-step results plus
// the assembled timeline of the scenario's thread.
type Result struct {
	Steps    []StepResult
	Timeline timeline.ThreadView
}

// Run executes a scenario against a fresh in-memory store. Steps are
// processed synchronously in order, so seq assignment is deterministic
// for a given scenario. Correlation ids are derived from the scenario
// name and turn id, never generated, for the same reason.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	policyName := scenario.Policy
	if policyName == "" {
		policyName = "ack"
	}
	p, err := policy.Resolve(policyName)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	s, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	defer s.Close()

	g := engine.New(s, p,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	result := &Result{}
	for i, step := range scenario.Steps {
		payload, err := stepPayload(step)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", scenario.Name, i, err)
		}

		res, err := g.ProcessIntent(ctx, dag.Intent{
			CorrelationID: scenario.Name + "-" + step.TurnID,
			ThreadID:      scenario.ThreadID,
			TurnID:        step.TurnID,
			ParentTurnID:  step.ParentTurnID,
			Payload:       payload,
		})
		if err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d] (%s): %w", scenario.Name, i, step.TurnID, err)
		}
		result.Steps = append(result.Steps, StepResult{TurnID: step.TurnID, Result: res})
	}

	view, err := timeline.Assemble(ctx, s, scenario.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Timeline = view
	return result, nil
}

func stepPayload(step Step) (dag.Value, error) {
	if step.Payload != nil {
		return dag.FromGo(step.Payload)
	}
	return dag.Object{"message": dag.String(step.Message)}, nil
}
