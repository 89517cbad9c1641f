package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/threadgate/internal/dag"
)

// RunWithGolden executes a scenario and compares its assembled timeline
// against a golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The snapshot is serialized as canonical JSON, so golden comparison is
// byte-exact and insensitive to map iteration order. Wall-clock fields
// never enter the snapshot.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}

	value, err := dag.FromGo(snapshotMap(scenario, result))
	if err != nil {
		return err
	}
	data, err := dag.MarshalCanonical(value)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}

// snapshotMap flattens a run's timeline into plain Go values for
// canonical serialization. Empty fields are omitted rather than encoded
// as empty strings, keeping golden files readable.
func snapshotMap(scenario *Scenario, result *Result) map[string]any {
	turns := make([]any, len(result.Timeline.Turns))
	for i, turn := range result.Timeline.Turns {
		events := make([]any, len(turn.Events))
		for j, e := range turn.Events {
			eventMap := map[string]any{
				"seq":  e.Seq,
				"kind": string(e.Kind),
			}
			if e.CorrelationID != "" {
				eventMap["correlation_id"] = e.CorrelationID
			}
			if e.ContextDigest != "" {
				eventMap["context_digest"] = e.ContextDigest
			}
			if e.DecisionDigest != "" {
				eventMap["decision_digest"] = e.DecisionDigest
			}
			if e.Payload != nil {
				eventMap["payload"] = e.Payload
			}
			events[j] = eventMap
		}
		turnMap := map[string]any{
			"turn_id": turn.TurnID,
			"events":  events,
		}
		if turn.ParentTurnID != "" {
			turnMap["parent_turn_id"] = turn.ParentTurnID
		}
		turns[i] = turnMap
	}
	return map[string]any{
		"scenario_name": scenario.Name,
		"thread_id":     result.Timeline.ThreadID,
		"turns":         turns,
	}
}
