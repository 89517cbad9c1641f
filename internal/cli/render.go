package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/timeline"
)

// eventMap converts an event into a JSON-safe map. Payloads are emitted
// as canonical JSON so CLI output and stored bytes never disagree.
func eventMap(e dag.Event) (map[string]any, error) {
	m := map[string]any{
		"seq":       e.Seq,
		"kind":      string(e.Kind),
		"thread_id": e.ThreadID,
		"turn_id":   e.TurnID,
	}
	if e.CorrelationID != "" {
		m["correlation_id"] = e.CorrelationID
	}
	if e.ContextDigest != "" {
		m["context_digest"] = e.ContextDigest
	}
	if e.DecisionDigest != "" {
		m["decision_digest"] = e.DecisionDigest
	}
	if e.Payload != nil {
		data, err := dag.MarshalCanonical(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("render event %d: %w", e.Seq, err)
		}
		m["payload"] = json.RawMessage(data)
	}
	return m, nil
}

func timelineMap(view timeline.ThreadView) (map[string]any, error) {
	turns := make([]any, len(view.Turns))
	for i, turn := range view.Turns {
		events := make([]any, len(turn.Events))
		for j, e := range turn.Events {
			m, err := eventMap(e)
			if err != nil {
				return nil, err
			}
			events[j] = m
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
		"thread_id": view.ThreadID,
		"turns":     turns,
	}, nil
}

func renderTimelineText(view timeline.ThreadView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "thread %s (%d turns)\n", view.ThreadID, len(view.Turns))
	for _, turn := range view.Turns {
		if turn.ParentTurnID != "" {
			fmt.Fprintf(&b, "turn %s (parent %s)\n", turn.TurnID, turn.ParentTurnID)
		} else {
			fmt.Fprintf(&b, "turn %s\n", turn.TurnID)
		}
		for _, e := range turn.Events {
			b.WriteString(renderEventLine(e))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderEventLine(e dag.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  [%d] %s", e.Seq, e.Kind)
	if e.ContextDigest != "" {
		fmt.Fprintf(&b, " context=%s", e.ContextDigest)
	}
	if e.DecisionDigest != "" {
		fmt.Fprintf(&b, " decision=%s", e.DecisionDigest)
	}
	b.WriteString("\n")
	return b.String()
}

func snapshotMap(view timeline.SnapshotView) (map[string]any, error) {
	events := make([]any, len(view.Events))
	for i, e := range view.Events {
		m, err := eventMap(e)
		if err != nil {
			return nil, err
		}
		events[i] = m
	}
	return map[string]any{"events": events}, nil
}

func renderSnapshotText(view timeline.SnapshotView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d events\n", len(view.Events))
	for _, e := range view.Events {
		fmt.Fprintf(&b, "[%d] %s %s/%s", e.Seq, e.Kind, e.ThreadID, e.TurnID)
		if e.ContextDigest != "" {
			fmt.Fprintf(&b, " context=%s", e.ContextDigest)
		}
		if e.DecisionDigest != "" {
			fmt.Fprintf(&b, " decision=%s", e.DecisionDigest)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
