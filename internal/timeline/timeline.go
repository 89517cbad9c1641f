// Package timeline reconstructs read-side views from the turn store and
// event log. All views are derived; nothing here mutates state.
package timeline

import (
	"context"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/store"
)

// TurnView is one turn in an assembled timeline: its ancestry link plus
// its events in append order.
type TurnView struct {
	TurnID       string
	ParentTurnID string // empty for a root turn
	Events       []dag.Event
}

// ThreadView is the assembled timeline for one thread.
type ThreadView struct {
	ThreadID string
	Turns    []TurnView
}

// SnapshotView is the flat, global event list, intended for
// poll-until-condition consumers.
type SnapshotView struct {
	Events []dag.Event
}

// Assemble reconstructs the timeline for a thread.
//
// Turn ordering is depth-first pre-order over the ancestry forest:
// roots in arrival order, then each turn's subtree before its next
// sibling, siblings in arrival order. This is the one deterministic
// rule used everywhere; the data model itself does not constrain
// sibling order. Within a turn, events appear in append (seq) order, so
// the last DECISION element is always the most recently appended one.
//
// An unknown thread assembles to an empty view, not an error: a thread
// with no turns is indistinguishable from one never created.
func Assemble(ctx context.Context, s *store.Store, threadID string) (ThreadView, error) {
	turns, err := s.ThreadTurns(ctx, threadID)
	if err != nil {
		return ThreadView{}, err
	}
	events, err := s.ThreadEvents(ctx, threadID)
	if err != nil {
		return ThreadView{}, err
	}

	eventsByTurn := make(map[string][]dag.Event, len(turns))
	for _, e := range events {
		eventsByTurn[e.TurnID] = append(eventsByTurn[e.TurnID], e)
	}

	// children preserves arrival order because turns arrive sorted.
	children := make(map[string][]dag.Turn, len(turns))
	var roots []dag.Turn
	for _, t := range turns {
		if t.ParentTurnID == "" {
			roots = append(roots, t)
		} else {
			children[t.ParentTurnID] = append(children[t.ParentTurnID], t)
		}
	}

	view := ThreadView{ThreadID: threadID, Turns: []TurnView{}}

	var walk func(t dag.Turn)
	walk = func(t dag.Turn) {
		tv := TurnView{
			TurnID:       t.TurnID,
			ParentTurnID: t.ParentTurnID,
			Events:       eventsByTurn[t.TurnID],
		}
		if tv.Events == nil {
			tv.Events = []dag.Event{}
		}
		view.Turns = append(view.Turns, tv)
		for _, child := range children[t.TurnID] {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}

	return view, nil
}

// Snapshot returns every event across all threads in log append order,
// which is stable for a given log state and consistent with per-thread
// causal order.
func Snapshot(ctx context.Context, s *store.Store) (SnapshotView, error) {
	events, err := s.Snapshot(ctx)
	if err != nil {
		return SnapshotView{}, err
	}
	return SnapshotView{Events: events}, nil
}
