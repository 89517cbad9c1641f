package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadgate/internal/dag"
)

func TestInsertTurnCreated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result, err := s.InsertTurn(ctx, dag.Turn{
		ThreadID: "demo-x",
		TurnID:   "turn-1",
		Payload:  messagePayload("hello from turn-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, InsertCreated, result)

	turn, err := s.GetTurn(ctx, "demo-x", "turn-1")
	require.NoError(t, err)
	assert.Equal(t, "turn-1", turn.TurnID)
	assert.Empty(t, turn.ParentTurnID)
	assert.Equal(t, messagePayload("hello from turn-1"), turn.Payload)
	assert.Positive(t, turn.Arrival)
}

func TestInsertTurnIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	turn := dag.Turn{ThreadID: "demo-x", TurnID: "turn-1", Payload: messagePayload("hi")}

	result, err := s.InsertTurn(ctx, turn)
	require.NoError(t, err)
	require.Equal(t, InsertCreated, result)

	// Second insert is a no-op, not an error.
	result, err = s.InsertTurn(ctx, turn)
	require.NoError(t, err)
	assert.Equal(t, InsertAlreadyExists, result)

	turns, err := s.ThreadTurns(ctx, "demo-x")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestInsertTurnUnknownParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTurn(ctx, dag.Turn{
		ThreadID:     "demo-x",
		TurnID:       "turn-2",
		ParentTurnID: "missing",
		Payload:      messagePayload("hi"),
	})
	require.Error(t, err)
	assert.True(t, IsUnknownParent(err))

	// No partial mutation.
	turns, err := s.ThreadTurns(ctx, "demo-x")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInsertTurnParentScopedToThread(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTurn(ctx, dag.Turn{ThreadID: "thread-a", TurnID: "turn-1", Payload: dag.Null{}})
	require.NoError(t, err)

	// Same turn id exists in thread-a, but parents resolve per thread.
	_, err = s.InsertTurn(ctx, dag.Turn{
		ThreadID:     "thread-b",
		TurnID:       "turn-2",
		ParentTurnID: "turn-1",
		Payload:      dag.Null{},
	})
	require.Error(t, err)
	assert.True(t, IsUnknownParent(err))
}

func TestInsertTurnDuplicateIgnoresParentChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTurn(ctx, dag.Turn{ThreadID: "t", TurnID: "turn-1", Payload: dag.Null{}})
	require.NoError(t, err)

	// Resubmission naming a bogus parent still succeeds as a no-op; the
	// recorded ancestry is unchanged.
	result, err := s.InsertTurn(ctx, dag.Turn{
		ThreadID:     "t",
		TurnID:       "turn-1",
		ParentTurnID: "missing",
		Payload:      dag.Null{},
	})
	require.NoError(t, err)
	assert.Equal(t, InsertAlreadyExists, result)

	turn, err := s.GetTurn(ctx, "t", "turn-1")
	require.NoError(t, err)
	assert.Empty(t, turn.ParentTurnID)
}

func TestGetTurnUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTurn(context.Background(), "t", "missing")
	require.Error(t, err)
	assert.True(t, IsUnknownTurn(err))
}

func TestResolveAncestorChainRootFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insert := func(turnID, parent string) {
		t.Helper()
		_, err := s.InsertTurn(ctx, dag.Turn{
			ThreadID:     "demo-x",
			TurnID:       turnID,
			ParentTurnID: parent,
			Payload:      messagePayload("from " + turnID),
		})
		require.NoError(t, err)
	}

	insert("turn-1", "")
	insert("turn-2", "turn-1")
	insert("turn-3", "turn-2")

	chain, err := s.ResolveAncestorChain(ctx, "demo-x", "turn-3")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "turn-1", chain[0].TurnID)
	assert.Equal(t, "turn-2", chain[1].TurnID)

	// A root turn has no ancestors.
	chain, err = s.ResolveAncestorChain(ctx, "demo-x", "turn-1")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestResolveAncestorChainUnknownTurn(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ResolveAncestorChain(context.Background(), "demo-x", "missing")
	require.Error(t, err)
	assert.True(t, IsUnknownTurn(err))
}

func TestForestInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Build a small forest: two roots, one with two children, one grandchild.
	inserts := []struct{ turn, parent string }{
		{"root-a", ""},
		{"root-b", ""},
		{"a-1", "root-a"},
		{"a-2", "root-a"},
		{"a-1-1", "a-1"},
	}
	for _, in := range inserts {
		_, err := s.InsertTurn(ctx, dag.Turn{
			ThreadID:     "t",
			TurnID:       in.turn,
			ParentTurnID: in.parent,
			Payload:      dag.Null{},
		})
		require.NoError(t, err)
	}

	turns, err := s.ThreadTurns(ctx, "t")
	require.NoError(t, err)
	require.Len(t, turns, 5)

	// Every node has at most one parent, and every parent exists.
	byID := map[string]dag.Turn{}
	for _, turn := range turns {
		byID[turn.TurnID] = turn
	}
	for _, turn := range turns {
		if turn.ParentTurnID != "" {
			_, ok := byID[turn.ParentTurnID]
			assert.True(t, ok, "parent of %s must exist", turn.TurnID)
		}
		// Resolving every chain terminates at a root: no cycles.
		chain, err := s.ResolveAncestorChain(ctx, "t", turn.TurnID)
		require.NoError(t, err)
		if len(chain) > 0 {
			assert.Empty(t, chain[0].ParentTurnID, "chain for %s must start at a root", turn.TurnID)
		}
	}
}

func TestThreadTurnsArrivalOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.InsertTurn(ctx, dag.Turn{ThreadID: "t", TurnID: id, Payload: dag.Null{}})
		require.NoError(t, err)
	}

	turns, err := s.ThreadTurns(ctx, "t")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	// Arrival order, not lexicographic.
	assert.Equal(t, "c", turns[0].TurnID)
	assert.Equal(t, "a", turns[1].TurnID)
	assert.Equal(t, "b", turns[2].TurnID)
}

func TestThreadTurnsEmptyNotNil(t *testing.T) {
	s := newTestStore(t)

	turns, err := s.ThreadTurns(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}
