package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/threadgate/internal/dag"
)

// newTestStore opens a fresh in-memory store for a test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func messagePayload(text string) dag.Value {
	return dag.Object{"message": dag.String(text)}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.sqlite")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopen is idempotent.
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.sqlite")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.InsertTurn(ctx, dag.Turn{ThreadID: "t", TurnID: "turn-1", Payload: messagePayload("hi")})
	require.NoError(t, err)
	_, err = s.AppendEvent(ctx, dag.Event{Kind: dag.KindIntent, ThreadID: "t", TurnID: "turn-1"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	turn, err := s.GetTurn(ctx, "t", "turn-1")
	require.NoError(t, err)
	require.Equal(t, messagePayload("hi"), turn.Payload)

	events, err := s.ThreadEvents(ctx, "t")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, dag.KindIntent, events[0].Kind)
}
