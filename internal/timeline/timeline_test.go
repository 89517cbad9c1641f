package timeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/engine"
	"github.com/roach88/threadgate/internal/policy"
	"github.com/roach88/threadgate/internal/store"
)

func newPopulatedStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	g := engine.New(s, policy.Ack{},
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()

	submit := func(turnID, parent, message string) {
		t.Helper()
		_, err := g.ProcessIntent(ctx, dag.Intent{
			CorrelationID: "corr-" + turnID,
			ThreadID:      "demo-x",
			TurnID:        turnID,
			ParentTurnID:  parent,
			Payload:       dag.Object{"message": dag.String("hello from " + turnID)},
		})
		require.NoError(t, err)
	}

	// The demo shape: one root, two siblings under it.
	submit("turn-1", "", "hello from turn-1")
	submit("turn-2", "turn-1", "hello from turn-2")
	submit("turn-3a", "turn-1", "hello from turn-3a")
	return s
}

func TestAssembleOrdering(t *testing.T) {
	s := newPopulatedStore(t)

	view, err := Assemble(context.Background(), s, "demo-x")
	require.NoError(t, err)

	assert.Equal(t, "demo-x", view.ThreadID)
	require.Len(t, view.Turns, 3)

	// Depth-first pre-order, siblings by arrival: turn-1, turn-2, turn-3a.
	assert.Equal(t, "turn-1", view.Turns[0].TurnID)
	assert.Equal(t, "turn-2", view.Turns[1].TurnID)
	assert.Equal(t, "turn-3a", view.Turns[2].TurnID)

	assert.Empty(t, view.Turns[0].ParentTurnID)
	assert.Equal(t, "turn-1", view.Turns[1].ParentTurnID)
	assert.Equal(t, "turn-1", view.Turns[2].ParentTurnID)
}

func TestAssembleCausalEventOrder(t *testing.T) {
	s := newPopulatedStore(t)

	view, err := Assemble(context.Background(), s, "demo-x")
	require.NoError(t, err)

	for _, turn := range view.Turns {
		require.Len(t, turn.Events, 3, "turn %s", turn.TurnID)
		// CONTEXT never precedes INTENT; DECISION never precedes CONTEXT.
		assert.Equal(t, dag.KindIntent, turn.Events[0].Kind)
		assert.Equal(t, dag.KindContext, turn.Events[1].Kind)
		assert.Equal(t, dag.KindDecision, turn.Events[2].Kind)
	}
}

func TestAssembleDigests(t *testing.T) {
	s := newPopulatedStore(t)

	view, err := Assemble(context.Background(), s, "demo-x")
	require.NoError(t, err)

	decisionFor := func(turnID string) dag.Event {
		for _, turn := range view.Turns {
			if turn.TurnID == turnID {
				return turn.Events[len(turn.Events)-1]
			}
		}
		t.Fatalf("turn %s not found", turnID)
		return dag.Event{}
	}

	d1 := decisionFor("turn-1")
	d2 := decisionFor("turn-2")
	d3 := decisionFor("turn-3a")

	assert.Equal(t,
		"sha256:9e44c844d2c6013cfbbbe5ef22ac46cc8bfe326b505479aa03a4500c4547afad",
		d1.ContextDigest)
	assert.Equal(t,
		"sha256:477ea8c79abd1c690bae95b3c45766fdd3376712f7419a11a622b13fd4a680f2",
		d2.ContextDigest)
	assert.Equal(t,
		"sha256:926b5e393748dcb22ddded7dfb890eb309084a5861a5cb1aca61d01bbbc44af9",
		d3.ContextDigest)

	// Sibling contexts differ even though both chain to turn-1.
	assert.NotEqual(t, d2.ContextDigest, d3.ContextDigest)

	// The ack decision depends only on message count: both siblings see
	// two messages, so their decision digests coincide.
	assert.Equal(t, d2.DecisionDigest, d3.DecisionDigest)
	assert.NotEqual(t, d1.DecisionDigest, d2.DecisionDigest)
}

func TestAssembleUnknownThread(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	view, err := Assemble(context.Background(), s, "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", view.ThreadID)
	assert.NotNil(t, view.Turns)
	assert.Empty(t, view.Turns)
}

func TestAssembleDeterministic(t *testing.T) {
	s := newPopulatedStore(t)
	ctx := context.Background()

	v1, err := Assemble(ctx, s, "demo-x")
	require.NoError(t, err)
	v2, err := Assemble(ctx, s, "demo-x")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestSnapshotSpansThreads(t *testing.T) {
	s := newPopulatedStore(t)
	ctx := context.Background()

	g := engine.New(s, policy.Ack{},
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := g.ProcessIntent(ctx, dag.Intent{
		ThreadID: "other",
		TurnID:   "turn-1",
		Payload:  dag.Object{"message": dag.String("hi")},
	})
	require.NoError(t, err)

	snap, err := Snapshot(ctx, s)
	require.NoError(t, err)
	assert.Len(t, snap.Events, 12)

	// Per-thread causal order holds inside the global view.
	var kinds []dag.EventKind
	for _, e := range snap.Events {
		if e.ThreadID == "other" {
			kinds = append(kinds, e.Kind)
		}
	}
	assert.Equal(t, []dag.EventKind{dag.KindIntent, dag.KindContext, dag.KindDecision}, kinds)
}
