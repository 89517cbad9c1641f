package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadgate/internal/dag"
)

func TestIntentQueueFIFO(t *testing.T) {
	q := newIntentQueue()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(dag.Intent{TurnID: id}))
	}

	for _, want := range []string{"a", "b", "c"} {
		in, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, in.TurnID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestIntentQueueCloseDrains(t *testing.T) {
	q := newIntentQueue()

	require.True(t, q.Enqueue(dag.Intent{TurnID: "a"}))
	q.Close()

	// Closed queues reject new intents but still drain.
	assert.False(t, q.Enqueue(dag.Intent{TurnID: "b"}))
	assert.False(t, q.Drained())

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())
}

func TestIntentQueueCloseIdempotent(t *testing.T) {
	q := newIntentQueue()
	q.Close()
	q.Close()
	assert.True(t, q.Drained())
}

func TestIntentQueueSignalWakes(t *testing.T) {
	q := newIntentQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	require.True(t, q.Enqueue(dag.Intent{TurnID: "a"}))
	<-done
}

func TestIntentQueueConcurrentEnqueue(t *testing.T) {
	q := newIntentQueue()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(dag.Intent{})
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, n, count)
}
