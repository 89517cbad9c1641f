package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/threadgate/internal/dag"
	"github.com/roach88/threadgate/internal/policy"
	"github.com/roach88/threadgate/internal/store"
)

// ErrClosed is returned by Enqueue after the gateway has been closed.
var ErrClosed = errors.New("gateway closed")

// Result reports the outcome of one intent's processing.
type Result struct {
	// TurnCreated is false when the turn already existed (idempotent
	// resubmission).
	TurnCreated bool
	// ContextDigest is the content address of the built context.
	ContextDigest string
	// DecisionDigest is the content address of the recorded decision.
	DecisionDigest string
	// DecisionReused is true when a durable decision already existed
	// and the policy was not invoked.
	DecisionReused bool
}

// Gateway owns the intent-processing pipeline: DAG insertion, context
// building, policy invocation, and event appending.
//
// Thread-safety model:
//   - ProcessIntent: safe from any goroutine for DISTINCT threads;
//     callers processing the same thread concurrently must serialize
//     (or use Enqueue, which does it for them)
//   - Enqueue: safe from any goroutine; per-thread FIFO workers
//     guarantee serialized appends per thread
//   - Close: drains all queues and stops workers
type Gateway struct {
	store         *store.Store
	policy        policy.Policy
	log           *slog.Logger
	policyTimeout time.Duration

	mu     sync.Mutex
	queues map[string]*intentQueue
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway's logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// WithPolicyTimeout bounds each policy invocation. Zero means no bound
// beyond the caller's context.
func WithPolicyTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.policyTimeout = d
	}
}

// New creates a Gateway over the given store and decision policy.
func New(s *store.Store, p policy.Policy, opts ...Option) *Gateway {
	g := &Gateway{
		store:  s,
		policy: p,
		log:    slog.Default(),
		queues: make(map[string]*intentQueue),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProcessIntent runs the full pipeline for one intent synchronously.
//
// DAG and canonicalization failures are detected before any event is
// appended and abort cleanly. A policy failure aborts only the decision
// step: INTENT and CONTEXT remain durable and the error is a
// *PolicyError. Retrying the same turn is always safe - the ancestry
// insert is idempotent, the rebuilt context digest is identical by
// determinism, and the decision slot is claimed at most once.
func (g *Gateway) ProcessIntent(ctx context.Context, in dag.Intent) (Result, error) {
	insert, err := g.store.InsertTurn(ctx, dag.Turn{
		ThreadID:     in.ThreadID,
		TurnID:       in.TurnID,
		ParentTurnID: in.ParentTurnID,
		Payload:      in.Payload,
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{TurnCreated: insert == store.InsertCreated}

	if _, err := g.store.AppendEvent(ctx, dag.Event{
		Kind:          dag.KindIntent,
		ThreadID:      in.ThreadID,
		TurnID:        in.TurnID,
		CorrelationID: in.CorrelationID,
		Payload:       in.Payload,
	}); err != nil {
		return Result{}, err
	}

	ancestors, err := g.store.ResolveAncestorChain(ctx, in.ThreadID, in.TurnID)
	if err != nil {
		return Result{}, err
	}
	ancestorPayloads := make([]dag.Value, len(ancestors))
	for i, turn := range ancestors {
		ancestorPayloads[i] = turn.Payload
	}

	// The stored payload, not the submitted one, feeds the build: on an
	// idempotent resubmission the original turn's payload governs, so
	// the digest matches the first attempt.
	turn, err := g.store.GetTurn(ctx, in.ThreadID, in.TurnID)
	if err != nil {
		return Result{}, err
	}

	built := BuildContext(turn.Payload, ancestorPayloads)
	result.ContextDigest = built.ContextDigest

	if _, err := g.store.AppendEvent(ctx, dag.Event{
		Kind:          dag.KindContext,
		ThreadID:      in.ThreadID,
		TurnID:        in.TurnID,
		CorrelationID: in.CorrelationID,
		ContextDigest: built.ContextDigest,
	}); err != nil {
		return Result{}, err
	}

	// A durable decision short-circuits the policy call: the policy is
	// not assumed pure, so the recorded result wins over a re-invocation.
	existing, err := g.store.LatestDecision(ctx, in.ThreadID, in.TurnID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		result.DecisionDigest = existing.DecisionDigest
		result.DecisionReused = true
		return result, nil
	}

	decision, err := g.decide(ctx, in, built)
	if err != nil {
		return Result{}, err
	}

	decisionDigest, err := dag.DigestValue(decision)
	if err != nil {
		// The policy returned a payload outside the canonical value
		// space; that is a policy failure, not a core failure.
		return Result{}, &PolicyError{ThreadID: in.ThreadID, TurnID: in.TurnID, Err: err}
	}

	_, inserted, err := g.store.AppendDecisionOnce(ctx, dag.Event{
		Kind:           dag.KindDecision,
		ThreadID:       in.ThreadID,
		TurnID:         in.TurnID,
		CorrelationID:  in.CorrelationID,
		ContextDigest:  built.ContextDigest,
		DecisionDigest: decisionDigest,
		Payload:        decision,
	})
	if err != nil {
		return Result{}, err
	}

	if inserted {
		result.DecisionDigest = decisionDigest
	} else {
		// Lost a race with a concurrent attempt; the durable one wins.
		durable, err := g.store.LatestDecision(ctx, in.ThreadID, in.TurnID)
		if err != nil {
			return Result{}, err
		}
		result.DecisionDigest = durable.DecisionDigest
		result.DecisionReused = true
	}
	return result, nil
}

// decide invokes the external policy once, under the configured timeout.
// Any failure, including context cancellation, surfaces as *PolicyError.
func (g *Gateway) decide(ctx context.Context, in dag.Intent, built dag.Context) (dag.Value, error) {
	if g.policyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policyTimeout)
		defer cancel()
	}

	decision, err := g.policy.Decide(ctx, built)
	if err != nil {
		return nil, &PolicyError{ThreadID: in.ThreadID, TurnID: in.TurnID, Err: err}
	}
	if decision == nil {
		decision = dag.Null{}
	}
	return decision, nil
}

// Enqueue submits an intent for asynchronous processing on the thread's
// FIFO queue. Intents for one thread are processed in submission order
// by a single worker; intents for distinct threads run in parallel.
// Processing failures are logged, not returned - callers observe
// outcomes through the event log (snapshot/timeline reads).
func (g *Gateway) Enqueue(in dag.Intent) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	q, ok := g.queues[in.ThreadID]
	if !ok {
		q = newIntentQueue()
		g.queues[in.ThreadID] = q
		g.wg.Add(1)
		go g.drain(in.ThreadID, q)
	}
	g.mu.Unlock()

	if !q.Enqueue(in) {
		return ErrClosed
	}
	return nil
}

// drain is the single worker for one thread's queue.
func (g *Gateway) drain(threadID string, q *intentQueue) {
	defer g.wg.Done()

	for {
		if in, ok := q.TryDequeue(); ok {
			if _, err := g.ProcessIntent(context.Background(), in); err != nil {
				g.log.Error("intent processing failed",
					"thread_id", threadID,
					"turn_id", in.TurnID,
					"correlation_id", in.CorrelationID,
					"error", err,
				)
			}
			continue
		}
		if q.Drained() {
			return
		}
		<-q.Wait()
	}
}

// Close stops accepting new intents, drains every thread queue, and
// waits for the workers to finish.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	queues := make([]*intentQueue, 0, len(g.queues))
	for _, q := range g.queues {
		queues = append(queues, q)
	}
	g.mu.Unlock()

	for _, q := range queues {
		q.Close()
	}
	g.wg.Wait()
}

// ProcessEnvelope parses a raw ingress envelope and processes the intent
// it carries. Envelope validation failures (unsupported version, missing
// identity fields, unrepresentable payload) abort before any state is
// touched.
func (g *Gateway) ProcessEnvelope(ctx context.Context, raw []byte) (Result, error) {
	in, err := dag.ParseEnvelope(raw)
	if err != nil {
		return Result{}, fmt.Errorf("ingress: %w", err)
	}
	return g.ProcessIntent(ctx, in)
}
