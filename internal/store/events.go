package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/threadgate/internal/dag"
)

// AppendEvent appends an event to the log and returns its sequence
// position. Strictly append-only: nothing is ever edited or removed.
//
// Callers must serialize appends per thread (the gateway's per-thread
// queues do this) so that seq order within a thread is causal order.
func (s *Store) AppendEvent(ctx context.Context, e dag.Event) (int64, error) {
	payloadJSON, err := marshalEventPayload(e.Payload)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO events (thread_id, turn_id, kind, correlation_id, context_digest, decision_digest, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ThreadID,
		e.TurnID,
		string(e.Kind),
		e.CorrelationID,
		nullableString(e.ContextDigest),
		nullableString(e.DecisionDigest),
		payloadJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event: last insert id: %w", err)
	}
	return seq, nil
}

// AppendDecisionOnce appends a DECISION event, claiming the turn's
// single decision slot. If a decision for the turn is already durable
// the append is silently skipped (ON CONFLICT DO NOTHING against the
// partial unique index) and the existing event's seq is returned with
// inserted=false.
//
// This is what makes retries safe: either the full decision append wins
// once, or the durable prior result is reused.
func (s *Store) AppendDecisionOnce(ctx context.Context, e dag.Event) (seq int64, inserted bool, err error) {
	if e.Kind != dag.KindDecision {
		return 0, false, fmt.Errorf("append decision: kind %q is not DECISION", e.Kind)
	}

	payloadJSON, err := marshalEventPayload(e.Payload)
	if err != nil {
		return 0, false, fmt.Errorf("append decision: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("append decision: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events (thread_id, turn_id, kind, correlation_id, context_digest, decision_digest, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, turn_id) WHERE kind = 'DECISION' DO NOTHING
	`,
		e.ThreadID,
		e.TurnID,
		string(e.Kind),
		e.CorrelationID,
		nullableString(e.ContextDigest),
		nullableString(e.DecisionDigest),
		payloadJSON,
	)
	if err != nil {
		return 0, false, fmt.Errorf("append decision: insert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("append decision: rows affected: %w", err)
	}

	if rows > 0 {
		seq, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("append decision: last insert id: %w", err)
		}
		inserted = true
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT seq FROM events
			WHERE thread_id = ? AND turn_id = ? AND kind = 'DECISION'
		`, e.ThreadID, e.TurnID).Scan(&seq)
		if err != nil {
			return 0, false, fmt.Errorf("append decision: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("append decision: commit: %w", err)
	}
	return seq, inserted, nil
}

// LatestDecision returns the DECISION event for a turn, or nil if no
// decision is durable yet.
func (s *Store) LatestDecision(ctx context.Context, threadID, turnID string) (*dag.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, thread_id, turn_id, kind, correlation_id, context_digest, decision_digest, payload
		FROM events
		WHERE thread_id = ? AND turn_id = ? AND kind = 'DECISION'
		ORDER BY seq DESC
		LIMIT 1
	`, threadID, turnID)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest decision: %w", err)
	}
	return &e, nil
}

// ThreadEvents returns all events for a thread in append (seq) order.
// Returns an empty slice (not nil) for an unknown thread.
func (s *Store) ThreadEvents(ctx context.Context, threadID string) ([]dag.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, thread_id, turn_id, kind, correlation_id, context_digest, decision_digest, payload
		FROM events
		WHERE thread_id = ?
		ORDER BY seq ASC
	`, threadID)
}

// Snapshot returns all events across all threads. Global interleaving is
// the append order of the log, which is stable for a given log state and
// consistent with per-thread causal order.
func (s *Store) Snapshot(ctx context.Context) ([]dag.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, thread_id, turn_id, kind, correlation_id, context_digest, decision_digest, payload
		FROM events
		ORDER BY seq ASC
	`)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]dag.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []dag.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (dag.Event, error) {
	var (
		e       dag.Event
		kind    string
		ctxDig  sql.NullString
		decDig  sql.NullString
		payload sql.NullString
	)
	if err := row.Scan(&e.Seq, &e.ThreadID, &e.TurnID, &kind, &e.CorrelationID, &ctxDig, &decDig, &payload); err != nil {
		return dag.Event{}, err
	}
	e.Kind = dag.EventKind(kind)
	if ctxDig.Valid {
		e.ContextDigest = ctxDig.String
	}
	if decDig.Valid {
		e.DecisionDigest = decDig.String
	}
	if payload.Valid && payload.String != "" {
		value, err := unmarshalValue(payload.String)
		if err != nil {
			return dag.Event{}, err
		}
		e.Payload = value
	}
	return e, nil
}

// marshalEventPayload stores nil payloads as SQL NULL rather than the
// JSON text "null", so CONTEXT events stay payload-free.
func marshalEventPayload(v dag.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := marshalValue(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
