package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/threadgate/internal/dag"
)

// InsertResult reports the outcome of an idempotent turn insertion.
type InsertResult int

const (
	// InsertCreated means the turn was newly added to the ancestry.
	InsertCreated InsertResult = iota + 1
	// InsertAlreadyExists means the (thread_id, turn_id) pair was
	// already present; the ancestry was not mutated.
	InsertAlreadyExists
)

// UnknownParentError reports an intent referencing a parent turn that
// does not exist in the same thread. Surfaced to the caller before any
// mutation.
type UnknownParentError struct {
	ThreadID     string
	ParentTurnID string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("unknown parent turn %q in thread %q", e.ParentTurnID, e.ThreadID)
}

// UnknownTurnError reports ancestor resolution for a turn that is not
// present in the store.
type UnknownTurnError struct {
	ThreadID string
	TurnID   string
}

func (e *UnknownTurnError) Error() string {
	return fmt.Sprintf("unknown turn %q in thread %q", e.TurnID, e.ThreadID)
}

// IsUnknownParent reports whether err is an UnknownParentError.
func IsUnknownParent(err error) bool {
	var ue *UnknownParentError
	return errors.As(err, &ue)
}

// IsUnknownTurn reports whether err is an UnknownTurnError.
func IsUnknownTurn(err error) bool {
	var ue *UnknownTurnError
	return errors.As(err, &ue)
}

// InsertTurn validates and inserts a turn into its thread's ancestry.
//
// If the (thread_id, turn_id) pair already exists this is idempotent:
// it returns InsertAlreadyExists without mutating state or re-validating
// the parent. If a parent is named it must already exist in the same
// thread, otherwise UnknownParentError is returned and nothing is
// written. Because parents must pre-exist and insertion is the only
// mutation path, the per-thread ancestry is always a forest.
func (s *Store) InsertTurn(ctx context.Context, t dag.Turn) (InsertResult, error) {
	payloadJSON, err := marshalValue(t.Payload)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert turn: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Idempotency check first: a duplicate submission succeeds as a
	// no-op regardless of what parent it names this time.
	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM turns WHERE thread_id = ? AND turn_id = ?
	`, t.ThreadID, t.TurnID).Scan(&exists)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("insert turn: commit: %w", err)
		}
		return InsertAlreadyExists, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("insert turn: check existing: %w", err)
	}

	if t.ParentTurnID != "" {
		var parentExists int
		err = tx.QueryRowContext(ctx, `
			SELECT 1 FROM turns WHERE thread_id = ? AND turn_id = ?
		`, t.ThreadID, t.ParentTurnID).Scan(&parentExists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &UnknownParentError{ThreadID: t.ThreadID, ParentTurnID: t.ParentTurnID}
		}
		if err != nil {
			return 0, fmt.Errorf("insert turn: check parent: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO turns (thread_id, turn_id, parent_turn_id, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id, turn_id) DO NOTHING
	`, t.ThreadID, t.TurnID, nullableString(t.ParentTurnID), payloadJSON)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert turn: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert turn: commit: %w", err)
	}

	if rows == 0 {
		return InsertAlreadyExists, nil
	}
	return InsertCreated, nil
}

// GetTurn returns a single turn. Fails with UnknownTurnError if the turn
// does not exist.
func (s *Store) GetTurn(ctx context.Context, threadID, turnID string) (dag.Turn, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT arrival, thread_id, turn_id, parent_turn_id, payload
		FROM turns
		WHERE thread_id = ? AND turn_id = ?
	`, threadID, turnID)

	t, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dag.Turn{}, &UnknownTurnError{ThreadID: threadID, TurnID: turnID}
	}
	if err != nil {
		return dag.Turn{}, fmt.Errorf("get turn: %w", err)
	}
	return t, nil
}

// ResolveAncestorChain returns the turn's ancestors ordered root-first,
// ending at the immediate parent. The turn itself is excluded. Fails
// with UnknownTurnError if the turn does not exist.
//
// Resolution is index-based: repeated (thread_id, turn_id) lookups, not
// pointer traversal. The seen-set guard turns a corrupt ancestry into an
// error instead of an infinite loop; valid stores can never trip it.
func (s *Store) ResolveAncestorChain(ctx context.Context, threadID, turnID string) ([]dag.Turn, error) {
	turn, err := s.GetTurn(ctx, threadID, turnID)
	if err != nil {
		return nil, err
	}

	chain := []dag.Turn{}
	seen := map[string]bool{turn.TurnID: true}

	current := turn
	for current.ParentTurnID != "" {
		if seen[current.ParentTurnID] {
			return nil, fmt.Errorf("resolve ancestors: cycle at turn %q in thread %q", current.ParentTurnID, threadID)
		}
		seen[current.ParentTurnID] = true

		parent, err := s.GetTurn(ctx, threadID, current.ParentTurnID)
		if err != nil {
			return nil, fmt.Errorf("resolve ancestors: %w", err)
		}
		chain = append(chain, parent)
		current = parent
	}

	// Walked child-to-root; reverse to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ThreadTurns returns all turns in a thread in arrival order.
// Returns an empty slice (not nil) for an unknown thread.
func (s *Store) ThreadTurns(ctx context.Context, threadID string) ([]dag.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT arrival, thread_id, turn_id, parent_turn_id, payload
		FROM turns
		WHERE thread_id = ?
		ORDER BY arrival ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []dag.Turn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (dag.Turn, error) {
	var (
		t       dag.Turn
		parent  sql.NullString
		payload string
	)
	if err := row.Scan(&t.Arrival, &t.ThreadID, &t.TurnID, &parent, &payload); err != nil {
		return dag.Turn{}, err
	}
	if parent.Valid {
		t.ParentTurnID = parent.String
	}

	value, err := unmarshalValue(payload)
	if err != nil {
		return dag.Turn{}, err
	}
	t.Payload = value
	return t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
