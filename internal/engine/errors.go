package engine

import (
	"errors"
	"fmt"
)

// PolicyError reports a failed or timed-out decision policy call for one
// turn's processing attempt. The turn's INTENT and CONTEXT events may
// already be durable; no partial DECISION event is ever visible. The
// failure is retryable by the caller and never corrupts the DAG or
// prior events.
type PolicyError struct {
	ThreadID string
	TurnID   string
	Err      error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy failed for turn %q in thread %q: %v", e.TurnID, e.ThreadID, e.Err)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// IsPolicyError reports whether err is a PolicyError.
// Uses errors.As to handle wrapped errors.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}
