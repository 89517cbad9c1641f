package dag

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SupportedInterfaceVersion is the only ingress envelope version this
// build accepts. Unrecognized versions fail the request.
const SupportedInterfaceVersion = 1

// ErrUnsupportedVersion indicates an envelope with a missing or
// unrecognized interface_version.
var ErrUnsupportedVersion = errors.New("unsupported interface_version")

// Intent is one submitted unit of work: a request to add a turn to a
// thread. Immutable once accepted.
type Intent struct {
	CorrelationID string // opaque tracing identifier, not identity
	StreamID      string
	Lane          string
	Actor         string
	IntentType    string
	ThreadID      string
	TurnID        string
	ParentTurnID  string // empty for a root turn
	Payload       Value  // opaque structured value
}

// Turn is a node in a thread's ancestry. Identity is (ThreadID, TurnID).
// Arrival is the store-assigned monotonic insertion sequence, used for
// sibling ordering in timelines.
type Turn struct {
	ThreadID     string
	TurnID       string
	ParentTurnID string // empty for a root turn
	Payload      Value
	Arrival      int64
}

// EventKind identifies the type of an event record.
type EventKind string

const (
	// KindIntent records that an intent was accepted for a turn.
	KindIntent EventKind = "INTENT"
	// KindContext records that a context was built for a turn.
	KindContext EventKind = "CONTEXT"
	// KindDecision records the policy's decision for a turn.
	KindDecision EventKind = "DECISION"
)

// Event is an immutable record appended to a thread's log. Seq is the
// store-assigned append position; ordering within a thread is always by
// Seq, never by wall clock.
type Event struct {
	Seq            int64
	Kind           EventKind
	ThreadID       string
	TurnID         string
	CorrelationID  string
	ContextDigest  string // CONTEXT and DECISION events
	DecisionDigest string // DECISION events only
	Payload        Value  // intent payload (INTENT) or decision payload (DECISION)
}

// Message is one normalized entry in a context's message sequence.
type Message struct {
	Role    string
	Content string
}

// Context is the deterministic, ancestry-derived input to the decision
// policy. It is computed, never stored as mutable state: the digest of
// the canonical form of ModelMessages is its identity.
type Context struct {
	ModelMessages []Message
	ContextDigest string
}

// MessagesValue returns the canonical value form of a message sequence:
// an array of {"content": ..., "role": ...} objects. This is the exact
// shape that context digests are computed over.
func MessagesValue(msgs []Message) Array {
	arr := make(Array, len(msgs))
	for i, m := range msgs {
		arr[i] = Object{
			"role":    String(m.Role),
			"content": String(m.Content),
		}
	}
	return arr
}

// envelopeWire mirrors the ingress JSON envelope.
type envelopeWire struct {
	InterfaceVersion *int        `json:"interface_version"`
	CorrelationID    string      `json:"correlation_id"`
	Payload          *intentWire `json:"payload"`
}

type intentWire struct {
	StreamID     string          `json:"stream_id"`
	Lane         string          `json:"lane"`
	Actor        string          `json:"actor"`
	IntentType   string          `json:"intent_type"`
	ThreadID     string          `json:"thread_id"`
	TurnID       string          `json:"turn_id"`
	ParentTurnID *string         `json:"parent_turn_id"`
	Payload      json.RawMessage `json:"payload"`
}

// ParseEnvelope decodes and validates an ingress envelope, returning the
// Intent it carries. An unversioned or unrecognized interface_version
// fails with ErrUnsupportedVersion; missing identity fields fail with a
// descriptive error. No state is touched on failure.
func ParseEnvelope(data []byte) (Intent, error) {
	var env envelopeWire
	if err := json.Unmarshal(data, &env); err != nil {
		return Intent{}, fmt.Errorf("parse envelope: %w", err)
	}

	if env.InterfaceVersion == nil {
		return Intent{}, fmt.Errorf("%w: missing", ErrUnsupportedVersion)
	}
	if *env.InterfaceVersion != SupportedInterfaceVersion {
		return Intent{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *env.InterfaceVersion)
	}
	if env.Payload == nil {
		return Intent{}, fmt.Errorf("parse envelope: missing payload")
	}
	if env.Payload.ThreadID == "" {
		return Intent{}, fmt.Errorf("parse envelope: missing thread_id")
	}
	if env.Payload.TurnID == "" {
		return Intent{}, fmt.Errorf("parse envelope: missing turn_id")
	}

	payload := Value(Null{})
	if len(env.Payload.Payload) > 0 {
		var err error
		payload, err = FromJSON(env.Payload.Payload)
		if err != nil {
			return Intent{}, fmt.Errorf("parse envelope payload: %w", err)
		}
	}

	parent := ""
	if env.Payload.ParentTurnID != nil {
		parent = *env.Payload.ParentTurnID
	}

	return Intent{
		CorrelationID: env.CorrelationID,
		StreamID:      env.Payload.StreamID,
		Lane:          env.Payload.Lane,
		Actor:         env.Payload.Actor,
		IntentType:    env.Payload.IntentType,
		ThreadID:      env.Payload.ThreadID,
		TurnID:        env.Payload.TurnID,
		ParentTurnID:  parent,
		Payload:       payload,
	}, nil
}
