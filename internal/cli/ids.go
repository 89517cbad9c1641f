package cli

import "github.com/google/uuid"

// CorrelationGenerator produces correlation ids for submitted intents.
type CorrelationGenerator interface {
	NewCorrelationID() string
}

// UUIDGenerator issues time-ordered UUIDv7 correlation ids, so ids sort
// by submission time in log output.
type UUIDGenerator struct{}

func (UUIDGenerator) NewCorrelationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 fails only if the system clock or entropy source is
		// broken; fall back to random.
		return uuid.NewString()
	}
	return id.String()
}

// FixedGenerator returns one fixed id, for deterministic tests and
// demos.
type FixedGenerator struct {
	ID string
}

func (g FixedGenerator) NewCorrelationID() string {
	return g.ID
}
