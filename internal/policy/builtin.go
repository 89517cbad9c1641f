package policy

import (
	"context"

	"github.com/roach88/threadgate/internal/dag"
)

func init() {
	Register("ack", func() Policy { return Ack{} })
}

// Ack is the built-in default policy: it acknowledges the context with a
// payload derived only from the context itself, so decisions (and their
// digests) are reproducible across runs.
type Ack struct{}

// Decide implements Policy.
func (Ack) Decide(_ context.Context, c dag.Context) (dag.Value, error) {
	return dag.Object{
		"decision":      dag.String("ack"),
		"message_count": dag.Number(len(c.ModelMessages)),
	}, nil
}

// Static returns a fixed payload regardless of context. Useful as a
// deterministic test double.
type Static struct {
	Payload dag.Value
}

// Decide implements Policy.
func (p Static) Decide(_ context.Context, _ dag.Context) (dag.Value, error) {
	return p.Payload, nil
}

// Failing always returns its configured error. Useful for exercising
// the gateway's policy-failure path.
type Failing struct {
	Err error
}

// Decide implements Policy.
func (p Failing) Decide(_ context.Context, _ dag.Context) (dag.Value, error) {
	return nil, p.Err
}
