package store

import (
	"fmt"

	"github.com/roach88/threadgate/internal/dag"
)

// marshalValue converts a payload to canonical JSON TEXT for storage.
// Canonical serialization keeps stored payloads byte-stable, so the
// context rebuilt from a stored turn digests identically forever.
func marshalValue(v dag.Value) (string, error) {
	if v == nil {
		v = dag.Null{}
	}
	data, err := dag.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back into a value.
func unmarshalValue(data string) (dag.Value, error) {
	if data == "" {
		return dag.Null{}, nil
	}
	v, err := dag.FromJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}
