// Package harness runs YAML-defined scenarios through a full gateway
// pipeline against an ephemeral store, for conformance and golden-file
// testing.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a sequence of turns submitted
// to one thread, processed by a named policy.
type Scenario struct {
	// Name uniquely identifies this scenario. It seeds correlation ids
	// and names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description,omitempty"`

	// ThreadID is the thread all steps submit into.
	ThreadID string `yaml:"thread_id"`

	// Policy names a registered decision policy. Empty selects "ack".
	Policy string `yaml:"policy,omitempty"`

	// Steps are the turns to submit, in order.
	Steps []Step `yaml:"steps"`
}

// Step is one turn submission. Either Message (shorthand for a payload
// of {"message": <text>}) or Payload may be given, not both.
type Step struct {
	TurnID       string         `yaml:"turn_id"`
	ParentTurnID string         `yaml:"parent_turn_id,omitempty"`
	Message      string         `yaml:"message,omitempty"`
	Payload      map[string]any `yaml:"payload,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.ThreadID == "" {
		return fmt.Errorf("thread_id is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.TurnID == "" {
			return fmt.Errorf("steps[%d]: turn_id is required", i)
		}
		if step.Message != "" && step.Payload != nil {
			return fmt.Errorf("steps[%d]: message and payload are mutually exclusive", i)
		}
	}
	return nil
}
