// Package policy defines the decision-policy capability consumed by the
// gateway.
//
// The core treats a policy as an opaque external call: potentially slow,
// potentially failing, not assumed pure. It is injected at construction
// (resolved by name from configuration at process startup) and swappable
// for testing via any implementation of the single-method interface.
package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/threadgate/internal/dag"
)

// Policy consumes a context and returns a decision payload. The gateway
// invokes it at most once per turn, digests its output the same way as
// contexts, and records the result as a DECISION event.
type Policy interface {
	Decide(ctx context.Context, c dag.Context) (dag.Value, error)
}

// Func adapts a plain function to the Policy interface.
type Func func(ctx context.Context, c dag.Context) (dag.Value, error)

// Decide implements Policy.
func (f Func) Decide(ctx context.Context, c dag.Context) (dag.Value, error) {
	return f(ctx, c)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Policy{}
)

// Register makes a policy constructor resolvable by name. External
// policies register themselves at init; built-ins are pre-registered.
// Panics on duplicate names (a configuration bug, caught at startup).
func Register(name string, constructor func() Policy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("policy %q already registered", name))
	}
	registry[name] = constructor
}

// Resolve returns the policy registered under name.
func Resolve(name string) (Policy, error) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (known: %v)", name, Names())
	}
	return constructor(), nil
}

// Names returns the registered policy names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
