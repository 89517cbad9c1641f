package engine

import (
	"strings"

	"github.com/roach88/threadgate/internal/dag"
)

// messageRole is the role recorded for every extracted message entry.
const messageRole = "user"

// BuildContext assembles the context for a turn from its raw payload and
// the payloads of its ancestors, root-first.
//
// Pure, deterministic, and total: no I/O, no randomness, no wall clock,
// and no failure path for well-typed input. A payload whose "message"
// field is absent, non-string, or blank after trimming contributes no
// message entry - malformed input degrades rather than erroring, so
// reprocessing any turn is always safe and always reproduces the same
// context_digest. That property is what makes replay, caching, and
// audit of the event log trustworthy.
func BuildContext(payload dag.Value, ancestorPayloads []dag.Value) dag.Context {
	messages := make([]dag.Message, 0, len(ancestorPayloads)+1)
	for _, ancestor := range ancestorPayloads {
		if m, ok := extractMessage(ancestor); ok {
			messages = append(messages, m)
		}
	}
	if m, ok := extractMessage(payload); ok {
		messages = append(messages, m)
	}

	// The builder constructs the value from strings only, so canonical
	// marshaling cannot fail here.
	digest := dag.MustDigestValue(dag.MessagesValue(messages))

	return dag.Context{
		ModelMessages: messages,
		ContextDigest: digest,
	}
}

// extractMessage pulls the normalized message entry out of a payload.
// Only a mapping with a non-blank string "message" field contributes.
func extractMessage(payload dag.Value) (dag.Message, bool) {
	obj, ok := payload.(dag.Object)
	if !ok {
		return dag.Message{}, false
	}
	raw, ok := obj["message"].(dag.String)
	if !ok {
		return dag.Message{}, false
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return dag.Message{}, false
	}
	return dag.Message{Role: messageRole, Content: text}, true
}
