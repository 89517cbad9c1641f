package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope() string {
	return `{
		"interface_version": 1,
		"correlation_id": "corr-1",
		"payload": {
			"stream_id": "default",
			"lane": "demo",
			"actor": "demo-user",
			"intent_type": "chat.message",
			"thread_id": "demo-x",
			"turn_id": "turn-1",
			"parent_turn_id": null,
			"payload": {"message": "hello from turn-1"}
		}
	}`
}

func TestParseEnvelope(t *testing.T) {
	intent, err := ParseEnvelope([]byte(validEnvelope()))
	require.NoError(t, err)

	assert.Equal(t, "corr-1", intent.CorrelationID)
	assert.Equal(t, "default", intent.StreamID)
	assert.Equal(t, "demo", intent.Lane)
	assert.Equal(t, "demo-user", intent.Actor)
	assert.Equal(t, "chat.message", intent.IntentType)
	assert.Equal(t, "demo-x", intent.ThreadID)
	assert.Equal(t, "turn-1", intent.TurnID)
	assert.Empty(t, intent.ParentTurnID)
	assert.Equal(t, Object{"message": String("hello from turn-1")}, intent.Payload)
}

func TestParseEnvelopeParent(t *testing.T) {
	env := `{
		"interface_version": 1,
		"correlation_id": "corr-2",
		"payload": {
			"thread_id": "demo-x",
			"turn_id": "turn-2",
			"parent_turn_id": "turn-1",
			"payload": {"message": "hello from turn-2"}
		}
	}`

	intent, err := ParseEnvelope([]byte(env))
	require.NoError(t, err)
	assert.Equal(t, "turn-1", intent.ParentTurnID)
}

func TestParseEnvelopeVersionGate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing version", `{"correlation_id":"c","payload":{"thread_id":"t","turn_id":"u"}}`},
		{"wrong version", `{"interface_version":2,"correlation_id":"c","payload":{"thread_id":"t","turn_id":"u"}}`},
		{"zero version", `{"interface_version":0,"correlation_id":"c","payload":{"thread_id":"t","turn_id":"u"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body))
			require.ErrorIs(t, err, ErrUnsupportedVersion)
		})
	}
}

func TestParseEnvelopeMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no payload", `{"interface_version":1,"correlation_id":"c"}`},
		{"no thread_id", `{"interface_version":1,"payload":{"turn_id":"u"}}`},
		{"no turn_id", `{"interface_version":1,"payload":{"thread_id":"t"}}`},
		{"not json", `{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body))
			require.Error(t, err)
		})
	}
}

func TestParseEnvelopeAbsentPayloadValue(t *testing.T) {
	env := `{"interface_version":1,"payload":{"thread_id":"t","turn_id":"u"}}`
	intent, err := ParseEnvelope([]byte(env))
	require.NoError(t, err)
	assert.Equal(t, Null{}, intent.Payload)
}

func TestMessagesValue(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "a"},
		{Role: "user", Content: "b"},
	}

	assert.Equal(t, Array{
		Object{"role": String("user"), "content": String("a")},
		Object{"role": String("user"), "content": String("b")},
	}, MessagesValue(msgs))

	assert.Equal(t, Array{}, MessagesValue(nil))
}
