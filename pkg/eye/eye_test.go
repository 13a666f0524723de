package eye

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "close", Close.String())
	assert.Equal(t, "listening", Listening.String())
	assert.Equal(t, "thinking", Thinking.String())
	assert.Equal(t, "speaking", Speaking.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestParse(t *testing.T) {
	for _, s := range States() {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := Parse("  Thinking ")
	require.NoError(t, err)
	assert.Equal(t, Thinking, got)
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("sleepy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.Contains(t, err.Error(), "sleepy")
}

func TestJSONText(t *testing.T) {
	var payload struct {
		State State `json:"state"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"state":"speaking"}`), &payload))
	assert.Equal(t, Speaking, payload.State)

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"speaking"}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"state":"nope"}`), &payload))
}
