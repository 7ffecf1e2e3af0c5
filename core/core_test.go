package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_WireRoundTrip(t *testing.T) {
	msg := NewMessage(RoleAssistant,
		TextPart{Text: "checking the weather"},
		ToolCallPart{ToolCall: ToolCall{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Berlin"}`}},
	)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, RoleAssistant, decoded.Role)
	assert.Equal(t, "checking the weather", decoded.Text())
	calls := decoded.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, `{"city":"Berlin"}`, calls[0].Arguments)
}

func TestMessage_UnmarshalRejectsUnknownPart(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"id":"x","role":"user","parts":[{"type":"hologram"}]}`), &msg)
	assert.Error(t, err)
}

func TestNewToolResultMessage(t *testing.T) {
	ok := NewToolResultMessage("call-1", "search", "three results", nil)
	require.Len(t, ok.ToolResults(), 1)
	assert.Equal(t, RoleTool, ok.Role)
	assert.Empty(t, ok.ToolResults()[0].Error)

	failed := NewToolResultMessage("call-2", "search", nil, errors.New("timeout"))
	require.Len(t, failed.ToolResults(), 1)
	assert.Equal(t, "timeout", failed.ToolResults()[0].Error)
}

func TestUsage_Add(t *testing.T) {
	total := Usage{}
	deltas := []Usage{
		{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		{InputTokens: 3, ReasoningTokens: 7, OutputTokens: 2, TotalTokens: 12},
	}
	for _, d := range deltas {
		total = total.Add(d)
	}
	assert.Equal(t, Usage{InputTokens: 13, ReasoningTokens: 7, OutputTokens: 7, TotalTokens: 27}, total)
	assert.False(t, total.IsZero())
	assert.True(t, Usage{}.IsZero())
}

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{ID: "search1", URL: "https://tools.example.com/mcp", Transport: TransportStreamableHTTP}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, ServerConfig{URL: "https://x", Transport: TransportSSE}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ServerConfig{ID: "a", Transport: TransportSSE}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ServerConfig{ID: "a", URL: "https://x", Transport: "carrier-pigeon"}.Validate(), ErrInvalidInput)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("%w: agent gone", ErrNotFound)))
	assert.Equal(t, CodeConflict, CodeOf(ErrConflict))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}
