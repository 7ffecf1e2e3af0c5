package model

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/core"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()
	var responses []Response
	for resp := range respCh {
		responses = append(responses, resp)
	}
	return responses, <-errCh
}

func TestMockModelStreamsThenFinal(t *testing.T) {
	m := NewMockModel("test")
	m.Enqueue(MockTurn{Text: "hi", Usage: core.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}})

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("hello")},
		Stream:   true,
	})
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.NotEmpty(t, responses)

	var streamed strings.Builder
	for _, r := range responses[:len(responses)-1] {
		assert.True(t, r.Partial)
		streamed.WriteString(r.Message.Text())
	}
	assert.Equal(t, "hi", streamed.String())

	final := responses[len(responses)-1]
	assert.False(t, final.Partial)
	assert.Equal(t, "hi", final.Message.Text())
	assert.Equal(t, "stop", final.FinishReason)
	require.NotNil(t, final.Usage)
	assert.Equal(t, int64(5), final.Usage.TotalTokens)
}

func TestMockModelToolCallTurn(t *testing.T) {
	m := NewMockModel("test")
	m.Enqueue(MockTurn{ToolCalls: []core.ToolCall{{ID: "call-1", Name: "lookup", Arguments: `{"q":"x"}`}}})

	respCh, errCh := m.Generate(context.Background(), Request{Stream: true})
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	final := responses[0]
	assert.Equal(t, "tool_calls", final.FinishReason)
	calls := final.Message.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Name)
}

func TestMockModelExhaustedScript(t *testing.T) {
	m := NewMockModel("test")
	respCh, errCh := m.Generate(context.Background(), Request{})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
}

func TestMockModelErrTurn(t *testing.T) {
	m := NewMockModel("test")
	m.Enqueue(MockTurn{Err: assert.AnError})
	respCh, errCh := m.Generate(context.Background(), Request{Stream: true})
	responses, err := drain(t, respCh, errCh)
	assert.Empty(t, responses)
	assert.ErrorIs(t, err, assert.AnError)
}
