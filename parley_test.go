package parley

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/runner"
)

func TestEndToEndTurnWithBuiltinTools(t *testing.T) {
	llm := model.NewMockModel("mock")
	p := New(llm)
	ctx := context.Background()

	_, err := p.Store().CreateAgent(ctx, "scout", "Scout")
	require.NoError(t, err)

	// First round saves a memory via the built-in tool, second round answers.
	llm.Enqueue(
		model.MockTurn{ToolCalls: []core.ToolCall{{
			ID:        "call-1",
			Name:      "memory_append",
			Arguments: `{"text":"user prefers terse replies"}`,
		}}},
		model.MockTurn{
			Text:  "noted",
			Usage: core.Usage{InputTokens: 12, OutputTokens: 2, TotalTokens: 14},
		},
	)

	text, err := p.RunSync(ctx, runner.TurnRequest{AgentID: "scout", Text: "remember I like terse replies"})
	require.NoError(t, err)
	assert.Equal(t, "noted", text)

	hits, err := p.Memory().Search(ctx, "scout", "terse replies")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Text, "user prefers terse replies")

	usage, err := p.Store().GetUsage(ctx, "scout", core.DefaultSession)
	require.NoError(t, err)
	assert.Equal(t, int64(14), usage.TotalTokens)
}

func TestNewAgentGetsBootstrapPromptAndDefaultSession(t *testing.T) {
	p := New(model.NewMockModel("mock"))
	ctx := context.Background()

	agent, err := p.Store().CreateAgent(ctx, "helper", "Helper")
	require.NoError(t, err)
	assert.NotEmpty(t, agent.SystemPrompt)

	sessions, err := p.Store().ListSessions(ctx, "helper")
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	assert.Equal(t, core.DefaultSession, sessions[0].ID)
}
