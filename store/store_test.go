package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(NewMemoryKV(), func(o *Options) {
		o.BootstrapPrompt = func() (string, error) { return "You are a helpful assistant.", nil }
	})
}

func TestCreateAgent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	agent, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)
	assert.Equal(t, "ops", agent.ID)
	assert.Equal(t, "You are a helpful assistant.", agent.SystemPrompt)

	// Default session exists immediately.
	sessions, err := st.ListSessions(ctx, "ops")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, core.DefaultSession, sessions[0].ID)

	prompt, err := st.GetSystemPrompt(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", prompt)
}

func TestCreateAgent_Errors(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateAgent(ctx, "  ", "Ops")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = st.CreateAgent(ctx, "ops", " ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)
	_, err = st.CreateAgent(ctx, "ops", "Other")
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestListAgents_SortedByName(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for _, a := range [][2]string{{"z", "alpha"}, {"a", "Zulu"}, {"m", "Beta"}} {
		_, err := st.CreateAgent(ctx, a[0], a[1])
		require.NoError(t, err)
	}
	agents, err := st.ListAgents(ctx)
	require.NoError(t, err)
	names := []string{agents[0].Name, agents[1].Name, agents[2].Name}
	// Case-sensitive lexical order: uppercase sorts before lowercase.
	assert.Equal(t, []string{"Beta", "Zulu", "alpha"}, names)
}

func TestUnknownAgent_NotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.GetSystemPrompt(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = st.ListSessions(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	err = st.AppendMessage(ctx, "ghost", core.DefaultSession, core.NewUserMessage("hi"))
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = st.GetUsage(ctx, "ghost", core.DefaultSession)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateSystemPrompt(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	require.NoError(t, st.UpdateSystemPrompt(ctx, "ops", "You are Ops, the on-call bot."))
	prompt, err := st.GetSystemPrompt(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "You are Ops, the on-call bot.", prompt)

	assert.ErrorIs(t, st.UpdateSystemPrompt(ctx, "ops", "   "), core.ErrInvalidInput)
	assert.ErrorIs(t, st.UpdateSystemPrompt(ctx, "ghost", "x"), core.ErrNotFound)
}

func TestLazySessionCreation_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	require.NoError(t, st.AppendMessage(ctx, "ops", "scratch", core.NewUserMessage("hello")))
	require.NoError(t, st.AppendMessage(ctx, "ops", "scratch", core.NewUserMessage("again")))

	sessions, err := st.ListSessions(ctx, "ops")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, core.DefaultSession, sessions[0].ID)
	assert.Equal(t, "scratch", sessions[1].ID)
}

func TestAppendOnlyTranscript(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	texts := []string{"one", "two", "three", "four"}
	for _, txt := range texts {
		require.NoError(t, st.AppendMessage(ctx, "ops", core.DefaultSession, core.NewUserMessage(txt)))
	}

	msgs, err := st.GetMessages(ctx, "ops", core.DefaultSession)
	require.NoError(t, err)
	require.Len(t, msgs, len(texts))
	for i, txt := range texts {
		assert.Equal(t, txt, msgs[i].Text())
		assert.Equal(t, core.RoleUser, msgs[i].Role)
	}

	// Empty batch is a no-op.
	require.NoError(t, st.AppendMessages(ctx, "ops", core.DefaultSession, nil))
	msgs, err = st.GetMessages(ctx, "ops", core.DefaultSession)
	require.NoError(t, err)
	assert.Len(t, msgs, len(texts))
}

func TestUsageAccumulation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	deltas := []core.Usage{
		{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		{InputTokens: 2, ReasoningTokens: 4, OutputTokens: 1, TotalTokens: 7},
		{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}
	want := core.Usage{}
	for _, d := range deltas {
		require.NoError(t, st.AddUsage(ctx, "ops", core.DefaultSession, d))
		want = want.Add(d)
	}
	got, err := st.GetUsage(ctx, "ops", core.DefaultSession)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStartFreshSemantics(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	require.NoError(t, st.AppendMessage(ctx, "ops", core.DefaultSession, core.NewUserMessage("hello")))
	require.NoError(t, st.AddUsage(ctx, "ops", core.DefaultSession, core.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}))

	require.NoError(t, st.ClearMessages(ctx, "ops", core.DefaultSession))

	msgs, err := st.GetMessages(ctx, "ops", core.DefaultSession)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	usage, err := st.GetUsage(ctx, "ops", core.DefaultSession)
	require.NoError(t, err)
	assert.True(t, usage.IsZero())

	sessions, err := st.ListSessions(ctx, "ops")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, core.DefaultSession, sessions[0].ID)
}

func TestServerCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	search := core.ServerConfig{
		ID:        "search1",
		Name:      "Search",
		Transport: core.TransportStreamableHTTP,
		URL:       "https://tools.example.com/mcp",
		Headers:   map[string]string{"Authorization": "Bearer token"},
		Enabled:   true,
	}

	list, err := st.AddServer(ctx, "ops", search)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Duplicate id is rejected and the list stays unchanged.
	_, err = st.AddServer(ctx, "ops", search)
	assert.ErrorIs(t, err, core.ErrConflict)
	list, err = st.ListServers(ctx, "ops")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Deleting an id that was never added fails and changes nothing.
	_, err = st.DeleteServer(ctx, "ops", "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	list, err = st.ListServers(ctx, "ops")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Update of an unknown id fails.
	_, err = st.UpdateServer(ctx, "ops", "nope", search)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Update colliding with a different server fails.
	docs := search
	docs.ID = "docs"
	docs.Name = "Docs"
	_, err = st.AddServer(ctx, "ops", docs)
	require.NoError(t, err)
	renamed := docs
	renamed.ID = "search1"
	_, err = st.UpdateServer(ctx, "ops", "docs", renamed)
	assert.ErrorIs(t, err, core.ErrConflict)

	// Updating the same record (keeping its id) is allowed.
	docs.Name = "Documentation"
	list, err = st.UpdateServer(ctx, "ops", "docs", docs)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Documentation", list[0].Name) // name-sorted

	list, err = st.DeleteServer(ctx, "ops", "docs")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "search1", list[0].ID)
}

func TestServers_CorruptEntriesSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.CreateAgent(ctx, "ops", "Ops")
	require.NoError(t, err)

	// One valid entry, one malformed object, one junk value.
	raw := `[{"id":"good","name":"Good","transport":"sse","url":"https://x","enabled":true},{"id":""},42]`
	require.NoError(t, st.KV().HSet(ctx, st.keyAgent("ops"), map[string]string{fieldServers: raw}))

	servers, err := st.Servers(ctx, "ops")
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "good", servers[0].ID)
}
