package tool

import (
	"context"

	"github.com/parleyhq/parley/internal/util"
	"github.com/parleyhq/parley/memory"
	"github.com/parleyhq/parley/store"
)

// Builtin returns the local tools every agent gets alongside its remote
// servers' tools, each bound to the given agent.
func Builtin(st *store.Store, mem *memory.Adapter, agentID string) []Tool {
	return []Tool{
		NewListSessionsTool(st, agentID),
		NewUpdatePersonaTool(st, agentID),
		NewMemoryAppendTool(mem, agentID),
		NewMemorySearchTool(mem, agentID),
	}
}

// NewListSessionsTool exposes the agent's session identifiers.
func NewListSessionsTool(st *store.Store, agentID string) Tool {
	return NewFunctionTool(
		"list_sessions",
		"List the identifiers of all conversation sessions belonging to this agent.",
		util.ObjectSchema(map[string]any{}),
		func(ctx context.Context, _ map[string]any) (any, error) {
			sessions, err := st.ListSessions(ctx, agentID)
			if err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(sessions))
			for _, s := range sessions {
				ids = append(ids, s.ID)
			}
			return map[string]any{"sessions": ids}, nil
		},
	)
}

// NewUpdatePersonaTool lets the agent rewrite its own system prompt.
func NewUpdatePersonaTool(st *store.Store, agentID string) Tool {
	return NewFunctionTool(
		"update_persona",
		"Replace this agent's system prompt with a new persona. Takes effect on the next turn.",
		util.ObjectSchema(map[string]any{
			"prompt": util.StringProperty("The full replacement system prompt."),
		}, "prompt"),
		func(ctx context.Context, args map[string]any) (any, error) {
			prompt, _ := args["prompt"].(string)
			if err := st.UpdateSystemPrompt(ctx, agentID, prompt); err != nil {
				return nil, err
			}
			return map[string]any{"updated": true}, nil
		},
	)
}

// NewMemoryAppendTool records a note in the agent's long-term memory.
func NewMemoryAppendTool(mem *memory.Adapter, agentID string) Tool {
	return NewFunctionTool(
		"memory_append",
		"Save a note to this agent's long-term memory. Notes accumulate into one document per day.",
		util.ObjectSchema(map[string]any{
			"text": util.StringProperty("The note to remember."),
		}, "text"),
		func(ctx context.Context, args map[string]any) (any, error) {
			text, _ := args["text"].(string)
			day, entries, err := mem.Append(ctx, agentID, text)
			if err != nil {
				return nil, err
			}
			return map[string]any{"day": day, "entries": entries}, nil
		},
	)
}

// NewMemorySearchTool retrieves the most relevant memory documents.
func NewMemorySearchTool(mem *memory.Adapter, agentID string) Tool {
	return NewFunctionTool(
		"memory_search",
		"Search this agent's long-term memory and return the most relevant day documents.",
		util.ObjectSchema(map[string]any{
			"query": util.StringProperty("What to look for."),
		}, "query"),
		func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			hits, err := mem.Search(ctx, agentID, query)
			if err != nil {
				return nil, err
			}
			results := make([]map[string]any, 0, len(hits))
			for _, h := range hits {
				results = append(results, map[string]any{
					"day":   h.Day,
					"text":  h.Text,
					"score": h.Score,
				})
			}
			return map[string]any{"results": results}, nil
		},
	)
}
