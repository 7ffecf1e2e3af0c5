package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/tool"
)

// ScopedName builds the collision-free name a remote tool is exposed under:
// the sanitized server id and tool name joined by a double underscore.
func ScopedName(serverID, toolName string) string {
	return sanitize(serverID) + "__" + sanitize(toolName)
}

// sanitize replaces every rune outside [A-Za-z0-9_] with an underscore so
// scoped names satisfy the strictest provider tool-name charsets.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ToolSet is the assembled tool surface for one turn: local tools plus every
// enabled server's tools, indexed by name.
type ToolSet struct {
	tools  []tool.Tool
	byName map[string]tool.Tool
	conns  []Conn
}

// Assemble connects to each enabled server in configuration order and merges
// the discovered tools with the local ones. Any server failing to connect or
// discover aborts the whole assembly: connections opened so far are closed
// and an error wrapping core.ErrUpstream is returned.
func Assemble(ctx context.Context, connector Connector, servers []core.ServerConfig, local []tool.Tool) (*ToolSet, error) {
	ts := &ToolSet{byName: make(map[string]tool.Tool)}
	for _, t := range local {
		ts.add(t)
	}

	for _, cfg := range servers {
		if !cfg.Enabled {
			continue
		}
		conn, err := connector.Open(ctx, cfg)
		if err != nil {
			_ = ts.Close()
			return nil, fmt.Errorf("%w: server %s: %v", core.ErrUpstream, cfg.ID, err)
		}
		ts.conns = append(ts.conns, conn)
		for _, t := range conn.Tools() {
			ts.add(t)
		}
	}
	return ts, nil
}

func (ts *ToolSet) add(t tool.Tool) {
	ts.tools = append(ts.tools, t)
	ts.byName[t.Name()] = t
}

// Get looks a tool up by name.
func (ts *ToolSet) Get(name string) (tool.Tool, bool) {
	t, ok := ts.byName[name]
	return t, ok
}

// All returns the tools in assembly order (local first, then servers in
// configuration order).
func (ts *ToolSet) All() []tool.Tool { return ts.tools }

// Close closes every connection. Each close is attempted independently; the
// first error is returned after all connections have been tried.
func (ts *ToolSet) Close() error {
	var firstErr error
	for _, conn := range ts.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ts.conns = nil
	return firstErr
}
