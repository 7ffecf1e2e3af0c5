package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSession is the reserved session id that always exists for an agent.
const DefaultSession = "default"

// Agent is a named persona with its own system prompt, sessions and remote
// tool server configuration.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// Session is one named conversation thread belonging to an agent. The message
// log itself is stored separately; a Session record carries timestamps and
// the monotonically accumulating usage counters.
type Session struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Usage   Usage     `json:"usage"`
}

// Transport selects how a remote tool server is reached.
type Transport string

const (
	// TransportStreamableHTTP is the MCP streamable HTTP transport.
	TransportStreamableHTTP Transport = "streamable-http"
	// TransportSSE is the MCP server-sent-events transport.
	TransportSSE Transport = "sse"
)

// ServerConfig describes one remote tool server configured on an agent.
type ServerConfig struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Transport Transport         `json:"transport"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	Enabled   bool              `json:"enabled"`
}

// Validate checks the invariants every stored server config must satisfy:
// non-empty id and URL, and a known transport.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: server id must not be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: server url must not be empty", ErrInvalidInput)
	}
	switch c.Transport {
	case TransportStreamableHTTP, TransportSSE:
		return nil
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidInput, c.Transport)
	}
}
