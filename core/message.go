package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role tags who authored a message.
type Role string

const (
	// RoleUser marks caller-authored input.
	RoleUser Role = "user"
	// RoleAssistant marks model-authored output, including tool call requests.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool execution results fed back into the loop.
	RoleTool Role = "tool"
)

// Message is the unit of a session transcript. Messages are append-only:
// once written to a session log they are never edited or reordered.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and UTC timestamp.
func NewMessage(role Role, parts ...Part) Message {
	return Message{ID: NewID(), Role: role, Parts: parts, Timestamp: time.Now().UTC()}
}

// NewUserMessage creates a user-authored plain text message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, TextPart{Text: text})
}

// NewAssistantMessage creates an assistant message with a single text part.
func NewAssistantMessage(text string) Message {
	return NewMessage(RoleAssistant, TextPart{Text: text})
}

// NewToolResultMessage records the completion result (or error) of a tool
// call. A non-nil err is copied into the result's Error field.
func NewToolResultMessage(callID, name string, result any, err error) Message {
	res := ToolResult{ID: callID, Name: name, Result: result}
	if err != nil {
		res.Error = err.Error()
	}
	return NewMessage(RoleTool, ToolResultPart{ToolResult: res})
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool call parts in their original order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc.ToolCall)
		}
	}
	return calls
}

// ToolResults returns the tool result parts in their original order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(ToolResultPart); ok {
			results = append(results, tr.ToolResult)
		}
	}
	return results
}

// messageWire is the persisted JSON form of a Message.
type messageWire struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Parts     []partEnvelope `json:"parts"`
	Timestamp time.Time      `json:"timestamp"`
}

// MarshalJSON encodes the message with discriminated part envelopes.
func (m Message) MarshalJSON() ([]byte, error) {
	parts, err := marshalParts(m.Parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageWire{ID: m.ID, Role: m.Role, Parts: parts, Timestamp: m.Timestamp})
}

// UnmarshalJSON decodes the discriminated wire form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parts, err := unmarshalParts(w.Parts)
	if err != nil {
		return err
	}
	m.ID = w.ID
	m.Role = w.Role
	m.Parts = parts
	m.Timestamp = w.Timestamp
	return nil
}

// NewID generates a unique identifier for messages and turns.
func NewID() string { return uuid.NewString() }
