package core

import (
	"encoding/json"
	"fmt"
)

// Part is one typed segment of a message. The unexported isPart marker keeps
// the set of part types closed so the wire codec can be exhaustive.
type Part interface{ isPart() }

// TextPart is a plain text segment.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // serialized JSON argument payload
}

// ToolCallPart wraps a ToolCall as a message part.
type ToolCallPart struct {
	ToolCall ToolCall `json:"tool_call"`
}

func (ToolCallPart) isPart() {}

// ToolResult describes the outcome of a previously requested tool call.
type ToolResult struct {
	ID     string `json:"id,omitempty"`     // matches the originating ToolCall ID
	Name   string `json:"name"`             // tool name as the model saw it
	Result any    `json:"result,omitempty"` // successful result (any JSON shape)
	Error  string `json:"error,omitempty"`  // populated on failure
}

// ToolResultPart wraps a ToolResult as a message part.
type ToolResultPart struct {
	ToolResult ToolResult `json:"tool_result"`
}

func (ToolResultPart) isPart() {}

// ToolApproval records a user decision on a tool call that required approval.
type ToolApproval struct {
	ID       string `json:"id"` // matches the pending ToolCall ID
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// ToolApprovalPart wraps a ToolApproval as a message part.
type ToolApprovalPart struct {
	ToolApproval ToolApproval `json:"tool_approval"`
}

func (ToolApprovalPart) isPart() {}

// partEnvelope is the wire form of a Part. Exactly one payload field is set,
// discriminated by Type.
type partEnvelope struct {
	Type         string        `json:"type"`
	Text         string        `json:"text,omitempty"`
	ToolCall     *ToolCall     `json:"tool_call,omitempty"`
	ToolResult   *ToolResult   `json:"tool_result,omitempty"`
	ToolApproval *ToolApproval `json:"tool_approval,omitempty"`
}

const (
	partTypeText         = "text"
	partTypeToolCall     = "tool_call"
	partTypeToolResult   = "tool_result"
	partTypeToolApproval = "tool_approval"
)

// marshalParts encodes parts into their discriminated wire form.
func marshalParts(parts []Part) ([]partEnvelope, error) {
	out := make([]partEnvelope, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case TextPart:
			out = append(out, partEnvelope{Type: partTypeText, Text: v.Text})
		case ToolCallPart:
			tc := v.ToolCall
			out = append(out, partEnvelope{Type: partTypeToolCall, ToolCall: &tc})
		case ToolResultPart:
			tr := v.ToolResult
			out = append(out, partEnvelope{Type: partTypeToolResult, ToolResult: &tr})
		case ToolApprovalPart:
			ta := v.ToolApproval
			out = append(out, partEnvelope{Type: partTypeToolApproval, ToolApproval: &ta})
		default:
			return nil, fmt.Errorf("unknown part type %T", p)
		}
	}
	return out, nil
}

// unmarshalParts decodes discriminated wire envelopes back into parts.
func unmarshalParts(envelopes []partEnvelope) ([]Part, error) {
	out := make([]Part, 0, len(envelopes))
	for _, e := range envelopes {
		switch e.Type {
		case partTypeText:
			out = append(out, TextPart{Text: e.Text})
		case partTypeToolCall:
			if e.ToolCall == nil {
				return nil, fmt.Errorf("tool_call part missing payload")
			}
			out = append(out, ToolCallPart{ToolCall: *e.ToolCall})
		case partTypeToolResult:
			if e.ToolResult == nil {
				return nil, fmt.Errorf("tool_result part missing payload")
			}
			out = append(out, ToolResultPart{ToolResult: *e.ToolResult})
		case partTypeToolApproval:
			if e.ToolApproval == nil {
				return nil, fmt.Errorf("tool_approval part missing payload")
			}
			out = append(out, ToolApprovalPart{ToolApproval: *e.ToolApproval})
		default:
			return nil, fmt.Errorf("unknown part type %q", e.Type)
		}
	}
	return out, nil
}

var _ json.Marshaler = Message{}
