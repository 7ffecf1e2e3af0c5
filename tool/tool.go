// Package tool implements the function calling subsystem: structured
// capabilities an agent can invoke during generation, with schema validated
// arguments and uniform error codes.
package tool

import (
	"context"
	"fmt"

	"github.com/parleyhq/parley/internal/util"
)

// Tool is a callable capability exposed to the model.
//
// Implementations should use descriptive snake_case names, define a JSON
// object schema for their arguments, and be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments have been decoded from the model's
	// JSON but are validated here, not upstream.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ArgumentError reports a single argument that failed schema validation.
type ArgumentError = util.ArgumentError

// Error codes attached to ToolError for categorization.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError is the uniform error shape for failed tool invocations.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given code.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
