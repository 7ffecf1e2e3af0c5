package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/parleyhq/parley/core"
)

// MockTurn scripts one generation round of a MockModel.
type MockTurn struct {
	// Text is the assistant text for the round, streamed in Chunks when the
	// request asks for streaming (rune-by-rune if Chunks is empty).
	Text   string
	Chunks []string
	// ToolCalls, when set, makes the round finish with tool_calls instead of
	// stop.
	ToolCalls []core.ToolCall
	// Usage reported on the final response.
	Usage core.Usage
	// Err aborts the round before emitting anything.
	Err error
}

// MockModel replays scripted turns in order. Useful for tests and examples;
// safe for concurrent use, though scripted turns are consumed globally, not
// per caller.
type MockModel struct {
	info  Info
	mu    sync.Mutex
	turns []MockTurn
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock", SupportsTools: true},
	}
}

// Enqueue appends turns to the script.
func (m *MockModel) Enqueue(turns ...MockTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turns...)
}

// Generate implements Model by replaying the next scripted turn.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	var turn MockTurn
	var ok bool
	if len(m.turns) > 0 {
		turn, ok = m.turns[0], true
		m.turns = m.turns[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)

		if !ok {
			errCh <- fmt.Errorf("mock model: no scripted turn left")
			return
		}
		if turn.Err != nil {
			errCh <- turn.Err
			return
		}

		if req.Stream && turn.Text != "" {
			chunks := turn.Chunks
			if len(chunks) == 0 {
				for _, r := range turn.Text {
					chunks = append(chunks, string(r))
				}
			}
			for _, chunk := range chunks {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- Response{Partial: true, Message: core.NewAssistantMessage(chunk)}:
				}
			}
		}

		parts := make([]core.Part, 0, len(turn.ToolCalls)+1)
		if turn.Text != "" {
			parts = append(parts, core.TextPart{Text: turn.Text})
		}
		finish := "stop"
		for _, tc := range turn.ToolCalls {
			parts = append(parts, core.ToolCallPart{ToolCall: tc})
			finish = "tool_calls"
		}
		usage := turn.Usage
		out <- Response{
			Partial:      false,
			Message:      core.NewMessage(core.RoleAssistant, parts...),
			FinishReason: finish,
			Usage:        &usage,
		}
	}()
	return out, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

var _ Model = (*MockModel)(nil)
