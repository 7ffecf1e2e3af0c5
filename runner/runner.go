package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/mcp"
	"github.com/parleyhq/parley/memory"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/store"
	"github.com/parleyhq/parley/tool"
)

// Options configures a Runner.
type Options struct {
	// MaxToolRounds bounds how many tool-call rounds one turn may take before
	// the turn fails.
	MaxToolRounds int
	// ChunkBufferSize is the capacity of the text chunk channel.
	ChunkBufferSize int
	// LocalTools supplies the built-in tools for an agent. Defaults to none;
	// parley.New wires the standard built-ins.
	LocalTools func(agentID string) []tool.Tool
	// Logger receives structured turn events.
	Logger logging.Logger
}

// Runner executes conversation turns against one model.
type Runner struct {
	store      *store.Store
	mem        *memory.Adapter
	connector  mcp.Connector
	llm        model.Model
	maxRounds  int
	chunkBuf   int
	localTools func(agentID string) []tool.Tool
	logger     logging.Logger
}

// New constructs a Runner.
func New(st *store.Store, mem *memory.Adapter, connector mcp.Connector, llm model.Model, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxToolRounds:   8,
		ChunkBufferSize: 64,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.LocalTools == nil {
		opts.LocalTools = func(string) []tool.Tool { return nil }
	}
	return &Runner{
		store:      st,
		mem:        mem,
		connector:  connector,
		llm:        llm,
		maxRounds:  opts.MaxToolRounds,
		chunkBuf:   opts.ChunkBufferSize,
		localTools: opts.LocalTools,
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// TurnRequest describes one user turn.
type TurnRequest struct {
	AgentID   string
	SessionID string // empty means the default session
	Text      string
}

// Run executes a turn. It returns the turn id, a channel of text chunks and
// a channel carrying at most one terminal error; both channels close when the
// turn finishes. The synchronous error covers failures before generation
// starts (unknown agent, blank input, tool discovery).
//
// Once generation has started the turn runs to completion even if ctx is
// canceled: the caller stops receiving chunks, but produced messages and
// usage are still persisted.
func (r *Runner) Run(ctx context.Context, req TurnRequest) (string, <-chan string, <-chan error, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil, nil, fmt.Errorf("%w: turn text must not be blank", core.ErrInvalidInput)
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = core.DefaultSession
	}

	agent, err := r.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		return "", nil, nil, err
	}

	userMsg := core.NewUserMessage(req.Text)
	if err := r.store.AppendMessage(ctx, req.AgentID, sessionID, userMsg); err != nil {
		return "", nil, nil, err
	}

	// Generation and persistence outlive the caller's context.
	genCtx := context.WithoutCancel(ctx)

	servers, err := r.store.Servers(ctx, req.AgentID)
	if err != nil {
		return "", nil, nil, err
	}
	toolSet, err := mcp.Assemble(genCtx, r.connector, servers, r.localTools(req.AgentID))
	if err != nil {
		return "", nil, nil, err
	}

	transcript, err := r.store.GetMessages(ctx, req.AgentID, sessionID)
	if err != nil {
		_ = toolSet.Close()
		return "", nil, nil, err
	}

	turnID := core.NewID()
	chunks := make(chan string, r.chunkBuf)
	errs := make(chan error, 1)

	r.logger.Info("turn.start", "turn_id", turnID, "agent_id", req.AgentID, "session_id", sessionID, "tools", len(toolSet.All()))

	go r.loop(ctx, genCtx, turnID, req.AgentID, sessionID, agent.SystemPrompt, transcript, toolSet, chunks, errs)

	return turnID, chunks, errs, nil
}

// loop runs the generation rounds. callerCtx only gates chunk emission;
// genCtx drives generation, tool execution and persistence.
func (r *Runner) loop(
	callerCtx, genCtx context.Context,
	turnID, agentID, sessionID, systemPrompt string,
	transcript []core.Message,
	toolSet *mcp.ToolSet,
	chunks chan<- string,
	errs chan<- error,
) {
	defer close(chunks)
	defer close(errs)
	defer func() {
		if err := toolSet.Close(); err != nil {
			r.logger.Warn("turn.toolset_close", "turn_id", turnID, "error", err.Error())
		}
	}()

	defs := toolDefinitions(toolSet)
	var produced []core.Message
	var usage core.Usage
	emitting := true

	emit := func(text string) {
		if !emitting || text == "" {
			return
		}
		select {
		case chunks <- text:
		case <-callerCtx.Done():
			emitting = false
			r.logger.Debug("turn.caller_gone", "turn_id", turnID)
		}
	}

	for round := 0; round < r.maxRounds; round++ {
		respCh, errCh := r.llm.Generate(genCtx, model.Request{
			Instructions: systemPrompt,
			Messages:     transcript,
			Tools:        defs,
			Stream:       true,
		})

		var final model.Response
		streamed := false
		for resp := range respCh {
			if resp.Partial {
				streamed = true
				emit(resp.Message.Text())
				continue
			}
			final = resp
		}
		if err := <-errCh; err != nil {
			errs <- fmt.Errorf("%w: generation failed: %v", core.ErrUpstream, err)
			return
		}
		if final.Message.ID == "" {
			errs <- fmt.Errorf("%w: model stream ended without a final response", core.ErrUpstream)
			return
		}
		if final.Usage != nil {
			usage = usage.Add(*final.Usage)
		}

		calls := final.Message.ToolCalls()
		produced = append(produced, final.Message)
		transcript = append(transcript, final.Message)

		if len(calls) == 0 {
			if !streamed {
				emit(final.Message.Text())
			}
			r.finalize(genCtx, turnID, agentID, sessionID, produced, usage, errs)
			return
		}

		for _, call := range calls {
			result := r.execute(genCtx, toolSet, call)
			produced = append(produced, result)
			transcript = append(transcript, result)
		}
	}

	// Rounds exhausted: the work so far still counts, so persist it before
	// reporting the failure.
	r.finalize(genCtx, turnID, agentID, sessionID, produced, usage, errs)
	errs <- fmt.Errorf("%w: tool loop exceeded %d rounds", core.ErrUpstream, r.maxRounds)
}

// execute runs one tool call and always returns a tool result message, with
// failures recorded in the result's error field so the model can react.
func (r *Runner) execute(ctx context.Context, toolSet *mcp.ToolSet, call core.ToolCall) core.Message {
	t, ok := toolSet.Get(call.Name)
	if !ok {
		r.logger.Warn("turn.tool_unknown", "tool", call.Name)
		return core.NewToolResultMessage(call.ID, call.Name, nil,
			fmt.Errorf("unknown tool %q", call.Name))
	}

	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return core.NewToolResultMessage(call.ID, call.Name, nil,
				fmt.Errorf("invalid tool arguments: %v", err))
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		r.logger.Warn("turn.tool_error", "tool", call.Name, "error", err.Error())
		return core.NewToolResultMessage(call.ID, call.Name, nil, err)
	}
	r.logger.Debug("turn.tool_ok", "tool", call.Name)
	return core.NewToolResultMessage(call.ID, call.Name, result, nil)
}

// finalize persists the produced messages and the turn's usage in one pass.
func (r *Runner) finalize(
	ctx context.Context,
	turnID, agentID, sessionID string,
	produced []core.Message,
	usage core.Usage,
	errs chan<- error,
) {
	if err := r.store.AppendMessages(ctx, agentID, sessionID, produced); err != nil {
		errs <- err
		return
	}
	if !usage.IsZero() {
		if err := r.store.AddUsage(ctx, agentID, sessionID, usage); err != nil {
			errs <- err
			return
		}
	}
	r.logger.Info("turn.done", "turn_id", turnID, "agent_id", agentID, "session_id", sessionID,
		"messages", len(produced), "tokens", usage.TotalTokens)
}

// RunSync executes a turn and blocks until it completes, returning the
// concatenated streamed text.
func (r *Runner) RunSync(ctx context.Context, req TurnRequest) (string, error) {
	_, chunks, errs, err := r.Run(ctx, req)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return b.String(), err
	}
	return b.String(), nil
}

func toolDefinitions(ts *mcp.ToolSet) []model.ToolDefinition {
	tools := ts.All()
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
