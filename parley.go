// Package parley provides a high-level façade over the conversation runner
// and its services (agent store, semantic memory, tool connectivity). Most
// applications interact with this package by:
//  1. Creating a Parley via New() with a model adapter (optionally overriding
//     the default in-memory services)
//  2. Creating agents and configuring their tool servers through Store()
//  3. Running turns asynchronously (Run) or synchronously (RunSync)
//
// All defaults are safe for local development and testing; production
// deployments typically supply a Redis-backed KV, a persistent vector index
// and a structured logger.
package parley

import (
	"context"

	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/mcp"
	"github.com/parleyhq/parley/memory"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/runner"
	"github.com/parleyhq/parley/store"
	"github.com/parleyhq/parley/tool"
)

// Options configures a Parley instance.
type Options struct {
	// KV backs agents, sessions, transcripts and memory documents. Defaults
	// to an in-memory implementation; use store.NewRedisKV for durability.
	KV store.KV

	// Namespace prefixes every key written to the KV.
	Namespace string

	// VectorIndex ranks memory searches. Defaults to the naive term-overlap
	// index; use memory.NewChromemIndex for real semantic retrieval.
	VectorIndex memory.VectorIndex

	// Connector opens connections to remote tool servers.
	Connector mcp.Connector

	// MaxToolRounds bounds the tool loop per turn.
	MaxToolRounds int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Parley is the high-level façade aggregating the runner and its services.
type Parley struct {
	store  *store.Store
	mem    *memory.Adapter
	runner *runner.Runner
}

// New creates a Parley instance driving the given model. Any unset service is
// initialized with an in-memory implementation.
func New(llm model.Model, optFns ...func(o *Options)) *Parley {
	opts := Options{
		KV:            store.NewMemoryKV(),
		Namespace:     "parley",
		VectorIndex:   memory.NewNaiveIndex(),
		Connector:     mcp.NewConnector(),
		MaxToolRounds: 8,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	st := store.New(opts.KV, func(o *store.Options) {
		o.Namespace = opts.Namespace
		o.Logger = logger
	})
	mem := memory.New(opts.KV, opts.VectorIndex, func(o *memory.Options) {
		o.Namespace = opts.Namespace
		o.Logger = logger
	})
	run := runner.New(st, mem, opts.Connector, llm, func(o *runner.Options) {
		o.MaxToolRounds = opts.MaxToolRounds
		o.Logger = logger
		o.LocalTools = func(agentID string) []tool.Tool {
			return tool.Builtin(st, mem, agentID)
		}
	})

	return &Parley{store: st, mem: mem, runner: run}
}

// Store exposes agent, session, transcript and server configuration
// management.
func (p *Parley) Store() *store.Store { return p.store }

// Memory exposes the agent memory adapter.
func (p *Parley) Memory() *memory.Adapter { return p.mem }

// Run starts an asynchronous turn returning the turn id plus text chunk and
// error channels.
func (p *Parley) Run(ctx context.Context, req runner.TurnRequest) (string, <-chan string, <-chan error, error) {
	return p.runner.Run(ctx, req)
}

// RunSync executes a turn and blocks until completion, returning the full
// response text.
func (p *Parley) RunSync(ctx context.Context, req runner.TurnRequest) (string, error) {
	return p.runner.RunSync(ctx, req)
}
