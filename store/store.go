package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/prompts"
)

// Options configures a Store.
type Options struct {
	// Namespace prefixes every key written by this store.
	Namespace string
	// BootstrapPrompt supplies the system prompt new agents are seeded with.
	// Defaults to prompts.Default.
	BootstrapPrompt func() (string, error)
	// Clock supplies timestamps; overridable for tests.
	Clock func() time.Time
	// Logger receives structured store events.
	Logger logging.Logger
}

// Store is the durable registry of agents, sessions, message logs and usage
// counters. All methods are safe for concurrent use; every mutation is a
// single call into the KV, which provides per-key atomicity.
type Store struct {
	kv        KV
	ns        string
	bootstrap func() (string, error)
	now       func() time.Time
	logger    logging.Logger
}

// New constructs a Store on top of the given KV.
func New(kv KV, optFns ...func(o *Options)) *Store {
	opts := Options{
		Namespace:       "parley",
		BootstrapPrompt: prompts.Default,
		Clock:           time.Now,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		kv:        kv,
		ns:        opts.Namespace,
		bootstrap: opts.BootstrapPrompt,
		now:       opts.Clock,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Key scheme. Everything an agent owns lives under <ns>:agent:<id>.
func (s *Store) keyAgents() string { return s.ns + ":agents" }
func (s *Store) keyAgent(agentID string) string {
	return s.ns + ":agent:" + agentID
}
func (s *Store) keySessions(agentID string) string {
	return s.keyAgent(agentID) + ":sessions"
}
func (s *Store) keySession(agentID, sessionID string) string {
	return s.keyAgent(agentID) + ":session:" + sessionID
}
func (s *Store) keyMessages(agentID, sessionID string) string {
	return s.keySession(agentID, sessionID) + ":messages"
}

const (
	fieldName    = "name"
	fieldPrompt  = "prompt"
	fieldServers = "servers"
	fieldCreated = "created"
	fieldUpdated = "updated"

	fieldUsageInput     = "usage_input"
	fieldUsageReasoning = "usage_reasoning"
	fieldUsageOutput    = "usage_output"
	fieldUsageTotal     = "usage_total"
)

// CreateAgent registers a new agent, seeds its system prompt from the
// bootstrap default and creates the reserved default session.
func (s *Store) CreateAgent(ctx context.Context, id, name string) (core.Agent, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return core.Agent{}, fmt.Errorf("%w: agent id and name must not be blank", core.ErrInvalidInput)
	}

	exists, err := s.kv.Exists(ctx, s.keyAgent(id))
	if err != nil {
		return core.Agent{}, errors.Wrap(err, "check agent existence")
	}
	if exists {
		return core.Agent{}, fmt.Errorf("%w: agent %q already exists", core.ErrConflict, id)
	}

	prompt, err := s.bootstrap()
	if err != nil {
		return core.Agent{}, errors.Wrap(err, "load bootstrap prompt")
	}

	now := s.now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	if err := s.kv.HSet(ctx, s.keyAgent(id), map[string]string{
		fieldName:    name,
		fieldPrompt:  prompt,
		fieldServers: "[]",
		fieldCreated: stamp,
		fieldUpdated: stamp,
	}); err != nil {
		return core.Agent{}, errors.Wrap(err, "write agent")
	}
	if err := s.kv.SAdd(ctx, s.keyAgents(), id); err != nil {
		return core.Agent{}, errors.Wrap(err, "register agent id")
	}
	if err := s.createSession(ctx, id, core.DefaultSession); err != nil {
		return core.Agent{}, err
	}

	s.logger.Info("store.agent.create", "agent_id", id, "name", name)
	return core.Agent{ID: id, Name: name, SystemPrompt: prompt, Created: now, Updated: now}, nil
}

// GetAgent loads a single agent record.
func (s *Store) GetAgent(ctx context.Context, agentID string) (core.Agent, error) {
	fields, err := s.agentFields(ctx, agentID)
	if err != nil {
		return core.Agent{}, err
	}
	return agentFromFields(agentID, fields), nil
}

// ListAgents returns all agents sorted by display name (case-sensitive
// lexical order).
func (s *Store) ListAgents(ctx context.Context) ([]core.Agent, error) {
	ids, err := s.kv.SMembers(ctx, s.keyAgents())
	if err != nil {
		return nil, errors.Wrap(err, "list agent ids")
	}
	agents := make([]core.Agent, 0, len(ids))
	for _, id := range ids {
		fields, err := s.kv.HGetAll(ctx, s.keyAgent(id))
		if err != nil {
			return nil, errors.Wrapf(err, "load agent %s", id)
		}
		if len(fields) == 0 {
			// Registered id without a record; skip rather than fail the listing.
			s.logger.Warn("store.agent.missing_record", "agent_id", id)
			continue
		}
		agents = append(agents, agentFromFields(id, fields))
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}

// GetSystemPrompt returns the agent's current system prompt.
func (s *Store) GetSystemPrompt(ctx context.Context, agentID string) (string, error) {
	fields, err := s.agentFields(ctx, agentID)
	if err != nil {
		return "", err
	}
	return fields[fieldPrompt], nil
}

// UpdateSystemPrompt rewrites the agent's system prompt.
func (s *Store) UpdateSystemPrompt(ctx context.Context, agentID, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("%w: system prompt must not be blank", core.ErrInvalidInput)
	}
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return err
	}
	if err := s.kv.HSet(ctx, s.keyAgent(agentID), map[string]string{
		fieldPrompt:  prompt,
		fieldUpdated: s.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return errors.Wrap(err, "update system prompt")
	}
	s.logger.Info("store.agent.prompt_update", "agent_id", agentID)
	return nil
}

// ListSessions returns the agent's sessions with the default session first
// and the rest sorted lexically. If the agent has no sessions yet, the
// default session is lazily created.
func (s *Store) ListSessions(ctx context.Context, agentID string) ([]core.Session, error) {
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return nil, err
	}
	ids, err := s.kv.SMembers(ctx, s.keySessions(agentID))
	if err != nil {
		return nil, errors.Wrap(err, "list session ids")
	}
	if len(ids) == 0 {
		if err := s.createSession(ctx, agentID, core.DefaultSession); err != nil {
			return nil, err
		}
		ids = []string{core.DefaultSession}
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i] == core.DefaultSession {
			return true
		}
		if ids[j] == core.DefaultSession {
			return false
		}
		return ids[i] < ids[j]
	})
	sessions := make([]core.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.readSession(ctx, agentID, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// AppendMessage appends a single message to the session log.
func (s *Store) AppendMessage(ctx context.Context, agentID, sessionID string, msg core.Message) error {
	return s.AppendMessages(ctx, agentID, sessionID, []core.Message{msg})
}

// AppendMessages appends messages to the end of the session log in order,
// lazily creating the session. An empty batch is a no-op with no side
// effects.
func (s *Store) AppendMessages(ctx context.Context, agentID, sessionID string, msgs []core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return err
	}
	if err := s.ensureSession(ctx, agentID, sessionID); err != nil {
		return err
	}
	encoded := make([]string, len(msgs))
	for i, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "encode message")
		}
		encoded[i] = string(data)
	}
	if err := s.kv.RPush(ctx, s.keyMessages(agentID, sessionID), encoded...); err != nil {
		return errors.Wrap(err, "append messages")
	}
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if err := s.kv.HSet(ctx, s.keySession(agentID, sessionID), map[string]string{fieldUpdated: stamp}); err != nil {
		return errors.Wrap(err, "touch session")
	}
	if err := s.kv.HSet(ctx, s.keyAgent(agentID), map[string]string{fieldUpdated: stamp}); err != nil {
		return errors.Wrap(err, "touch agent")
	}
	s.logger.Debug("store.messages.append", "agent_id", agentID, "session_id", sessionID, "count", len(msgs))
	return nil
}

// GetMessages returns the full ordered message log of a session (possibly
// empty).
func (s *Store) GetMessages(ctx context.Context, agentID, sessionID string) ([]core.Message, error) {
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return nil, err
	}
	raw, err := s.kv.LRange(ctx, s.keyMessages(agentID, sessionID), 0, -1)
	if err != nil {
		return nil, errors.Wrap(err, "read messages")
	}
	msgs := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, errors.Wrap(err, "decode message")
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// ClearMessages truncates the session log and resets the usage counters to
// zero. The session record itself remains.
func (s *Store) ClearMessages(ctx context.Context, agentID, sessionID string) error {
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return err
	}
	if err := s.ensureSession(ctx, agentID, sessionID); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, s.keyMessages(agentID, sessionID)); err != nil {
		return errors.Wrap(err, "clear messages")
	}
	if err := s.kv.HSet(ctx, s.keySession(agentID, sessionID), map[string]string{
		fieldUsageInput:     "0",
		fieldUsageReasoning: "0",
		fieldUsageOutput:    "0",
		fieldUsageTotal:     "0",
		fieldUpdated:        s.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return errors.Wrap(err, "reset usage")
	}
	s.logger.Info("store.messages.clear", "agent_id", agentID, "session_id", sessionID)
	return nil
}

// GetUsage returns the session's accumulated usage counters.
func (s *Store) GetUsage(ctx context.Context, agentID, sessionID string) (core.Usage, error) {
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return core.Usage{}, err
	}
	if err := s.ensureSession(ctx, agentID, sessionID); err != nil {
		return core.Usage{}, err
	}
	sess, err := s.readSession(ctx, agentID, sessionID)
	if err != nil {
		return core.Usage{}, err
	}
	return sess.Usage, nil
}

// AddUsage adds delta to the session's running usage totals. The
// read-modify-write is a single logical update per session; concurrent
// completions on the same session are a documented best-effort case, not a
// strict no-lost-update guarantee.
func (s *Store) AddUsage(ctx context.Context, agentID, sessionID string, delta core.Usage) error {
	if _, err := s.agentFields(ctx, agentID); err != nil {
		return err
	}
	if err := s.ensureSession(ctx, agentID, sessionID); err != nil {
		return err
	}
	sess, err := s.readSession(ctx, agentID, sessionID)
	if err != nil {
		return err
	}
	sum := sess.Usage.Add(delta)
	if err := s.kv.HSet(ctx, s.keySession(agentID, sessionID), map[string]string{
		fieldUsageInput:     strconv.FormatInt(sum.InputTokens, 10),
		fieldUsageReasoning: strconv.FormatInt(sum.ReasoningTokens, 10),
		fieldUsageOutput:    strconv.FormatInt(sum.OutputTokens, 10),
		fieldUsageTotal:     strconv.FormatInt(sum.TotalTokens, 10),
		fieldUpdated:        s.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return errors.Wrap(err, "write usage")
	}
	return nil
}

// KV exposes the underlying store for sibling components that share the
// namespace scheme (the memory adapter keeps its documents next to the
// agent's other keys).
func (s *Store) KV() KV { return s.kv }

// Namespace returns the key prefix this store writes under.
func (s *Store) Namespace() string { return s.ns }

// agentFields loads the agent hash, failing with core.ErrNotFound when the
// agent does not exist.
func (s *Store) agentFields(ctx context.Context, agentID string) (map[string]string, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("%w: agent id must not be blank", core.ErrInvalidInput)
	}
	fields, err := s.kv.HGetAll(ctx, s.keyAgent(agentID))
	if err != nil {
		return nil, errors.Wrapf(err, "load agent %s", agentID)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: agent %q", core.ErrNotFound, agentID)
	}
	return fields, nil
}

// ensureSession lazily creates the session record if absent. Repeated calls
// are idempotent.
func (s *Store) ensureSession(ctx context.Context, agentID, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id must not be blank", core.ErrInvalidInput)
	}
	exists, err := s.kv.Exists(ctx, s.keySession(agentID, sessionID))
	if err != nil {
		return errors.Wrap(err, "check session existence")
	}
	if exists {
		return nil
	}
	return s.createSession(ctx, agentID, sessionID)
}

func (s *Store) createSession(ctx context.Context, agentID, sessionID string) error {
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if err := s.kv.HSet(ctx, s.keySession(agentID, sessionID), map[string]string{
		fieldCreated:        stamp,
		fieldUpdated:        stamp,
		fieldUsageInput:     "0",
		fieldUsageReasoning: "0",
		fieldUsageOutput:    "0",
		fieldUsageTotal:     "0",
	}); err != nil {
		return errors.Wrap(err, "create session")
	}
	if err := s.kv.SAdd(ctx, s.keySessions(agentID), sessionID); err != nil {
		return errors.Wrap(err, "register session id")
	}
	s.logger.Debug("store.session.create", "agent_id", agentID, "session_id", sessionID)
	return nil
}

func (s *Store) readSession(ctx context.Context, agentID, sessionID string) (core.Session, error) {
	fields, err := s.kv.HGetAll(ctx, s.keySession(agentID, sessionID))
	if err != nil {
		return core.Session{}, errors.Wrapf(err, "load session %s", sessionID)
	}
	if len(fields) == 0 {
		return core.Session{}, fmt.Errorf("%w: session %q", core.ErrNotFound, sessionID)
	}
	return core.Session{
		ID:      sessionID,
		Created: parseTime(fields[fieldCreated]),
		Updated: parseTime(fields[fieldUpdated]),
		Usage: core.Usage{
			InputTokens:     parseInt(fields[fieldUsageInput]),
			ReasoningTokens: parseInt(fields[fieldUsageReasoning]),
			OutputTokens:    parseInt(fields[fieldUsageOutput]),
			TotalTokens:     parseInt(fields[fieldUsageTotal]),
		},
	}, nil
}

func agentFromFields(id string, fields map[string]string) core.Agent {
	return core.Agent{
		ID:           id,
		Name:         fields[fieldName],
		SystemPrompt: fields[fieldPrompt],
		Created:      parseTime(fields[fieldCreated]),
		Updated:      parseTime(fields[fieldUpdated]),
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
