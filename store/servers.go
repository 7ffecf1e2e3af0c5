package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/parleyhq/parley/core"
)

// Servers returns the agent's remote tool server configs in stored
// (configuration) order. Discovery iterates this order.
func (s *Store) Servers(ctx context.Context, agentID string) ([]core.ServerConfig, error) {
	fields, err := s.agentFields(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return s.decodeServers(agentID, fields[fieldServers]), nil
}

// ListServers returns the agent's server configs sorted by display name.
func (s *Store) ListServers(ctx context.Context, agentID string) ([]core.ServerConfig, error) {
	servers, err := s.Servers(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return sortedByName(servers), nil
}

// AddServer appends a new server config. Fails with core.ErrConflict when the
// identifier collides with an existing server. Returns the resulting
// name-sorted list.
func (s *Store) AddServer(ctx context.Context, agentID string, cfg core.ServerConfig) ([]core.ServerConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	servers, err := s.Servers(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, existing := range servers {
		if existing.ID == cfg.ID {
			return nil, fmt.Errorf("%w: server %q already configured", core.ErrConflict, cfg.ID)
		}
	}
	servers = append(servers, cfg)
	if err := s.writeServers(ctx, agentID, servers); err != nil {
		return nil, err
	}
	s.logger.Info("store.server.add", "agent_id", agentID, "server_id", cfg.ID, "transport", string(cfg.Transport))
	return sortedByName(servers), nil
}

// UpdateServer replaces the config identified by serverID in place. Fails
// with core.ErrNotFound when serverID is unknown and with core.ErrConflict
// when the new identifier collides with a different existing server. Returns
// the resulting name-sorted list.
func (s *Store) UpdateServer(ctx context.Context, agentID, serverID string, cfg core.ServerConfig) ([]core.ServerConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	servers, err := s.Servers(ctx, agentID)
	if err != nil {
		return nil, err
	}
	target := -1
	for i, existing := range servers {
		if existing.ID == serverID {
			target = i
			continue
		}
		if existing.ID == cfg.ID {
			return nil, fmt.Errorf("%w: server %q already configured", core.ErrConflict, cfg.ID)
		}
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: server %q", core.ErrNotFound, serverID)
	}
	servers[target] = cfg
	if err := s.writeServers(ctx, agentID, servers); err != nil {
		return nil, err
	}
	s.logger.Info("store.server.update", "agent_id", agentID, "server_id", cfg.ID)
	return sortedByName(servers), nil
}

// DeleteServer removes the config identified by serverID. Fails with
// core.ErrNotFound when unknown. Returns the resulting name-sorted list.
func (s *Store) DeleteServer(ctx context.Context, agentID, serverID string) ([]core.ServerConfig, error) {
	servers, err := s.Servers(ctx, agentID)
	if err != nil {
		return nil, err
	}
	target := -1
	for i, existing := range servers {
		if existing.ID == serverID {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: server %q", core.ErrNotFound, serverID)
	}
	servers = append(servers[:target], servers[target+1:]...)
	if err := s.writeServers(ctx, agentID, servers); err != nil {
		return nil, err
	}
	s.logger.Info("store.server.delete", "agent_id", agentID, "server_id", serverID)
	return sortedByName(servers), nil
}

// decodeServers parses the persisted JSON array. Malformed entries are
// skipped rather than failing the whole read so one corrupt config cannot
// make the agent unusable.
func (s *Store) decodeServers(agentID, raw string) []core.ServerConfig {
	if raw == "" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("store.server.corrupt_list", "agent_id", agentID, "error", err.Error())
		return nil
	}
	servers := make([]core.ServerConfig, 0, len(entries))
	for _, entry := range entries {
		var cfg core.ServerConfig
		if err := json.Unmarshal(entry, &cfg); err != nil || cfg.Validate() != nil {
			s.logger.Warn("store.server.corrupt_entry", "agent_id", agentID)
			continue
		}
		servers = append(servers, cfg)
	}
	return servers
}

func (s *Store) writeServers(ctx context.Context, agentID string, servers []core.ServerConfig) error {
	data, err := json.Marshal(servers)
	if err != nil {
		return errors.Wrap(err, "encode servers")
	}
	if err := s.kv.HSet(ctx, s.keyAgent(agentID), map[string]string{
		fieldServers: string(data),
		fieldUpdated: s.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return errors.Wrap(err, "write servers")
	}
	return nil
}

func sortedByName(servers []core.ServerConfig) []core.ServerConfig {
	out := make([]core.ServerConfig, len(servers))
	copy(out, servers)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
