package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryKV is a volatile KV implementation storing everything in process
// local maps. It is safe for concurrent access and best suited for tests or
// ephemeral demo setups.
type MemoryKV struct {
	mu     sync.RWMutex
	sets   map[string]map[string]struct{}
	hashes map[string]map[string]string
	lists  map[string][]string
}

// NewMemoryKV constructs an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		sets:   make(map[string]map[string]struct{}),
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
	}
}

// Exists reports whether key holds any value.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sets[key]; ok && len(s) > 0 {
		return true, nil
	}
	if h, ok := m.hashes[key]; ok && len(h) > 0 {
		return true, nil
	}
	if l, ok := m.lists[key]; ok && len(l) > 0 {
		return true, nil
	}
	return false, nil
}

// SAdd adds members to the set at key.
func (m *MemoryKV) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, member := range members {
		s[member] = struct{}{}
	}
	return nil
}

// SMembers returns every member of the set at key in sorted order. Sorting is
// stronger than the contract requires but keeps tests deterministic.
func (m *MemoryKV) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedMembersLocked(key), nil
}

// SScan pages through the sorted member snapshot; the cursor is the offset
// into that snapshot and 0 signals completion.
func (m *MemoryKV) SScan(_ context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.sortedMembersLocked(key)
	if count <= 0 {
		count = 10
	}
	start := int(cursor)
	if start >= len(members) {
		return nil, 0, nil
	}
	end := start + int(count)
	if end >= len(members) {
		return members[start:], 0, nil
	}
	return members[start:end], uint64(end), nil
}

func (m *MemoryKV) sortedMembersLocked(key string) []string {
	s := m.sets[key]
	members := make([]string, 0, len(s))
	for member := range s {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// HGetAll returns a copy of the field map at key.
func (m *MemoryKV) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.hashes[key]
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// HSet writes fields into the hash at key.
func (m *MemoryKV) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// RPush appends values to the list at key.
func (m *MemoryKV) RPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

// LRange reads the list at key from start to stop inclusive with Redis index
// semantics (negative indices count from the end).
func (m *MemoryKV) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l := m.lists[key]
	n := int64(len(l))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, l[start:stop+1])
	return out, nil
}

// Del removes the given keys.
func (m *MemoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.sets, key)
		delete(m.hashes, key)
		delete(m.lists, key)
	}
	return nil
}

var _ KV = (*MemoryKV)(nil)
