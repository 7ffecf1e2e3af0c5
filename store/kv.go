package store

import "context"

// KV is the minimal durable data store contract the Store is built on. Every
// mutation is a single call; the backing store provides per-key atomicity for
// appends and field writes. Implementations must be safe for concurrent use.
type KV interface {
	// Exists reports whether key holds any value.
	Exists(ctx context.Context, key string) (bool, error)

	// SAdd adds members to the set at key, creating it if absent.
	SAdd(ctx context.Context, key string, members ...string) error
	// SMembers returns every member of the set at key (unspecified order).
	SMembers(ctx context.Context, key string) ([]string, error)
	// SScan pages through the set at key. A returned cursor of 0 means the
	// iteration is complete. Backends may return duplicate members across
	// pages; callers must deduplicate.
	SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error)

	// HGetAll returns the full field map at key (empty map if absent).
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet writes the given fields into the hash at key.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// RPush appends values to the end of the list at key.
	RPush(ctx context.Context, key string, values ...string) error
	// LRange reads the list at key from start to stop inclusive; negative
	// indices count from the end (Redis semantics).
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Del removes the given keys.
	Del(ctx context.Context, keys ...string) error
}
