// Package store implements the durable identity and session registry: agents,
// their sessions, per-session ordered message logs, usage counters and remote
// tool server configuration.
//
// Persistence is expressed against a small KV contract (sets, hashes and
// ordered lists under a stable key-naming scheme) so the same Store logic runs
// against Redis in production and an in-process map in tests.
package store
