// Package core provides the foundational domain types shared by every other
// parley package:
//
//   - Messages (role-tagged, part-based conversation units)
//   - Usage (per-session token accounting)
//   - Agents, Sessions and remote tool server configuration
//   - The error taxonomy surfaced to callers
//
// The package intentionally keeps implementation concerns (persistence,
// discovery, generation) out of scope so that higher layers can depend on a
// small, stable vocabulary.
package core
