// Package runner drives one conversation turn end to end: persist the user
// message, assemble the agent's tools, run the model's tool loop, stream text
// to the caller and persist the produced messages and usage exactly once.
package runner
