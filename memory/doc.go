// Package memory implements per-agent semantic memory: free-text notes
// accumulated into one document per calendar day, durably stored next to the
// agent's other keys and indexed in a vector store for ranked recall.
package memory
