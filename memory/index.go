package memory

import "context"

// Hit is a single ranked search result from the vector index.
type Hit struct {
	Day   string  // calendar day identifier (YYYY-MM-DD)
	Text  string  // the day document's text at indexing time
	Score float32 // backend relevance score, higher is better
}

// VectorIndex is the opaque semantic index the adapter ranks searches with.
// Implementations must scope data per agent.
type VectorIndex interface {
	// Upsert indexes (or re-indexes) the document identified by docID.
	Upsert(ctx context.Context, agentID, docID, text string) error
	// Query returns up to limit documents ranked by relevance to query.
	Query(ctx context.Context, agentID, query string, limit int) ([]Hit, error)
}
