package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
)

// ChromemIndex backs VectorIndex with chromem-go using one collection per
// agent. With a non-empty directory the index persists to disk; otherwise it
// lives in memory.
type ChromemIndex struct {
	mu      sync.Mutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// NewChromemIndex opens (or creates) the vector index. embedFn computes
// document and query embeddings, e.g. chromem.NewEmbeddingFuncOpenAI.
func NewChromemIndex(dir string, embedFn chromem.EmbeddingFunc) (*ChromemIndex, error) {
	if dir == "" {
		return &ChromemIndex{db: chromem.NewDB(), embedFn: embedFn}, nil
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, errors.Wrap(err, "open vector index")
	}
	return &ChromemIndex{db: db, embedFn: embedFn}, nil
}

func collectionName(agentID string) string {
	return fmt.Sprintf("agent_%s_memory", sanitizeCollection(agentID))
}

// sanitizeCollection keeps collection names within chromem's accepted charset.
func sanitizeCollection(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (c *ChromemIndex) collection(agentID string) (*chromem.Collection, error) {
	name := collectionName(agentID)
	col := c.db.GetCollection(name, c.embedFn)
	if col != nil {
		return col, nil
	}
	col, err := c.db.CreateCollection(name, nil, c.embedFn)
	if err != nil {
		return nil, errors.Wrapf(err, "create collection %s", name)
	}
	return col, nil
}

// Upsert indexes (or re-indexes) the document under docID.
func (c *ChromemIndex) Upsert(ctx context.Context, agentID, docID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collection(agentID)
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{ID: docID, Content: text})
}

// Query returns up to limit documents ranked by similarity to query.
func (c *ChromemIndex) Query(ctx context.Context, agentID, query string, limit int) ([]Hit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collection(agentID)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}
	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "vector query")
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{Day: r.ID, Text: r.Content, Score: r.Similarity})
	}
	return hits, nil
}

var _ VectorIndex = (*ChromemIndex)(nil)
