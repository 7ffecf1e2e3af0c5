package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// NaiveIndex is a process-local VectorIndex using case-insensitive term
// overlap as the relevance score. Suitable only for tests and demos; use
// ChromemIndex for real semantic retrieval.
type NaiveIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]string // agentID -> docID -> text
}

// NewNaiveIndex creates an empty in-memory index.
func NewNaiveIndex() *NaiveIndex {
	return &NaiveIndex{docs: make(map[string]map[string]string)}
}

// Upsert stores the document text under docID.
func (n *NaiveIndex) Upsert(_ context.Context, agentID, docID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	agentDocs, ok := n.docs[agentID]
	if !ok {
		agentDocs = make(map[string]string)
		n.docs[agentID] = agentDocs
	}
	agentDocs[docID] = text
	return nil
}

// Query scores every document by the fraction of query terms it contains.
func (n *NaiveIndex) Query(_ context.Context, agentID, query string, limit int) ([]Hit, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	var hits []Hit
	for docID, text := range n.docs[agentID] {
		lower := strings.ToLower(text)
		matched := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, Hit{Day: docID, Text: text, Score: float32(matched) / float32(len(terms))})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Day > hits[j].Day
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

var _ VectorIndex = (*NaiveIndex)(nil)
