package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/store"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAppendCreatesDayDocument(t *testing.T) {
	kv := store.NewMemoryKV()
	idx := NewNaiveIndex()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	adapter := New(kv, idx, func(o *Options) { o.Clock = fixedClock(now) })

	day, entries, err := adapter.Append(context.Background(), "scout", "prefers short answers")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", day)
	assert.Equal(t, 1, entries)

	docs, err := adapter.ListAll(context.Background(), "scout")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2025-03-10", docs[0].Day)
	assert.Equal(t, 1, docs[0].Entries)
	assert.Contains(t, docs[0].Text, "prefers short answers")
	assert.True(t, strings.HasPrefix(docs[0].Text, "2025-03-10T09:30:00Z "))
}

func TestAppendSameDayAccumulates(t *testing.T) {
	kv := store.NewMemoryKV()
	adapter := New(kv, NewNaiveIndex(), func(o *Options) {
		o.Clock = fixedClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	})

	_, _, err := adapter.Append(context.Background(), "scout", "first note")
	require.NoError(t, err)
	day, entries, err := adapter.Append(context.Background(), "scout", "second note")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", day)
	assert.Equal(t, 2, entries)

	docs, err := adapter.ListAll(context.Background(), "scout")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Entries)
	first := strings.Index(docs[0].Text, "first note")
	second := strings.Index(docs[0].Text, "second note")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
}

func TestAppendNewDayStartsNewDocument(t *testing.T) {
	kv := store.NewMemoryKV()
	current := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	adapter := New(kv, NewNaiveIndex(), func(o *Options) {
		o.Clock = func() time.Time { return current }
	})

	_, _, err := adapter.Append(context.Background(), "scout", "monday note")
	require.NoError(t, err)

	current = time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)
	day, entries, err := adapter.Append(context.Background(), "scout", "tuesday note")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", day)
	assert.Equal(t, 1, entries)

	docs, err := adapter.ListAll(context.Background(), "scout")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// Most recent day first.
	assert.Equal(t, "2025-03-11", docs[0].Day)
	assert.Equal(t, "2025-03-10", docs[1].Day)
}

func TestAppendBlankTextRejected(t *testing.T) {
	adapter := New(store.NewMemoryKV(), NewNaiveIndex())
	_, _, err := adapter.Append(context.Background(), "scout", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSearchReturnsTopThree(t *testing.T) {
	kv := store.NewMemoryKV()
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	adapter := New(kv, NewNaiveIndex(), func(o *Options) {
		o.Clock = func() time.Time { return current }
	})

	notes := []string{
		"user likes coffee in the morning",
		"user dislikes long meetings",
		"user drinks coffee at standup",
		"coffee machine on floor two",
		"project deadline is friday",
	}
	for _, note := range notes {
		_, _, err := adapter.Append(context.Background(), "scout", note)
		require.NoError(t, err)
		current = current.Add(24 * time.Hour)
	}

	hits, err := adapter.Search(context.Background(), "scout", "coffee")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.Contains(t, strings.ToLower(h.Text), "coffee")
	}
}

func TestSearchBlankQueryRejected(t *testing.T) {
	adapter := New(store.NewMemoryKV(), NewNaiveIndex())
	_, err := adapter.Search(context.Background(), "scout", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSearchIsolatedPerAgent(t *testing.T) {
	kv := store.NewMemoryKV()
	adapter := New(kv, NewNaiveIndex(), func(o *Options) {
		o.Clock = fixedClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	})

	_, _, err := adapter.Append(context.Background(), "alpha", "alpha secret plan")
	require.NoError(t, err)
	_, _, err = adapter.Append(context.Background(), "beta", "beta launch notes")
	require.NoError(t, err)

	hits, err := adapter.Search(context.Background(), "beta", "secret plan")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestListAllEmptyAgent(t *testing.T) {
	adapter := New(store.NewMemoryKV(), NewNaiveIndex())
	docs, err := adapter.ListAll(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListAllPaginates(t *testing.T) {
	kv := store.NewMemoryKV()
	current := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	adapter := New(kv, NewNaiveIndex(), func(o *Options) {
		o.Clock = func() time.Time { return current }
		o.PageSize = 2
	})

	for i := 0; i < 7; i++ {
		_, _, err := adapter.Append(context.Background(), "scout", "daily note")
		require.NoError(t, err)
		current = current.Add(24 * time.Hour)
	}

	docs, err := adapter.ListAll(context.Background(), "scout")
	require.NoError(t, err)
	require.Len(t, docs, 7)
	assert.Equal(t, "2025-01-07", docs[0].Day)
	assert.Equal(t, "2025-01-01", docs[6].Day)
}

func TestNaiveIndexRanking(t *testing.T) {
	idx := NewNaiveIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a", "2025-01-01", "go concurrency patterns"))
	require.NoError(t, idx.Upsert(ctx, "a", "2025-01-02", "go channels and goroutines concurrency"))
	require.NoError(t, idx.Upsert(ctx, "a", "2025-01-03", "cooking recipes"))

	hits, err := idx.Query(ctx, "a", "go concurrency channels", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "2025-01-02", hits[0].Day)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}
