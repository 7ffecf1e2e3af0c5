package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/store"
)

// Document is one calendar-day's accumulated notes for an agent. There is at
// most one document per agent per day; new entries append to its text.
type Document struct {
	Day     string    `json:"day"` // YYYY-MM-DD
	Text    string    `json:"text"`
	Entries int       `json:"entries"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// searchLimit is the number of ranked matches Search returns.
const searchLimit = 3

// Options configures an Adapter.
type Options struct {
	// Namespace prefixes every key written by the adapter. Match the session
	// store's namespace so an agent's memory lives next to its other keys.
	Namespace string
	// MaxPages bounds ListAll's cursor iteration against a misbehaving
	// backend.
	MaxPages int
	// PageSize is the SScan page hint.
	PageSize int64
	// Clock supplies timestamps; overridable for day-bucketing tests.
	Clock func() time.Time
	// Logger receives structured adapter events.
	Logger logging.Logger
}

// Adapter owns the per-agent memory documents: bodies and the day registry
// live in the durable KV, while the text is mirrored into a VectorIndex for
// ranked search.
type Adapter struct {
	kv       store.KV
	index    VectorIndex
	ns       string
	maxPages int
	pageSize int64
	now      func() time.Time
	logger   logging.Logger
}

// New constructs a memory Adapter.
func New(kv store.KV, index VectorIndex, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Namespace: "parley",
		MaxPages:  64,
		PageSize:  100,
		Clock:     time.Now,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{
		kv:       kv,
		index:    index,
		ns:       opts.Namespace,
		maxPages: opts.MaxPages,
		pageSize: opts.PageSize,
		now:      opts.Clock,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

func (a *Adapter) keyDays(agentID string) string {
	return a.ns + ":agent:" + agentID + ":memory:days"
}
func (a *Adapter) keyDay(agentID, day string) string {
	return a.ns + ":agent:" + agentID + ":memory:day:" + day
}

// Append adds a timestamped entry to today's document, creating it on the
// first entry of the day, and re-indexes the document text. Returns the day
// identifier and the document's new entry count.
func (a *Adapter) Append(ctx context.Context, agentID, text string) (string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, fmt.Errorf("%w: memory text must not be blank", core.ErrInvalidInput)
	}

	now := a.now().UTC()
	day := now.Format("2006-01-02")
	line := now.Format(time.RFC3339) + " " + text

	doc, exists, err := a.readDay(ctx, agentID, day)
	if err != nil {
		return "", 0, err
	}
	if exists {
		doc.Text = doc.Text + "\n" + line
		doc.Entries++
		doc.Updated = now
	} else {
		doc = Document{Day: day, Text: line, Entries: 1, Created: now, Updated: now}
	}

	if err := a.kv.HSet(ctx, a.keyDay(agentID, day), map[string]string{
		"text":    doc.Text,
		"entries": fmt.Sprintf("%d", doc.Entries),
		"created": doc.Created.Format(time.RFC3339Nano),
		"updated": doc.Updated.Format(time.RFC3339Nano),
	}); err != nil {
		return "", 0, errors.Wrap(err, "write memory document")
	}
	if err := a.kv.SAdd(ctx, a.keyDays(agentID), day); err != nil {
		return "", 0, errors.Wrap(err, "register memory day")
	}
	if err := a.index.Upsert(ctx, agentID, day, doc.Text); err != nil {
		return "", 0, fmt.Errorf("%w: index memory document: %v", core.ErrUpstream, err)
	}

	a.logger.Debug("memory.append", "agent_id", agentID, "day", day, "entries", doc.Entries)
	return day, doc.Entries, nil
}

// Search returns the top matches for query ranked by the index's relevance
// score, each carrying its day identifier, text and score.
func (a *Adapter) Search(ctx context.Context, agentID, query string) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query must not be blank", core.ErrInvalidInput)
	}
	hits, err := a.index.Query(ctx, agentID, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: memory search: %v", core.ErrUpstream, err)
	}
	return hits, nil
}

// ListAll returns every memory document for the agent sorted by day
// descending (most recent first). Cursor iteration is bounded: it stops after
// MaxPages pages or when a cursor repeats, so a misbehaving backend cannot
// trap the caller in an unbounded loop.
func (a *Adapter) ListAll(ctx context.Context, agentID string) ([]Document, error) {
	days := make(map[string]struct{})
	seen := map[uint64]struct{}{}
	var cursor uint64
	for page := 0; page < a.maxPages; page++ {
		members, next, err := a.kv.SScan(ctx, a.keyDays(agentID), cursor, a.pageSize)
		if err != nil {
			return nil, errors.Wrap(err, "scan memory days")
		}
		for _, day := range members {
			days[day] = struct{}{}
		}
		if next == 0 {
			break
		}
		if _, repeated := seen[next]; repeated {
			a.logger.Warn("memory.list.repeated_cursor", "agent_id", agentID, "cursor", next)
			break
		}
		seen[next] = struct{}{}
		cursor = next
	}

	ordered := make([]string, 0, len(days))
	for day := range days {
		ordered = append(ordered, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	docs := make([]Document, 0, len(ordered))
	for _, day := range ordered {
		doc, exists, err := a.readDay(ctx, agentID, day)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (a *Adapter) readDay(ctx context.Context, agentID, day string) (Document, bool, error) {
	fields, err := a.kv.HGetAll(ctx, a.keyDay(agentID, day))
	if err != nil {
		return Document{}, false, errors.Wrapf(err, "load memory day %s", day)
	}
	if len(fields) == 0 {
		return Document{}, false, nil
	}
	entries := 0
	fmt.Sscanf(fields["entries"], "%d", &entries)
	created, _ := time.Parse(time.RFC3339Nano, fields["created"])
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated"])
	return Document{
		Day:     day,
		Text:    fields["text"],
		Entries: entries,
		Created: created,
		Updated: updated,
	}, true, nil
}
