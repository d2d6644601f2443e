// Package search is the deck search index: a derived, read-only projection
// of the mirrored owned and public decks, rebuilt in full on every mirror
// rebuild and queried on every keystroke.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/flashcardexchange/flashcards/internal/domain"
	"github.com/flashcardexchange/flashcards/internal/logger"
)

// ErrClosed is returned by queries against a closed index.
var ErrClosed = errors.New("search index closed")

// View is what the search overlay shows for one query.
type View struct {
	Query   string
	Results []*domain.Deck
	Visible bool
	Dimmed  bool
}

// Index wraps an in-memory Bleve index over one corpus of decks.
//
// Thread safety: all methods are safe for concurrent use. Rebuild swaps in a
// freshly built index, so queries never see a half-built corpus.
type Index struct {
	mapping mapping.IndexMapping
	logger  *slog.Logger

	mu       sync.RWMutex
	index    bleve.Index
	decks    map[string]*domain.Deck
	position map[string]int
	gen      uint64
	closed   bool
}

// New creates an empty index.
func New(log *slog.Logger) (*Index, error) {
	m, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{
		mapping:  m,
		logger:   logger.OrDiscard(log),
		index:    idx,
		decks:    map[string]*domain.Deck{},
		position: map[string]int{},
	}, nil
}

// Rebuild replaces the corpus. gen is the mirror generation the corpus was
// taken from; a rebuild older than the one already applied is ignored, so
// the index always reflects the latest snapshot even when rebuilds race.
func (i *Index) Rebuild(gen uint64, corpus []*domain.Deck) error {
	fresh, err := bleve.NewMemOnly(i.mapping)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	decks := make(map[string]*domain.Deck, len(corpus))
	position := make(map[string]int, len(corpus))

	batch := fresh.NewBatch()
	for _, d := range corpus {
		if _, dup := position[d.ID]; dup {
			continue
		}
		position[d.ID] = len(position)
		decks[d.ID] = d
		if err := batch.Index(d.ID, toDocument(d)); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("batch index %s: %w", d.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("commit batch: %w", err)
	}

	i.mu.Lock()
	if i.closed || gen < i.gen {
		i.mu.Unlock()
		_ = fresh.Close()
		return nil
	}
	old := i.index
	i.index, i.decks, i.position, i.gen = fresh, decks, position, gen
	i.mu.Unlock()

	if err := old.Close(); err != nil {
		i.logger.Warn("closing replaced search index", "error", err)
	}
	rebuildsTotal.Inc()
	i.logger.Debug("search index rebuilt", "gen", gen, "decks", len(decks))
	return nil
}

// Query returns the overlay view for q. A blank query hides the overlay and
// undims the dashboard. Otherwise every deck whose title, description or any
// tag contains q (ignoring case) is returned in corpus order.
func (i *Index) Query(q string) (*View, error) {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return &View{Query: q}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, ErrClosed
	}

	req := bleve.NewSearchRequestOptions(substringQuery(trimmed), max(len(i.decks), 1), 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]*domain.Deck, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if d, ok := i.decks[hit.ID]; ok {
			results = append(results, d)
		}
	}
	slices.SortFunc(results, func(a, b *domain.Deck) int {
		return i.position[a.ID] - i.position[b.ID]
	})

	queriesTotal.Inc()
	return &View{Query: q, Results: results, Visible: true, Dimmed: true}, nil
}

// Gen returns the mirror generation of the current corpus.
func (i *Index) Gen() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.gen
}

// Len returns the number of indexed decks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.decks)
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.index.Close()
}

// substringQuery matches terms containing q on any searchable field. Each
// field is one whole-value term, so the pattern must also span line breaks.
func substringQuery(q string) query.Query {
	pattern := "(?s).*" + regexp.QuoteMeta(strings.ToLower(q)) + ".*"

	fields := make([]query.Query, 0, len(searchableFields))
	for _, f := range searchableFields {
		rq := bleve.NewRegexpQuery(pattern)
		rq.SetField(f)
		fields = append(fields, rq)
	}
	return bleve.NewDisjunctionQuery(fields...)
}

func toDocument(d *domain.Deck) map[string]any {
	doc := map[string]any{
		fieldDeckID:      d.ID,
		fieldTitle:       d.Title,
		fieldDescription: d.Description,
	}
	if len(d.Tags) > 0 {
		doc[fieldTags] = d.Tags
	}
	return doc
}
