package mirror

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/flashcardexchange/flashcards/internal/domain"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// ErrSignedOut is returned when subscribing a per-user scope without a viewer.
var ErrSignedOut = errors.New("scope requires a signed-in viewer")

// ErrClosed is returned when subscribing on a closed cache.
var ErrClosed = errors.New("mirror closed")

// Source is the live-query side of the remote store.
type Source interface {
	Subscribe(q store.Query, fn store.SnapshotFunc) (store.Unsubscribe, error)
}

// RebuildFunc is called after every rebuild with the scope that changed and
// the resulting view. It runs outside the cache lock.
type RebuildFunc func(scope Scope, view *View)

type subscription struct {
	unsub store.Unsubscribe
	deck  string
	token uint64
}

// Cache is the local mirror for one viewer. It is created when a session
// starts and closed when it ends; a closed cache ignores every callback.
type Cache struct {
	source    Source
	viewer    *domain.Identity
	logger    *slog.Logger
	onRebuild RebuildFunc

	mu        sync.Mutex
	subs      map[Scope]*subscription
	nextToken uint64
	closed    bool

	// Scope contents. Each is replaced, never mutated, by apply.
	owned          []*domain.Deck
	public         []*domain.Deck
	favorites      map[string]struct{}
	history        []*domain.HistoryEntry
	cardsDeckID    string
	cards          []*domain.Card
	commentsDeckID string
	comments       []*domain.Comment
	gen            uint64
}

// New creates a cache for viewer (nil for a signed-out guest).
func New(source Source, viewer *domain.Identity, onRebuild RebuildFunc, log *slog.Logger) *Cache {
	if onRebuild == nil {
		onRebuild = func(Scope, *View) {}
	}
	var v *domain.Identity
	if viewer != nil {
		c := *viewer
		v = &c
	}
	return &Cache{
		source:    source,
		viewer:    v,
		logger:    logger.OrDiscard(log),
		onRebuild: onRebuild,
		subs:      make(map[Scope]*subscription),
		favorites: map[string]struct{}{},
	}
}

// Viewer returns the identity the cache was built for.
func (c *Cache) Viewer() *domain.Identity {
	return c.viewer
}

// Subscribe attaches the live listener for scope, first releasing the
// listener that scope already had.
func (c *Cache) Subscribe(scope Scope, q store.Query) error {
	var deckID string
	switch scope {
	case ScopeOwnedDecks, ScopeFavorites, ScopeHistory:
		if c.viewer == nil {
			return ErrSignedOut
		}
	case ScopeCards:
		id, err := parentDeck(q.Collection, domain.CollectionCards)
		if err != nil {
			return err
		}
		deckID = id
	case ScopeComments:
		id, err := parentDeck(q.Collection, domain.CollectionComments)
		if err != nil {
			return err
		}
		deckID = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.releaseLocked(scope)

	c.nextToken++
	token := c.nextToken
	unsub, err := c.source.Subscribe(q, func(snap *store.Snapshot, err error) {
		c.apply(scope, token, snap, err)
	})
	if err != nil {
		subscriptionErrors.WithLabelValues(string(scope)).Inc()
		return err
	}
	c.subs[scope] = &subscription{unsub: unsub, token: token, deck: deckID}

	c.logger.Debug("scope subscribed", "scope", scope, "collection", q.Collection)
	return nil
}

// SubscribeSession attaches the scopes a session starts with: public decks
// always, plus owned decks, favorites and history for a signed-in viewer.
// Failures are joined; one failing scope does not stop the others.
func (c *Cache) SubscribeSession() error {
	errs := []error{c.Subscribe(ScopePublicDecks, PublicDecksQuery())}
	if c.viewer != nil {
		uid := c.viewer.UserID
		errs = append(errs,
			c.Subscribe(ScopeOwnedDecks, OwnedDecksQuery(uid)),
			c.Subscribe(ScopeFavorites, FavoritesQuery(uid)),
			c.Subscribe(ScopeHistory, HistoryQuery(uid)),
		)
	}
	return errors.Join(errs...)
}

// Unsubscribe releases scope's listener and empties the scope.
func (c *Cache) Unsubscribe(scope Scope) {
	c.mu.Lock()
	if c.closed || c.subs[scope] == nil {
		c.mu.Unlock()
		return
	}
	c.releaseLocked(scope)
	c.resetLocked(scope)
	c.gen++
	view := c.viewLocked()
	c.mu.Unlock()

	c.onRebuild(scope, view)
}

// Subscribed reports whether scope has a live listener.
func (c *Cache) Subscribed(scope Scope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[scope] != nil
}

// Close releases every listener. Snapshots already in flight are dropped.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for scope := range c.subs {
		c.releaseLocked(scope)
	}
	c.logger.Debug("mirror closed")
}

// View returns the current contents.
func (c *Cache) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Cache) releaseLocked(scope Scope) {
	if sub := c.subs[scope]; sub != nil {
		sub.unsub()
		delete(c.subs, scope)
	}
}

func (c *Cache) viewLocked() *View {
	return &View{
		Viewer:         c.viewer,
		Owned:          c.owned,
		Public:         c.public,
		Favorites:      c.favorites,
		History:        c.history,
		CardsDeckID:    c.cardsDeckID,
		Cards:          c.cards,
		CommentsDeckID: c.commentsDeckID,
		Comments:       c.comments,
		Gen:            c.gen,
	}
}

func (c *Cache) resetLocked(scope Scope) {
	switch scope {
	case ScopeOwnedDecks:
		c.owned = nil
	case ScopePublicDecks:
		c.public = nil
	case ScopeFavorites:
		c.favorites = map[string]struct{}{}
	case ScopeHistory:
		c.history = nil
	case ScopeCards:
		c.cards, c.cardsDeckID = nil, ""
	case ScopeComments:
		c.comments, c.commentsDeckID = nil, ""
	}
}

// apply is the snapshot callback. Only the listener currently registered for
// scope may write the scope; anything else is a leftover from a released
// listener and is dropped.
func (c *Cache) apply(scope Scope, token uint64, snap *store.Snapshot, err error) {
	c.mu.Lock()
	sub := c.subs[scope]
	if c.closed || sub == nil || sub.token != token {
		c.mu.Unlock()
		staleSnapshots.WithLabelValues(string(scope)).Inc()
		return
	}

	if err != nil {
		c.logger.Warn("subscription failed, showing empty scope", "scope", scope, "error", err)
		subscriptionErrors.WithLabelValues(string(scope)).Inc()
		c.resetLocked(scope)
		if scope == ScopeCards {
			c.cardsDeckID = sub.deck
		}
		if scope == ScopeComments {
			c.commentsDeckID = sub.deck
		}
	} else {
		c.replaceLocked(scope, sub.deck, snap.Docs)
		snapshotsApplied.WithLabelValues(string(scope)).Inc()
	}

	c.gen++
	view := c.viewLocked()
	c.mu.Unlock()

	c.onRebuild(scope, view)
}

func (c *Cache) replaceLocked(scope Scope, deckID string, docs []*store.Document) {
	viewerID := ""
	if c.viewer != nil {
		viewerID = c.viewer.UserID
	}

	switch scope {
	case ScopeOwnedDecks:
		c.owned = decode(c.logger, scope, docs, func(d *store.Document, deck *domain.Deck) bool {
			deck.ID = d.ID
			return true
		})
	case ScopePublicDecks:
		c.public = decode(c.logger, scope, docs, func(d *store.Document, deck *domain.Deck) bool {
			deck.ID = d.ID
			return !deck.IsOwnedBy(viewerID)
		})
	case ScopeFavorites:
		favs := make(map[string]struct{}, len(docs))
		for _, d := range docs {
			favs[d.ID] = struct{}{}
		}
		c.favorites = favs
	case ScopeHistory:
		c.history = decode(c.logger, scope, docs, func(d *store.Document, h *domain.HistoryEntry) bool {
			h.DeckID = d.ID
			return true
		})
	case ScopeCards:
		c.cardsDeckID = deckID
		c.cards = decode(c.logger, scope, docs, func(d *store.Document, card *domain.Card) bool {
			card.ID, card.DeckID = d.ID, deckID
			return true
		})
	case ScopeComments:
		c.commentsDeckID = deckID
		c.comments = decode(c.logger, scope, docs, func(d *store.Document, cm *domain.Comment) bool {
			cm.ID, cm.DeckID = d.ID, deckID
			return true
		})
	}
}

// decode converts documents into T, skipping (and logging) malformed ones.
// keep fills in identity fields and may reject a decoded value.
func decode[T any](log *slog.Logger, scope Scope, docs []*store.Document, keep func(*store.Document, *T) bool) []*T {
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		v := new(T)
		if err := d.DataTo(v); err != nil {
			log.Warn("skipping malformed document", "scope", scope, "path", d.Path, "error", err)
			continue
		}
		if keep(d, v) {
			out = append(out, v)
		}
	}
	return slices.Clip(out)
}
