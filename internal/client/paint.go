package client

import (
	"context"
	"errors"
	"time"

	"github.com/flashcardexchange/flashcards/internal/domain"
	"github.com/flashcardexchange/flashcards/internal/mirror"
	"github.com/flashcardexchange/flashcards/internal/render"
	"github.com/flashcardexchange/flashcards/internal/search"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// Region names.
const (
	RegionUserDecks   = "user-decks"
	RegionPublicDecks = "public-decks"
	RegionFavorites   = "favorites"
	RegionHistory     = "history"
	RegionCards       = "cards"
	RegionComments    = "comments"
	RegionSearch      = "search-results"
)

// Regions lists every region a client paints.
var Regions = []string{
	RegionUserDecks,
	RegionPublicDecks,
	RegionFavorites,
	RegionHistory,
	RegionCards,
	RegionComments,
	RegionSearch,
}

// Placeholder texts.
const (
	emptyUserDecksGuest = "Sign in to create your own decks"
	emptyPublicDecks    = "No public decks yet"
	emptyFavoritesGuest = "Sign in to save decks"
	emptyFavorites      = "No saved decks yet"
	emptyHistoryGuest   = "Sign in to keep track of decks you visit"
	emptyHistory        = "No recently viewed decks"
	emptyCards          = "No cards yet"
	emptyComments       = "No comments yet"
	emptySearch         = "No decks match your search"
)

const pointReadTimeout = 5 * time.Second

// paintGen orders repaints across sessions: a later session always paints a
// newer generation than any rebuild of an earlier one.
func paintGen(epoch, gen uint64) uint64 {
	return epoch<<32 | gen
}

// regionsFor lists the regions a rebuild of scope can change.
func regionsFor(scope mirror.Scope) []string {
	switch scope {
	case mirror.ScopeOwnedDecks, mirror.ScopePublicDecks:
		return []string{RegionUserDecks, RegionPublicDecks, RegionFavorites, RegionHistory, RegionCards, RegionSearch}
	case mirror.ScopeFavorites:
		return []string{RegionUserDecks, RegionPublicDecks, RegionFavorites, RegionSearch}
	case mirror.ScopeHistory:
		return []string{RegionHistory}
	case mirror.ScopeCards:
		return []string{RegionCards}
	case mirror.ScopeComments:
		return []string{RegionComments}
	}
	return nil
}

// onRebuild is the mirror's render trigger.
func (c *Client) onRebuild(epoch uint64, scope mirror.Scope, view *mirror.View) {
	// Favorites not found in the mirror need point reads; do them before
	// taking the lock.
	var favorites []*domain.Deck
	resolve := scope == mirror.ScopeOwnedDecks || scope == mirror.ScopePublicDecks || scope == mirror.ScopeFavorites
	if resolve {
		favorites = c.resolveFavorites(view)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	if c.closed || st == nil || st.epoch != epoch {
		staleRebuilds.Inc()
		return
	}

	c.syncIndexLocked(st, view)
	if resolve && view.Gen >= st.favoritesGen {
		st.favorites, st.favoritesGen = favorites, view.Gen
	}

	c.paintLocked(st, view, false, regionsFor(scope)...)
}

// syncIndexLocked rebuilds the search index from view unless it already
// reflects that generation. Every view carries the full deck scopes, so a
// rebuild of any scope may be the newest corpus the index will see.
func (c *Client) syncIndexLocked(st *sessionState, view *mirror.View) {
	if view.Gen <= st.index.Gen() {
		return
	}
	if err := st.index.Rebuild(view.Gen, view.SearchCorpus()); err != nil {
		c.logger.Warn("search index rebuild failed", "gen", view.Gen, "error", err)
	}
}

// paintAllLocked repaints every region from view.
func (c *Client) paintAllLocked(st *sessionState, view *mirror.View, force bool) {
	c.paintLocked(st, view, force, Regions...)
}

// paintLocked replaces the content of each named region. A region whose
// repaint changed nothing is not reported unless force is set.
func (c *Client) paintLocked(st *sessionState, view *mirror.View, force bool, names ...string) {
	gen := paintGen(st.epoch, view.Gen)
	for _, name := range names {
		region := c.regions[name]

		var frags []*render.Fragment
		if name == RegionSearch {
			var sv *search.View
			frags, sv = c.searchFragmentsLocked(st, view)
			c.emitSearchLocked(sv)
		} else {
			frags = c.fragmentsLocked(st, view, name)
		}

		patch, ok := region.Replace(gen, frags)
		if !ok || (patch.Empty() && !force) {
			continue
		}
		if c.onRender != nil {
			c.onRender(RenderEvent{Region: name, Gen: gen, HTML: region.HTML(), Patch: patch})
		}
	}
}

func (c *Client) fragmentsLocked(st *sessionState, view *mirror.View, name string) []*render.Fragment {
	r := c.renderer
	viewer := st.viewer

	deckCards := func(decks []*domain.Deck) []*render.Fragment {
		out := make([]*render.Fragment, 0, len(decks)+1)
		for _, d := range decks {
			out = append(out, r.DeckCard(render.NewDeckView(d, viewer, view.Favorites)))
		}
		return out
	}

	switch name {
	case RegionUserDecks:
		if viewer == nil {
			return []*render.Fragment{r.Empty(emptyUserDecksGuest)}
		}
		return append([]*render.Fragment{r.CreateDeckTile()}, deckCards(view.Owned)...)

	case RegionPublicDecks:
		if len(view.Public) == 0 {
			return []*render.Fragment{r.Empty(emptyPublicDecks)}
		}
		return deckCards(view.Public)

	case RegionFavorites:
		if viewer == nil {
			return []*render.Fragment{r.Empty(emptyFavoritesGuest)}
		}
		if len(st.favorites) == 0 {
			return []*render.Fragment{r.Empty(emptyFavorites)}
		}
		return deckCards(st.favorites)

	case RegionHistory:
		if viewer == nil {
			return []*render.Fragment{r.Empty(emptyHistoryGuest)}
		}
		if len(view.History) == 0 {
			return []*render.Fragment{r.Empty(emptyHistory)}
		}
		out := make([]*render.Fragment, 0, len(view.History))
		for _, e := range view.History {
			_, available := view.Lookup(e.DeckID)
			out = append(out, r.HistoryItem(e, available))
		}
		return out

	case RegionCards:
		deck := c.openDeckLocked(st, view)
		if deck == nil || view.CardsDeckID != deck.ID {
			return nil
		}
		owner := deck.IsOwnedBy(viewerID(viewer))
		out := make([]*render.Fragment, 0, len(view.Cards)+1)
		if owner {
			out = append(out, r.AddCardTile(deck))
		}
		for _, card := range view.Cards {
			out = append(out, r.CardTile(deck, card, viewer))
		}
		if len(view.Cards) == 0 {
			out = append(out, r.Empty(emptyCards))
		}
		return out

	case RegionComments:
		if view.CommentsDeckID == "" {
			return nil
		}
		if len(view.Comments) == 0 {
			return []*render.Fragment{r.Empty(emptyComments)}
		}
		out := make([]*render.Fragment, 0, len(view.Comments))
		for _, cm := range view.Comments {
			out = append(out, r.CommentCard(cm, viewer))
		}
		return out
	}
	return nil
}

// openDeckLocked returns the open deck, refreshed from the mirror when the
// mirror holds a newer copy.
func (c *Client) openDeckLocked(st *sessionState, view *mirror.View) *domain.Deck {
	if st.openDeck == nil {
		return nil
	}
	if fresh, ok := view.Lookup(st.openDeck.ID); ok {
		st.openDeck = fresh
	}
	return st.openDeck
}

// searchFragmentsLocked runs the current query. A blank query paints nothing.
func (c *Client) searchFragmentsLocked(st *sessionState, view *mirror.View) ([]*render.Fragment, *search.View) {
	sv, err := st.index.Query(c.query)
	if err != nil {
		c.logger.Warn("search failed", "error", err)
		sv = &search.View{Query: c.query}
	}
	if !sv.Visible {
		return nil, sv
	}
	if len(sv.Results) == 0 {
		return []*render.Fragment{c.renderer.Empty(emptySearch)}, sv
	}
	out := make([]*render.Fragment, 0, len(sv.Results))
	for _, d := range sv.Results {
		out = append(out, c.renderer.SearchResult(render.NewDeckView(d, st.viewer, view.Favorites)))
	}
	return out, sv
}

func (c *Client) emitSearchLocked(sv *search.View) {
	if c.onSearch == nil {
		return
	}
	c.onSearch(SearchEvent{
		Query:   sv.Query,
		Results: len(sv.Results),
		Visible: sv.Visible,
		Dimmed:  sv.Dimmed,
	})
}

// resolveFavorites turns the favorites set into decks: from the mirror when
// it holds them, otherwise by point read. Decks that no longer exist or that
// the viewer may not see are skipped.
func (c *Client) resolveFavorites(view *mirror.View) []*domain.Deck {
	if len(view.Favorites) == 0 {
		return nil
	}
	uid := view.ViewerID()

	ctx, cancel := context.WithTimeout(context.Background(), pointReadTimeout)
	defer cancel()

	out := make([]*domain.Deck, 0, len(view.Favorites))
	for _, deckID := range view.FavoriteIDs() {
		if d, ok := view.Lookup(deckID); ok {
			out = append(out, d)
			continue
		}
		d, err := c.fetchDeck(ctx, deckID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				c.logger.Warn("favorite lookup failed", "deck_id", deckID, "error", err)
			}
			continue
		}
		if d.VisibleTo(uid) {
			out = append(out, d)
		}
	}
	return out
}

// fetchDeck point-reads a deck. Concurrent reads of the same deck share one
// request.
func (c *Client) fetchDeck(ctx context.Context, deckID string) (*domain.Deck, error) {
	v, err, shared := c.resolver.Do(deckID, func() (any, error) {
		doc, err := c.backend.Get(ctx, domain.DeckPath(deckID))
		if err != nil {
			return nil, err
		}
		var d domain.Deck
		if err := doc.DataTo(&d); err != nil {
			return nil, err
		}
		d.ID = doc.ID
		return &d, nil
	})
	pointReads.WithLabelValues(outcome(err), shareLabel(shared)).Inc()
	if err != nil {
		return nil, err
	}
	return v.(*domain.Deck), nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, store.ErrNotFound) {
		return "not_found"
	}
	return "error"
}

func shareLabel(shared bool) string {
	if shared {
		return "shared"
	}
	return "own"
}
