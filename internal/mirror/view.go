package mirror

import (
	"slices"

	"github.com/flashcardexchange/flashcards/internal/domain"
)

// View is an immutable picture of the cache after one rebuild. Slices and maps
// are shared with the cache, which only ever replaces them, so a View stays
// valid after later snapshots. Callers must not modify it.
type View struct {
	Viewer         *domain.Identity
	Favorites      map[string]struct{}
	CardsDeckID    string
	CommentsDeckID string
	Owned          []*domain.Deck
	Public         []*domain.Deck
	History        []*domain.HistoryEntry
	Cards          []*domain.Card
	Comments       []*domain.Comment
	Gen            uint64
}

// ViewerID returns the viewer's user id, or "" for a signed-out viewer.
func (v *View) ViewerID() string {
	if v.Viewer == nil {
		return ""
	}
	return v.Viewer.UserID
}

// IsFavorite reports whether deckID is in the favorites set.
func (v *View) IsFavorite(deckID string) bool {
	_, ok := v.Favorites[deckID]
	return ok
}

// Lookup finds a mirrored deck, searching owned decks before public ones.
func (v *View) Lookup(deckID string) (*domain.Deck, bool) {
	for _, d := range v.Owned {
		if d.ID == deckID {
			return d, true
		}
	}
	for _, d := range v.Public {
		if d.ID == deckID {
			return d, true
		}
	}
	return nil, false
}

// FavoriteIDs returns the favorite deck ids in a stable order: those present in
// the mirror first in mirror order, then the rest sorted.
func (v *View) FavoriteIDs() []string {
	out := make([]string, 0, len(v.Favorites))
	seen := make(map[string]struct{}, len(v.Favorites))
	for _, d := range v.SearchCorpus() {
		if v.IsFavorite(d.ID) {
			out = append(out, d.ID)
			seen[d.ID] = struct{}{}
		}
	}
	var rest []string
	for id := range v.Favorites {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// SearchCorpus returns the decks the search index covers: the viewer's own
// decks, then public decks, each in mirrored order.
func (v *View) SearchCorpus() []*domain.Deck {
	out := make([]*domain.Deck, 0, len(v.Owned)+len(v.Public))
	out = append(out, v.Owned...)
	return append(out, v.Public...)
}
