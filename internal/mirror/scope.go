// Package mirror keeps the client's in-memory copy of its live collections.
//
// Each scope (owned decks, public decks, favorites, history, the open deck's
// cards and comments) has at most one live listener. Every snapshot replaces
// the scope's contents wholesale; nothing survives from the previous one.
package mirror

import (
	"fmt"
	"strings"

	"github.com/flashcardexchange/flashcards/internal/domain"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// Scope names one logically subscribed collection.
type Scope string

// Scopes.
const (
	ScopeOwnedDecks  Scope = "owned_decks"
	ScopePublicDecks Scope = "public_decks"
	ScopeFavorites   Scope = "favorites"
	ScopeHistory     Scope = "history"
	ScopeCards       Scope = "cards"
	ScopeComments    Scope = "comments"
)

// AllScopes lists every scope in repaint order.
var AllScopes = []Scope{ScopeOwnedDecks, ScopePublicDecks, ScopeFavorites, ScopeHistory, ScopeCards, ScopeComments}

// OwnedDecksQuery selects the viewer's decks, newest first.
func OwnedDecksQuery(userID string) store.Query {
	return store.Collection(domain.CollectionDecks).
		Where(domain.FieldOwnerID, userID).
		OrderBy(domain.FieldCreatedAt, store.Desc)
}

// PublicDecksQuery selects every public deck, newest first.
func PublicDecksQuery() store.Query {
	return store.Collection(domain.CollectionDecks).
		Where(domain.FieldIsPublic, true).
		OrderBy(domain.FieldCreatedAt, store.Desc)
}

// FavoritesQuery selects the viewer's favorite marks.
func FavoritesQuery(userID string) store.Query {
	return store.Collection(domain.FavoritesPath(userID))
}

// HistoryQuery selects the viewer's visit history, most recent first.
func HistoryQuery(userID string) store.Query {
	return store.Collection(domain.HistoryPath(userID)).
		OrderBy(domain.FieldLastVisited, store.Desc)
}

// CardsQuery selects a deck's cards in creation order.
func CardsQuery(deckID string) store.Query {
	return store.Collection(domain.CardsPath(deckID)).
		OrderBy(domain.FieldCreatedAt, store.Asc)
}

// CommentsQuery selects a deck's comments in creation order.
func CommentsQuery(deckID string) store.Query {
	return store.Collection(domain.CommentsPath(deckID)).
		OrderBy(domain.FieldCreatedAt, store.Asc)
}

// parentDeck extracts the deck id from a decks/{id}/<sub> collection path.
func parentDeck(collection, sub string) (string, error) {
	parts := strings.Split(collection, "/")
	if len(parts) != 3 || parts[0] != domain.CollectionDecks || parts[2] != sub {
		return "", fmt.Errorf("collection %q is not decks/{id}/%s", collection, sub)
	}
	return parts[1], nil
}
