package gateway

import (
	"context"

	"github.com/flashcardexchange/flashcards/internal/domain"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// ToggleLike adds the viewer's like when the deck does not carry it and
// removes it otherwise. Only the viewer's own entry of the likes map is
// written, so concurrent likes by other users are never lost.
func (g *Gateway) ToggleLike(ctx context.Context, deck *domain.Deck) error {
	const action = "like"
	if err := g.requireViewer(action); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	uid := g.viewerID()
	var value any = true
	if deck.IsLikedBy(uid) {
		value = store.DeleteField
	}

	err := g.store.Update(ctx, domain.DeckPath(deck.ID), map[string]any{
		domain.LikePath(uid): value,
	})
	return g.done(action, MsgLikeFailed, err, "deck_id", deck.ID)
}

// ToggleFavorite deletes the viewer's favorite mark for deckID when favorited
// is true and creates it otherwise.
func (g *Gateway) ToggleFavorite(ctx context.Context, deckID string, favorited bool) error {
	const action = "favorite"
	if err := g.requireViewer(action); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	path := domain.FavoritePath(g.viewerID(), deckID)
	var err error
	if favorited {
		err = g.store.Delete(ctx, path)
	} else {
		err = g.store.Set(ctx, path, map[string]any{domain.FieldSavedAt: store.ServerTimestamp})
	}
	return g.done(action, MsgFavoriteFailed, err, "deck_id", deckID)
}

// ToggleVisibility flips a deck between public and private.
func (g *Gateway) ToggleVisibility(ctx context.Context, deck *domain.Deck) error {
	const action = "visibility"
	if err := g.requireOwner(action, deck); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Update(ctx, domain.DeckPath(deck.ID), map[string]any{
		domain.FieldIsPublic: !deck.IsPublic,
	})
	return g.done(action, MsgVisibilityFailed, err, "deck_id", deck.ID)
}

// CreateDeck adds a private deck owned by the viewer and returns its id.
func (g *Gateway) CreateDeck(ctx context.Context, in domain.DeckInput) (string, error) {
	const action = "create_deck"
	if err := g.requireViewer(action); err != nil {
		return "", err
	}
	in = trimmedDeck(in)
	if err := g.validate(action, in); err != nil {
		return "", err
	}
	if err := g.throttle(action); err != nil {
		return "", err
	}

	deckID, err := g.store.Add(ctx, domain.CollectionDecks, map[string]any{
		domain.FieldTitle:       in.Title,
		domain.FieldDescription: in.Description,
		domain.FieldTags:        domain.ParseTags(in.Tags),
		domain.FieldOwnerID:     g.viewerID(),
		domain.FieldIsPublic:    false,
		domain.FieldLikes:       map[string]any{},
		domain.FieldCreatedAt:   store.ServerTimestamp,
	})
	if err := g.done(action, MsgCreateDeckFailed, err); err != nil {
		return "", err
	}
	g.logger.Info("deck created", "deck_id", deckID, "owner_id", g.viewerID())
	return deckID, nil
}

// EditDeck rewrites a deck's title, description and tags. Likes, visibility
// and ownership are left untouched.
func (g *Gateway) EditDeck(ctx context.Context, deck *domain.Deck, in domain.DeckInput) error {
	const action = "edit_deck"
	if err := g.requireOwner(action, deck); err != nil {
		return err
	}
	in = trimmedDeck(in)
	if err := g.validate(action, in); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Update(ctx, domain.DeckPath(deck.ID), map[string]any{
		domain.FieldTitle:       in.Title,
		domain.FieldDescription: in.Description,
		domain.FieldTags:        domain.ParseTags(in.Tags),
	})
	return g.done(action, MsgUpdateDeckFailed, err, "deck_id", deck.ID)
}

// DeleteDeck deletes a deck, then its cards and comments and the viewer's own
// favorite and history entries for it. Other users' favorite and history
// entries are left behind; readers skip favorites that no longer resolve and
// show such history entries as unavailable.
//
// Only the deck deletion decides the outcome. Cleanup failures are logged.
func (g *Gateway) DeleteDeck(ctx context.Context, deck *domain.Deck) error {
	const action = "delete_deck"
	if err := g.requireOwner(action, deck); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Delete(ctx, domain.DeckPath(deck.ID))
	if err := g.done(action, MsgDeleteDeckFailed, err, "deck_id", deck.ID); err != nil {
		return err
	}

	uid := g.viewerID()
	for _, c := range []string{domain.CardsPath(deck.ID), domain.CommentsPath(deck.ID)} {
		if n, err := g.store.DeleteCollection(ctx, c); err != nil {
			g.logger.Warn("deck cleanup failed", "deck_id", deck.ID, "collection", c, "error", err)
		} else if n > 0 {
			g.logger.Debug("deck cleanup", "deck_id", deck.ID, "collection", c, "deleted", n)
		}
	}
	for _, p := range []string{domain.FavoritePath(uid, deck.ID), domain.HistoryEntryPath(uid, deck.ID)} {
		if err := g.store.Delete(ctx, p); err != nil {
			g.logger.Warn("deck cleanup failed", "deck_id", deck.ID, "path", p, "error", err)
		}
	}

	g.logger.Info("deck deleted", "deck_id", deck.ID, "owner_id", uid)
	return nil
}

// RecordVisit upserts the viewer's history entry for deck with the deck's
// current title and description. Signed-out visits are not recorded.
func (g *Gateway) RecordVisit(ctx context.Context, deck *domain.Deck) error {
	const action = "record_visit"
	if err := g.requireViewer(action); err != nil {
		return err
	}

	err := g.store.Set(ctx, domain.HistoryEntryPath(g.viewerID(), deck.ID), map[string]any{
		domain.FieldDeckID:      deck.ID,
		domain.FieldTitle:       deck.Title,
		domain.FieldDescription: deck.Description,
		domain.FieldLastVisited: store.ServerTimestamp,
	}, store.Merge())
	return g.done(action, MsgRecordVisitFailed, err, "deck_id", deck.ID)
}
