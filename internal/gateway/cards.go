package gateway

import (
	"context"
	"strings"

	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// AddCard appends a card to deck and returns its id.
func (g *Gateway) AddCard(ctx context.Context, deck *domain.Deck, in domain.CardInput) (string, error) {
	const action = "add_card"
	if err := g.requireOwner(action, deck); err != nil {
		return "", err
	}
	in = trimmedCard(in)
	if err := g.validate(action, in); err != nil {
		return "", err
	}
	if err := g.throttle(action); err != nil {
		return "", err
	}

	cardID, err := g.store.Add(ctx, domain.CardsPath(deck.ID), map[string]any{
		domain.FieldTerm:       in.Term,
		domain.FieldDefinition: in.Definition,
		domain.FieldCreatedAt:  store.ServerTimestamp,
	})
	if err := g.done(action, MsgAddCardFailed, err, "deck_id", deck.ID); err != nil {
		return "", err
	}
	return cardID, nil
}

// EditCard rewrites a card's term and definition.
func (g *Gateway) EditCard(ctx context.Context, deck *domain.Deck, card *domain.Card, in domain.CardInput) error {
	const action = "edit_card"
	if err := g.requireOwner(action, deck); err != nil {
		return err
	}
	in = trimmedCard(in)
	if err := g.validate(action, in); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Update(ctx, domain.CardPath(deck.ID, card.ID), map[string]any{
		domain.FieldTerm:       in.Term,
		domain.FieldDefinition: in.Definition,
	})
	return g.done(action, MsgUpdateCardFailed, err, "deck_id", deck.ID, "card_id", card.ID)
}

// DeleteCard removes a card from deck.
func (g *Gateway) DeleteCard(ctx context.Context, deck *domain.Deck, card *domain.Card) error {
	const action = "delete_card"
	if err := g.requireOwner(action, deck); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Delete(ctx, domain.CardPath(deck.ID, card.ID))
	return g.done(action, MsgDeleteCardFailed, err, "deck_id", deck.ID, "card_id", card.ID)
}

// PostComment writes the viewer's comment on deckID. The comment is stored
// under the viewer's id, so posting again replaces the previous comment.
func (g *Gateway) PostComment(ctx context.Context, deckID, text string) error {
	const action = "post_comment"
	if err := g.requireViewer(action); err != nil {
		return err
	}
	in := domain.CommentInput{Text: strings.TrimSpace(text)}
	if err := g.validate(action, in); err != nil {
		return err
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Set(ctx, domain.CommentPath(deckID, g.viewerID()), map[string]any{
		domain.FieldText:      in.Text,
		domain.FieldUsername:  g.viewer.DisplayName(),
		domain.FieldCreatedAt: store.ServerTimestamp,
	})
	return g.done(action, MsgPostCommentFailed, err, "deck_id", deckID)
}

// DeleteComment removes a comment. Only its author may delete it.
func (g *Gateway) DeleteComment(ctx context.Context, comment *domain.Comment) error {
	const action = "delete_comment"
	if err := g.requireViewer(action); err != nil {
		return err
	}
	if !comment.IsAuthoredBy(g.viewerID()) {
		mutations.WithLabelValues(action, outcomeDenied).Inc()
		return domainerrors.Forbidden(MsgNotAuthor)
	}
	if err := g.throttle(action); err != nil {
		return err
	}

	err := g.store.Delete(ctx, domain.CommentPath(comment.DeckID, comment.ID))
	return g.done(action, MsgDeleteCommentFailed, err, "deck_id", comment.DeckID)
}
