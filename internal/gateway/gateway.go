// Package gateway turns gated user gestures into store mutations.
//
// The gateway never touches the local mirror. A mutation's effect becomes
// visible only when the affected subscription delivers its next snapshot.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
	"github.com/flashcardexchange/flashcards/internal/store"
	"github.com/flashcardexchange/flashcards/internal/validation"
)

// Messages shown to the user.
const (
	MsgCreateDeckFailed    = "Failed to create deck"
	MsgUpdateDeckFailed    = "Failed to update deck"
	MsgDeleteDeckFailed    = "Failed to delete deck"
	MsgAddCardFailed       = "Failed to add card"
	MsgUpdateCardFailed    = "Failed to update card"
	MsgDeleteCardFailed    = "Failed to delete card"
	MsgPostCommentFailed   = "Failed to post comment"
	MsgDeleteCommentFailed = "Failed to delete comment"
	MsgLikeFailed          = "Failed to update like"
	MsgFavoriteFailed      = "Failed to update saved decks"
	MsgVisibilityFailed    = "Failed to change deck visibility"
	MsgRecordVisitFailed   = "Failed to record visit"

	MsgSignInRequired = "Please sign in first"
	MsgNotDeckOwner   = "Only the deck owner can do that"
	MsgNotAuthor      = "Only the comment author can do that"
	MsgSlowDown       = "Too many changes at once, please slow down"
)

// Store is the mutation side of the remote store.
type Store interface {
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Set(ctx context.Context, docPath string, data map[string]any, opts ...store.SetOption) error
	Update(ctx context.Context, docPath string, fields map[string]any) error
	Delete(ctx context.Context, docPath string) error
	DeleteCollection(ctx context.Context, collection string) (int, error)
}

// Options configures a Gateway.
type Options struct {
	// Limiter throttles mutations per viewer. Nil disables throttling.
	Limiter *ratelimit.KeyedRateLimiter
	Logger  *slog.Logger
}

// Gateway issues the mutations of one viewer. It is created per session; a
// gateway for a signed-out viewer rejects every command.
type Gateway struct {
	store     Store
	viewer    *domain.Identity
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
}

// New creates a gateway acting as viewer (nil when signed out).
func New(s Store, viewer *domain.Identity, opts Options) *Gateway {
	var v *domain.Identity
	if viewer != nil {
		c := *viewer
		v = &c
	}
	return &Gateway{
		store:     s,
		viewer:    v,
		validator: validation.New(),
		limiter:   opts.Limiter,
		logger:    logger.OrDiscard(opts.Logger),
	}
}

// Viewer returns the identity the gateway acts as.
func (g *Gateway) Viewer() *domain.Identity {
	if g.viewer == nil {
		return nil
	}
	c := *g.viewer
	return &c
}

func (g *Gateway) viewerID() string {
	if g.viewer == nil {
		return ""
	}
	return g.viewer.UserID
}

// requireViewer rejects commands from a signed-out viewer.
func (g *Gateway) requireViewer(action string) error {
	if g.viewer == nil {
		mutations.WithLabelValues(action, outcomeDenied).Inc()
		return domainerrors.Unauthorized(MsgSignInRequired)
	}
	return nil
}

// requireOwner rejects commands on decks the viewer does not own.
func (g *Gateway) requireOwner(action string, deck *domain.Deck) error {
	if err := g.requireViewer(action); err != nil {
		return err
	}
	if !deck.IsOwnedBy(g.viewerID()) {
		mutations.WithLabelValues(action, outcomeDenied).Inc()
		return domainerrors.Forbidden(MsgNotDeckOwner)
	}
	return nil
}

func (g *Gateway) validate(action string, form any) error {
	if err := g.validator.Validate(form); err != nil {
		mutations.WithLabelValues(action, outcomeInvalid).Inc()
		return err
	}
	return nil
}

// throttle applies the per-viewer rate limit.
func (g *Gateway) throttle(action string) error {
	if g.limiter == nil || g.limiter.Allow(g.viewerID()) {
		return nil
	}
	mutations.WithLabelValues(action, outcomeLimited).Inc()
	return domainerrors.RateLimited(MsgSlowDown)
}

// done records the outcome of a backend mutation and converts a failure into
// a user-facing error carrying msg.
func (g *Gateway) done(action, msg string, err error, attrs ...any) error {
	if err == nil {
		mutations.WithLabelValues(action, outcomeOK).Inc()
		return nil
	}
	mutations.WithLabelValues(action, outcomeFailed).Inc()

	code := domainerrors.CodeUnavailable
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = domainerrors.CodeNotFound
	case errors.Is(err, store.ErrInvalidArgument):
		code = domainerrors.CodeInternal
	}

	g.logger.Warn("mutation failed",
		append([]any{"action", action, "user_id", g.viewerID(), "error", err}, attrs...)...)
	return domainerrors.Wrap(err, code, msg)
}

func trimmedDeck(in domain.DeckInput) domain.DeckInput {
	return domain.DeckInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        in.Tags,
	}
}

func trimmedCard(in domain.CardInput) domain.CardInput {
	return domain.CardInput{
		Term:       strings.TrimSpace(in.Term),
		Definition: strings.TrimSpace(in.Definition),
	}
}
