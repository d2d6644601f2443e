package client

import (
	"context"
	"errors"

	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/gateway"
	"github.com/flashcardexchange/flashcards/internal/mirror"
	"github.com/flashcardexchange/flashcards/internal/render"
	"github.com/flashcardexchange/flashcards/internal/search"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// Messages for failures the coordinator itself raises.
const (
	MsgDeckNotFound  = "Deck not found"
	MsgStaleAction   = "That item has changed, please try again"
	MsgUnknownRegion = "Unknown region"
)

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Identity, error) {
	identity, err := c.boundary.CreateIdentity(ctx, email, password)
	return identity, c.report(err)
}

// SignIn signs in with an email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	identity, err := c.boundary.SignIn(ctx, email, password)
	return identity, c.report(err)
}

// SignOut signs out.
func (c *Client) SignOut(ctx context.Context) {
	c.boundary.SignOut(ctx)
}

// SetUsername chooses the signed-in user's username.
func (c *Client) SetUsername(ctx context.Context, username string) error {
	return c.report(c.boundary.SetUsername(ctx, username))
}

// DeleteAccount deletes the signed-in account and signs out.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.report(c.boundary.DeleteIdentity(ctx))
}

// Search runs q against the search index and repaints the search overlay.
// A blank query hides the overlay.
func (c *Client) Search(q string) (*search.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	if c.closed || st == nil {
		return nil, domainerrors.Unavailable("session closed")
	}
	c.query = q

	view := st.cache.View()
	c.syncIndexLocked(st, view)
	sv, err := st.index.Query(q)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
	}
	c.paintLocked(st, view, true, RegionSearch)
	return sv, nil
}

// OpenDeck shows a deck's detail view. Opening clears the search overlay and
// runs three independent side effects: subscribing the deck's cards,
// subscribing its comments, and recording the visit in the viewer's history.
// A failing side effect never stops the others; subscription failures leave
// their region empty and a failed visit record raises a notice.
func (c *Client) OpenDeck(ctx context.Context, deckID string) (*domain.Deck, error) {
	st, err := c.current()
	if err != nil {
		return nil, err
	}

	deck, err := c.lookupDeck(ctx, st, deckID)
	if err != nil {
		return nil, c.report(err)
	}

	c.mu.Lock()
	if c.state != st {
		c.mu.Unlock()
		return nil, domainerrors.Unavailable("session changed")
	}
	st.openDeck = deck
	c.query = ""
	c.paintLocked(st, st.cache.View(), true, RegionSearch)
	c.mu.Unlock()

	if err := c.openSideEffects(ctx, st, deck); err != nil {
		c.logger.Warn("deck opened with failures", "deck_id", deckID, "error", err)
	}
	return deck, nil
}

// openSideEffects runs the three deck-open side effects and joins their errors.
func (c *Client) openSideEffects(ctx context.Context, st *sessionState, deck *domain.Deck) error {
	var errs []error

	if err := st.cache.Subscribe(mirror.ScopeCards, mirror.CardsQuery(deck.ID)); err != nil {
		errs = append(errs, err)
	}
	if err := st.cache.Subscribe(mirror.ScopeComments, mirror.CommentsQuery(deck.ID)); err != nil {
		errs = append(errs, err)
	}
	if st.viewer != nil {
		c.mu.Lock()
		g := st.gateway
		c.mu.Unlock()
		if err := c.report(g.RecordVisit(ctx, deck)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lookupDeck finds a deck the viewer may see, in the mirror first.
func (c *Client) lookupDeck(ctx context.Context, st *sessionState, deckID string) (*domain.Deck, error) {
	if d, ok := st.cache.View().Lookup(deckID); ok {
		return d, nil
	}
	d, err := c.fetchDeck(ctx, deckID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound(MsgDeckNotFound)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, MsgDeckNotFound)
	}
	if !d.VisibleTo(viewerID(st.viewer)) {
		return nil, domainerrors.NotFound(MsgDeckNotFound)
	}
	return d, nil
}

// Dispatch runs the handler bound to actionID in region. An empty actionID is
// a click outside every fragment of the region.
func (c *Client) Dispatch(ctx context.Context, regionName, actionID string, form map[string]string) error {
	region, ok := c.regions[regionName]
	if !ok {
		return domainerrors.NotFound(MsgUnknownRegion)
	}
	if actionID == "" {
		region.ClickOutside()
		return nil
	}

	err := region.Dispatch(ctx, actionID, form)
	if errors.Is(err, render.ErrUnknownAction) {
		return domainerrors.NotFound(MsgStaleAction)
	}
	// Handlers report their own failures.
	return err
}

// currentGateway returns the current session's gateway.
func (c *Client) currentGateway() (*gateway.Gateway, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == nil {
		return nil, domainerrors.Unavailable("session closed")
	}
	return c.state.gateway, nil
}

// deck finds a deck the viewer may see for a command issued by id.
func (c *Client) deck(ctx context.Context, deckID string) (*domain.Deck, error) {
	st, err := c.current()
	if err != nil {
		return nil, err
	}
	return c.lookupDeck(ctx, st, deckID)
}

// run resolves the gateway and reports the command's failure.
func (c *Client) run(fn func(g *gateway.Gateway) error) error {
	g, err := c.currentGateway()
	if err != nil {
		return err
	}
	return c.report(fn(g))
}

// runOnDeck is run for commands that target a deck by id.
func (c *Client) runOnDeck(ctx context.Context, deckID string, fn func(g *gateway.Gateway, d *domain.Deck) error) error {
	d, err := c.deck(ctx, deckID)
	if err != nil {
		return c.report(err)
	}
	return c.run(func(g *gateway.Gateway) error { return fn(g, d) })
}

// CreateDeck creates a private deck owned by the viewer.
func (c *Client) CreateDeck(ctx context.Context, in domain.DeckInput) (string, error) {
	var deckID string
	err := c.run(func(g *gateway.Gateway) error {
		var err error
		deckID, err = g.CreateDeck(ctx, in)
		return err
	})
	return deckID, err
}

// ToggleLike likes or unlikes a deck.
func (c *Client) ToggleLike(ctx context.Context, deckID string) error {
	return c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		return g.ToggleLike(ctx, d)
	})
}

// ToggleFavorite saves or unsaves a deck, depending on the mirrored
// favorites set.
func (c *Client) ToggleFavorite(ctx context.Context, deckID string) error {
	favorited := c.View().IsFavorite(deckID)
	return c.run(func(g *gateway.Gateway) error {
		return g.ToggleFavorite(ctx, deckID, favorited)
	})
}

// ToggleVisibility makes an owned deck public or private.
func (c *Client) ToggleVisibility(ctx context.Context, deckID string) error {
	return c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		return g.ToggleVisibility(ctx, d)
	})
}

// EditDeck edits an owned deck.
func (c *Client) EditDeck(ctx context.Context, deckID string, in domain.DeckInput) error {
	return c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		return g.EditDeck(ctx, d, in)
	})
}

// DeleteDeck deletes an owned deck.
func (c *Client) DeleteDeck(ctx context.Context, deckID string) error {
	return c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		return g.DeleteDeck(ctx, d)
	})
}

// AddCard adds a card to an owned deck.
func (c *Client) AddCard(ctx context.Context, deckID string, in domain.CardInput) (string, error) {
	var cardID string
	err := c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		var err error
		cardID, err = g.AddCard(ctx, d, in)
		return err
	})
	return cardID, err
}

// EditCard edits a card of an owned deck.
func (c *Client) EditCard(ctx context.Context, deckID, cardID string, in domain.CardInput) error {
	return c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		return g.EditCard(ctx, d, &domain.Card{ID: cardID, DeckID: deckID}, in)
	})
}

// DeleteCard deletes a card of an owned deck.
func (c *Client) DeleteCard(ctx context.Context, deckID, cardID string) error {
	return c.runOnDeck(ctx, deckID, func(g *gateway.Gateway, d *domain.Deck) error {
		return g.DeleteCard(ctx, d, &domain.Card{ID: cardID, DeckID: deckID})
	})
}

// PostComment posts or replaces the viewer's comment on a deck.
func (c *Client) PostComment(ctx context.Context, deckID, text string) error {
	return c.run(func(g *gateway.Gateway) error {
		return g.PostComment(ctx, deckID, text)
	})
}

// DeleteComment deletes the viewer's comment on a deck.
func (c *Client) DeleteComment(ctx context.Context, deckID string) error {
	return c.run(func(g *gateway.Gateway) error {
		return g.DeleteComment(ctx, &domain.Comment{ID: viewerID(g.Viewer()), DeckID: deckID})
	})
}

// actions binds rendered fragments to the client's session.
type actions struct{ c *Client }

var _ render.Actions = actions{}

func (a actions) CreateDeck(ctx context.Context, in domain.DeckInput) (string, error) {
	return a.c.CreateDeck(ctx, in)
}

func (a actions) OpenDeck(ctx context.Context, deckID string) error {
	_, err := a.c.OpenDeck(ctx, deckID)
	return err
}

func (a actions) ToggleLike(ctx context.Context, d *domain.Deck) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.ToggleLike(ctx, d) })
}

func (a actions) ToggleFavorite(ctx context.Context, deckID string, favorited bool) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.ToggleFavorite(ctx, deckID, favorited) })
}

func (a actions) ToggleVisibility(ctx context.Context, d *domain.Deck) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.ToggleVisibility(ctx, d) })
}

func (a actions) EditDeck(ctx context.Context, d *domain.Deck, in domain.DeckInput) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.EditDeck(ctx, d, in) })
}

func (a actions) DeleteDeck(ctx context.Context, d *domain.Deck) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.DeleteDeck(ctx, d) })
}

func (a actions) AddCard(ctx context.Context, d *domain.Deck, in domain.CardInput) (string, error) {
	var cardID string
	err := a.c.run(func(g *gateway.Gateway) error {
		var err error
		cardID, err = g.AddCard(ctx, d, in)
		return err
	})
	return cardID, err
}

func (a actions) EditCard(ctx context.Context, d *domain.Deck, card *domain.Card, in domain.CardInput) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.EditCard(ctx, d, card, in) })
}

func (a actions) DeleteCard(ctx context.Context, d *domain.Deck, card *domain.Card) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.DeleteCard(ctx, d, card) })
}

func (a actions) PostComment(ctx context.Context, deckID, text string) error {
	return a.c.PostComment(ctx, deckID, text)
}

func (a actions) DeleteComment(ctx context.Context, cm *domain.Comment) error {
	return a.c.run(func(g *gateway.Gateway) error { return g.DeleteComment(ctx, cm) })
}
