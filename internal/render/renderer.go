package render

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/flashcardexchange/flashcards/internal/domain"
)

// Actions are the commands rendered fragments bind their handlers to.
type Actions interface {
	CreateDeck(ctx context.Context, in domain.DeckInput) (string, error)
	OpenDeck(ctx context.Context, deckID string) error
	ToggleLike(ctx context.Context, deck *domain.Deck) error
	ToggleFavorite(ctx context.Context, deckID string, favorited bool) error
	ToggleVisibility(ctx context.Context, deck *domain.Deck) error
	EditDeck(ctx context.Context, deck *domain.Deck, in domain.DeckInput) error
	DeleteDeck(ctx context.Context, deck *domain.Deck) error
	AddCard(ctx context.Context, deck *domain.Deck, in domain.CardInput) (string, error)
	EditCard(ctx context.Context, deck *domain.Deck, card *domain.Card, in domain.CardInput) error
	DeleteCard(ctx context.Context, deck *domain.Deck, card *domain.Card) error
	PostComment(ctx context.Context, deckID, text string) error
	DeleteComment(ctx context.Context, comment *domain.Comment) error
}

// Fragment keys. Action ids extend them with a verb.
const (
	KeyCreateDeck = "create-deck"
	KeyAddCard    = "add-card"
	KeyEmpty      = "empty"
)

// DeckKey returns the key of a deck card.
func DeckKey(deckID string) string { return "deck/" + deckID }

// CardKey returns the key of a card tile.
func CardKey(cardID string) string { return "card/" + cardID }

// CommentKey returns the key of a comment, which is its author's id.
func CommentKey(authorID string) string { return "comment/" + authorID }

// HistoryKey returns the key of a history item.
func HistoryKey(deckID string) string { return "history/" + deckID }

// ResultKey returns the key of a search result.
func ResultKey(deckID string) string { return "result/" + deckID }

// DeckView is a deck seen by one viewer.
type DeckView struct {
	Deck      *domain.Deck
	LikeCount int
	IsOwner   bool
	Liked     bool
	Favorited bool
	SignedIn  bool
}

// NewDeckView computes the per-viewer flags of deck. viewer is nil when
// signed out.
func NewDeckView(deck *domain.Deck, viewer *domain.Identity, favorites map[string]struct{}) DeckView {
	var uid string
	if viewer != nil {
		uid = viewer.UserID
	}
	_, favorited := favorites[deck.ID]
	return DeckView{
		Deck:      deck,
		LikeCount: deck.LikeCount(),
		IsOwner:   deck.IsOwnedBy(uid),
		Liked:     deck.IsLikedBy(uid),
		Favorited: uid != "" && favorited,
		SignedIn:  uid != "",
	}
}

// Renderer builds fragments. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	actions Actions
}

// New creates a renderer whose handlers call actions.
func New(actions Actions) *Renderer {
	return &Renderer{actions: actions}
}

// DeckCard renders a deck on the dashboard. Edit, delete and visibility
// controls appear only for the owner; like and bookmark reflect the viewer's
// own state.
func (r *Renderer) DeckCard(v DeckView) *Fragment {
	d := v.Deck
	f := newFragment(DeckKey(d.ID))

	var menu, badge *html.Node
	if v.IsOwner {
		visibility, label := "Private", "Make public"
		if d.IsPublic {
			visibility, label = "Public", "Make private"
		}
		badge = el(atom.Span, attrs("class", "visibility"), text(visibility))
		menu = f.dropdown(
			f.button("edit-deck", "Edit deck", "edit", func(ctx context.Context, form map[string]string) error {
				return r.actions.EditDeck(ctx, d, deckInput(form))
			}),
			f.button("toggle-visibility", label, "visibility", func(ctx context.Context, _ map[string]string) error {
				return r.actions.ToggleVisibility(ctx, d)
			}),
			f.button("delete-deck danger", "Delete deck", "delete", func(ctx context.Context, _ map[string]string) error {
				return r.actions.DeleteDeck(ctx, d)
			}),
		)
	}

	var bookmark *html.Node
	if v.SignedIn {
		favorited := v.Favorited
		bookmark = el(atom.Button, attrs(
			"class", classes("bookmark", when(favorited, "saved")),
			"type", "button",
			"aria-pressed", strconv.FormatBool(favorited),
		), text("🔖"))
		bookmark.Attr = append(bookmark.Attr, f.bind("favorite", func(ctx context.Context, _ map[string]string) error {
			return r.actions.ToggleFavorite(ctx, d.ID, favorited)
		}))
	}

	root := el(atom.Article, attrs("class", classes("deck-card", when(v.IsOwner, "owned")), "data-key", f.Key),
		menu,
		bookmark,
		el(atom.H4, nil, text(d.Title)),
		el(atom.P, attrs("class", "description"), text(d.Description)),
		tagList(d.Tags),
		el(atom.Div, attrs("class", "deck-actions"),
			r.likeButton(f, v),
			el(atom.Span, attrs("class", "like-count"), text(strconv.Itoa(v.LikeCount))),
			badge,
		),
	)
	root.Attr = append(root.Attr, f.bind("open", func(ctx context.Context, _ map[string]string) error {
		return r.actions.OpenDeck(ctx, d.ID)
	}))
	f.Node = root
	return f
}

func (r *Renderer) likeButton(f *Fragment, v DeckView) *html.Node {
	icon := "♡"
	if v.Liked {
		icon = "❤️"
	}
	if !v.SignedIn {
		return el(atom.Span, attrs("class", "like-btn"), text(icon))
	}
	d := v.Deck
	return el(atom.Button, append(attrs(
		"class", classes("like-btn", when(v.Liked, "liked")),
		"type", "button",
		"aria-pressed", strconv.FormatBool(v.Liked),
	), f.bind("like", func(ctx context.Context, _ map[string]string) error {
		return r.actions.ToggleLike(ctx, d)
	})), text(icon))
}

// CreateDeckTile renders the "Create New Deck" tile leading the viewer's decks.
func (r *Renderer) CreateDeckTile() *Fragment {
	f := newFragment(KeyCreateDeck)
	f.Node = el(atom.Button, append(attrs("class", "create-deck-btn", "type", "button"),
		f.bind("submit", func(ctx context.Context, form map[string]string) error {
			_, err := r.actions.CreateDeck(ctx, deckInput(form))
			return err
		})),
		el(atom.Span, nil, text("+")),
		el(atom.P, nil, text("Create New Deck")),
	)
	return f
}

// CardTile renders one flashcard of deck. Edit and delete appear only for the
// deck's owner.
func (r *Renderer) CardTile(deck *domain.Deck, card *domain.Card, viewer *domain.Identity) *Fragment {
	f := newFragment(CardKey(card.ID))

	var menu *html.Node
	if deck.IsOwnedBy(viewerID(viewer)) {
		menu = f.dropdown(
			f.button("edit-card", "Edit card", "edit", func(ctx context.Context, form map[string]string) error {
				return r.actions.EditCard(ctx, deck, card, cardInput(form))
			}),
			f.button("delete-card danger", "Delete card", "delete", func(ctx context.Context, _ map[string]string) error {
				return r.actions.DeleteCard(ctx, deck, card)
			}),
		)
	}

	f.Node = el(atom.Div, attrs("class", "card", "data-key", f.Key),
		menu,
		el(atom.Div, attrs("class", "card-inner"),
			el(atom.Div, attrs("class", "card-face card-front"), text(card.Term)),
			el(atom.Div, attrs("class", "card-face card-back"), text(card.Definition)),
		),
	)
	return f
}

// AddCardTile renders the add-card control shown to the deck's owner.
func (r *Renderer) AddCardTile(deck *domain.Deck) *Fragment {
	f := newFragment(KeyAddCard)
	f.Node = el(atom.Button, append(attrs("class", "add-card-btn", "type", "button"),
		f.bind("submit", func(ctx context.Context, form map[string]string) error {
			_, err := r.actions.AddCard(ctx, deck, cardInput(form))
			return err
		})),
		text("+ Add Card"),
	)
	return f
}

// CommentCard renders a comment. Edit and delete appear only for its author;
// editing is posting again, since a user holds one comment per deck.
func (r *Renderer) CommentCard(c *domain.Comment, viewer *domain.Identity) *Fragment {
	f := newFragment(CommentKey(c.ID))

	var menu *html.Node
	if c.IsAuthoredBy(viewerID(viewer)) {
		menu = f.dropdown(
			f.button("edit-comment", "Edit", "edit", func(ctx context.Context, form map[string]string) error {
				return r.actions.PostComment(ctx, c.DeckID, form[domain.FieldText])
			}),
			f.button("delete-comment danger", "Delete", "delete", func(ctx context.Context, _ map[string]string) error {
				return r.actions.DeleteComment(ctx, c)
			}),
		)
	}

	f.Node = el(atom.Div, attrs("class", "comment", "data-key", f.Key),
		el(atom.Div, attrs("class", "comment-header"),
			avatar(c.ID, c.Username),
			el(atom.Strong, nil, text(c.Username)),
			menu,
		),
		el(atom.P, attrs("class", "comment-text"), text(c.Text)),
		timeNode(c.CreatedAt),
	)
	return f
}

// HistoryItem renders a visited deck from its stored snapshot. An unavailable
// deck (deleted, or no longer visible to the viewer) is shown without an open
// action.
func (r *Renderer) HistoryItem(e *domain.HistoryEntry, available bool) *Fragment {
	f := newFragment(HistoryKey(e.DeckID))
	root := el(atom.Li, attrs("class", classes("history-item", when(!available, "unavailable")), "data-key", f.Key),
		el(atom.H4, nil, text(e.Title)),
		el(atom.P, nil, text(e.Description)),
		timeNode(e.LastVisited),
	)
	if available {
		deckID := e.DeckID
		root.Attr = append(root.Attr, f.bind("open", func(ctx context.Context, _ map[string]string) error {
			return r.actions.OpenDeck(ctx, deckID)
		}))
	}
	f.Node = root
	return f
}

// SearchResult renders a deck inside the search overlay. It is read-only:
// clicking it opens the deck.
func (r *Renderer) SearchResult(v DeckView) *Fragment {
	d := v.Deck
	f := newFragment(ResultKey(d.ID))
	f.Node = el(atom.Div, append(attrs("class", "deck-card search-result", "data-key", f.Key),
		f.bind("open", func(ctx context.Context, _ map[string]string) error {
			return r.actions.OpenDeck(ctx, d.ID)
		})),
		el(atom.H4, nil, text(d.Title)),
		el(atom.P, nil, text(d.Description)),
		el(atom.Div, attrs("class", "deck-actions"),
			el(atom.Span, nil, text("❤️ "+strconv.Itoa(v.LikeCount))),
		),
	)
	return f
}

// Empty renders a placeholder for a region with nothing to show.
func (r *Renderer) Empty(message string) *Fragment {
	f := newFragment(KeyEmpty)
	f.Node = el(atom.P, attrs("class", "empty"), text(message))
	return f
}

func tagList(tags []string) *html.Node {
	if len(tags) == 0 {
		return nil
	}
	ul := el(atom.Ul, attrs("class", "tags"))
	for _, t := range tags {
		ul.AppendChild(el(atom.Li, attrs("class", "tag"), text(t)))
	}
	return ul
}

func timeNode(t time.Time) *html.Node {
	if t.IsZero() {
		return nil
	}
	return el(atom.Time, attrs("datetime", t.UTC().Format(time.RFC3339)), text(t.Format("Jan 2, 2006")))
}

func viewerID(viewer *domain.Identity) string {
	if viewer == nil {
		return ""
	}
	return viewer.UserID
}

func deckInput(form map[string]string) domain.DeckInput {
	return domain.DeckInput{
		Title:       form[domain.FieldTitle],
		Description: form[domain.FieldDescription],
		Tags:        form[domain.FieldTags],
	}
}

func cardInput(form map[string]string) domain.CardInput {
	return domain.CardInput{
		Term:       form[domain.FieldTerm],
		Definition: form[domain.FieldDefinition],
	}
}
