package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcardexchange/flashcards/internal/domain"
)

// fakeActions records the commands handlers invoke.
type fakeActions struct {
	mu    sync.Mutex
	calls []string
	decks []domain.DeckInput
	err   error
}

func (a *fakeActions) record(call string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
	return a.err
}

func (a *fakeActions) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeActions) CreateDeck(_ context.Context, in domain.DeckInput) (string, error) {
	a.mu.Lock()
	a.decks = append(a.decks, in)
	a.mu.Unlock()
	return "deck-new", a.record("create")
}

func (a *fakeActions) OpenDeck(_ context.Context, deckID string) error {
	return a.record("open " + deckID)
}

func (a *fakeActions) ToggleLike(_ context.Context, d *domain.Deck) error {
	return a.record("like " + d.ID)
}

func (a *fakeActions) ToggleFavorite(_ context.Context, deckID string, favorited bool) error {
	if favorited {
		return a.record("unfavorite " + deckID)
	}
	return a.record("favorite " + deckID)
}

func (a *fakeActions) ToggleVisibility(_ context.Context, d *domain.Deck) error {
	return a.record("visibility " + d.ID)
}

func (a *fakeActions) EditDeck(_ context.Context, d *domain.Deck, in domain.DeckInput) error {
	a.mu.Lock()
	a.decks = append(a.decks, in)
	a.mu.Unlock()
	return a.record("edit " + d.ID)
}

func (a *fakeActions) DeleteDeck(_ context.Context, d *domain.Deck) error {
	return a.record("delete " + d.ID)
}

func (a *fakeActions) AddCard(_ context.Context, d *domain.Deck, _ domain.CardInput) (string, error) {
	return "card-new", a.record("add-card " + d.ID)
}

func (a *fakeActions) EditCard(_ context.Context, _ *domain.Deck, c *domain.Card, _ domain.CardInput) error {
	return a.record("edit-card " + c.ID)
}

func (a *fakeActions) DeleteCard(_ context.Context, _ *domain.Deck, c *domain.Card) error {
	return a.record("delete-card " + c.ID)
}

func (a *fakeActions) PostComment(_ context.Context, deckID, text string) error {
	return a.record("comment " + deckID + " " + text)
}

func (a *fakeActions) DeleteComment(_ context.Context, c *domain.Comment) error {
	return a.record("delete-comment " + c.ID)
}

var (
	owner  = &domain.Identity{UserID: "usr-owner", Username: "olga"}
	viewer = &domain.Identity{UserID: "usr-viewer", Username: "vic"}
)

func spanishDeck() *domain.Deck {
	return &domain.Deck{
		ID:          "deck-1",
		Title:       "Spanish 101",
		Description: "Basic vocabulary",
		Tags:        []string{"spanish", "beginner"},
		OwnerID:     owner.UserID,
		IsPublic:    true,
		Likes:       map[string]bool{owner.UserID: true},
	}
}

func TestNewDeckView(t *testing.T) {
	d := spanishDeck()
	favs := map[string]struct{}{d.ID: {}}

	ov := NewDeckView(d, owner, nil)
	assert.True(t, ov.IsOwner)
	assert.True(t, ov.Liked)
	assert.False(t, ov.Favorited)
	assert.Equal(t, 1, ov.LikeCount)

	vv := NewDeckView(d, viewer, favs)
	assert.False(t, vv.IsOwner)
	assert.False(t, vv.Liked)
	assert.True(t, vv.Favorited)
	assert.True(t, vv.SignedIn)

	guest := NewDeckView(d, nil, favs)
	assert.False(t, guest.IsOwner)
	assert.False(t, guest.Favorited)
	assert.False(t, guest.SignedIn)
}

func TestDeckCard_NonOwnerHasNoOwnerControls(t *testing.T) {
	r := New(&fakeActions{})

	f := r.DeckCard(NewDeckView(spanishDeck(), viewer, nil))

	assert.Equal(t, []string{"deck/deck-1/favorite", "deck/deck-1/like", "deck/deck-1/open"}, f.ActionIDs())
	assert.Empty(t, f.Menu)
	html := f.HTML()
	assert.NotContains(t, html, "Edit deck")
	assert.NotContains(t, html, "Delete deck")
	// The owner likes the deck; the viewer's icon shows the viewer's state.
	assert.Contains(t, html, "♡")
	assert.NotContains(t, html, "❤️")
	assert.Contains(t, html, `<span class="like-count">1</span>`)
}

func TestDeckCard_OwnerControls(t *testing.T) {
	r := New(&fakeActions{})

	f := r.DeckCard(NewDeckView(spanishDeck(), owner, nil))

	assert.Equal(t, "deck/deck-1/menu", f.Menu)
	assert.Equal(t, []string{
		"deck/deck-1/delete",
		"deck/deck-1/edit",
		"deck/deck-1/favorite",
		"deck/deck-1/like",
		"deck/deck-1/menu",
		"deck/deck-1/open",
		"deck/deck-1/visibility",
	}, f.ActionIDs())
	html := f.HTML()
	assert.Contains(t, html, "Edit deck")
	assert.Contains(t, html, "Make private")
	assert.Contains(t, html, "❤️")
}

func TestDeckCard_SignedOutIsReadOnly(t *testing.T) {
	r := New(&fakeActions{})

	f := r.DeckCard(NewDeckView(spanishDeck(), nil, nil))

	assert.Equal(t, []string{"deck/deck-1/open"}, f.ActionIDs())
	assert.NotContains(t, f.HTML(), "bookmark")
}

func TestDeckCard_EscapesContent(t *testing.T) {
	r := New(&fakeActions{})
	d := spanishDeck()
	d.Title = `<script>alert("x")</script>`

	html := r.DeckCard(NewDeckView(d, viewer, nil)).HTML()
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestDeckCard_RenderIsIdempotent(t *testing.T) {
	r := New(&fakeActions{})
	v := NewDeckView(spanishDeck(), owner, map[string]struct{}{"deck-1": {}})

	a, b := r.DeckCard(v), r.DeckCard(v)
	assert.Equal(t, a.HTML(), b.HTML())
	assert.Equal(t, a.ActionIDs(), b.ActionIDs())
}

func TestDeckCard_HandlersCallActions(t *testing.T) {
	actions := &fakeActions{}
	r := New(actions)
	ctx := context.Background()
	d := spanishDeck()

	f := r.DeckCard(NewDeckView(d, owner, map[string]struct{}{d.ID: {}}))
	require.NoError(t, f.Handlers["deck/deck-1/like"](ctx, nil))
	require.NoError(t, f.Handlers["deck/deck-1/favorite"](ctx, nil))
	require.NoError(t, f.Handlers["deck/deck-1/edit"](ctx, map[string]string{
		"title": "Spanish 102", "description": "More", "tags": "a, b",
	}))

	assert.Equal(t, []string{"like deck-1", "unfavorite deck-1", "edit deck-1"}, actions.Calls())
	assert.Equal(t, domain.DeckInput{Title: "Spanish 102", Description: "More", Tags: "a, b"}, actions.decks[0])
}

func TestCardTile_OwnerOnlyMenu(t *testing.T) {
	r := New(&fakeActions{})
	d := spanishDeck()
	c := &domain.Card{ID: "card-1", DeckID: d.ID, Term: "hola", Definition: "hello"}

	assert.Equal(t, []string{"card/card-1/delete", "card/card-1/edit", "card/card-1/menu"}, r.CardTile(d, c, owner).ActionIDs())

	f := r.CardTile(d, c, viewer)
	assert.Empty(t, f.ActionIDs())
	assert.Contains(t, f.HTML(), "hola")
	assert.Contains(t, f.HTML(), "hello")
}

func TestCommentCard_AuthorOnlyMenu(t *testing.T) {
	actions := &fakeActions{}
	r := New(actions)
	c := &domain.Comment{ID: viewer.UserID, DeckID: "deck-1", Text: "nice", Username: "vic"}

	assert.Empty(t, r.CommentCard(c, owner).ActionIDs())

	f := r.CommentCard(c, viewer)
	assert.Equal(t, "comment/usr-viewer", f.Key)
	require.NoError(t, f.Handlers["comment/usr-viewer/edit"](context.Background(), map[string]string{"text": "great"}))
	require.NoError(t, f.Handlers["comment/usr-viewer/delete"](context.Background(), nil))
	assert.Equal(t, []string{"comment deck-1 great", "delete-comment usr-viewer"}, actions.Calls())
}

func TestCommentCard_AuthorAvatar(t *testing.T) {
	r := New(&fakeActions{})
	c := &domain.Comment{ID: "usr-ana", DeckID: "deck-1", Text: "hola", Username: "ána"}

	out := r.CommentCard(c, nil).HTML()
	assert.Contains(t, out, `class="avatar"`)
	assert.Contains(t, out, ">Á</span>")
	assert.Contains(t, out, AvatarColor("usr-ana"))
}

func TestAvatarColor(t *testing.T) {
	a := AvatarColor("usr-ana")
	assert.Regexp(t, `^#[0-9A-F]{6}$`, a)
	assert.Equal(t, a, AvatarColor("usr-ana"))
	assert.NotEqual(t, a, AvatarColor("usr-ben"))
}

func TestHSLToRGB(t *testing.T) {
	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, []uint8{127, 127, 127}, []uint8{r, g, b})

	r, g, b = hslToRGB(0, 1, 0.5)
	assert.Equal(t, []uint8{255, 0, 0}, []uint8{r, g, b})

	r, g, b = hslToRGB(120, 1, 0.5)
	assert.Equal(t, []uint8{0, 255, 0}, []uint8{r, g, b})
}

func TestHistoryItem_UnavailableHasNoOpen(t *testing.T) {
	r := New(&fakeActions{})
	e := &domain.HistoryEntry{DeckID: "deck-1", Title: "Spanish 101"}

	assert.Equal(t, []string{"history/deck-1/open"}, r.HistoryItem(e, true).ActionIDs())

	f := r.HistoryItem(e, false)
	assert.Empty(t, f.ActionIDs())
	assert.Contains(t, f.HTML(), "unavailable")
}

func TestSearchResult_OpensDeck(t *testing.T) {
	actions := &fakeActions{}
	r := New(actions)

	f := r.SearchResult(NewDeckView(spanishDeck(), viewer, nil))
	require.NoError(t, f.Handlers["result/deck-1/open"](context.Background(), nil))
	assert.Equal(t, []string{"open deck-1"}, actions.Calls())
}

func TestCreateDeckTile(t *testing.T) {
	actions := &fakeActions{}
	r := New(actions)

	f := r.CreateDeckTile()
	require.NoError(t, f.Handlers["create-deck/submit"](context.Background(), map[string]string{"title": "New"}))
	assert.Equal(t, []string{"create"}, actions.Calls())
	assert.Equal(t, "New", actions.decks[0].Title)
}

func TestRegion_ReplaceOverwrites(t *testing.T) {
	r := New(&fakeActions{})
	region := NewRegion("user-decks", nil)

	a := &domain.Deck{ID: "a", Title: "A", OwnerID: owner.UserID}
	b := &domain.Deck{ID: "b", Title: "B", OwnerID: owner.UserID}

	patch, ok := region.Replace(1, []*Fragment{r.DeckCard(NewDeckView(a, owner, nil)), r.DeckCard(NewDeckView(b, owner, nil))})
	require.True(t, ok)
	assert.Equal(t, []string{"deck/a", "deck/b"}, patch.Added)

	patch, ok = region.Replace(2, []*Fragment{r.DeckCard(NewDeckView(b, owner, nil))})
	require.True(t, ok)
	assert.Equal(t, []string{"deck/a"}, patch.Removed)
	assert.Equal(t, []string{"deck/b"}, region.Keys())
	assert.Equal(t, 1, strings.Count(region.HTML(), "deck-card"))
}

func TestRegion_IdenticalRepaintIsEmptyPatch(t *testing.T) {
	r := New(&fakeActions{})
	region := NewRegion("public-decks", nil)
	v := NewDeckView(spanishDeck(), viewer, nil)

	_, ok := region.Replace(1, []*Fragment{r.DeckCard(v)})
	require.True(t, ok)
	before := region.HTML()

	patch, ok := region.Replace(2, []*Fragment{r.DeckCard(v)})
	require.True(t, ok)
	assert.True(t, patch.Empty())
	assert.Equal(t, strings.Replace(before, `data-gen="1"`, `data-gen="2"`, 1), region.HTML())
}

func TestRegion_StaleGenerationIgnored(t *testing.T) {
	r := New(&fakeActions{})
	region := NewRegion("public-decks", nil)

	_, ok := region.Replace(5, []*Fragment{r.Empty("No decks yet")})
	require.True(t, ok)

	_, ok = region.Replace(4, []*Fragment{r.DeckCard(NewDeckView(spanishDeck(), viewer, nil))})
	assert.False(t, ok)
	assert.Equal(t, []string{KeyEmpty}, region.Keys())
	assert.Equal(t, uint64(5), region.Gen())
}

func TestRegion_DuplicateKeysKeepFirst(t *testing.T) {
	r := New(&fakeActions{})
	region := NewRegion("user-decks", nil)
	v := NewDeckView(spanishDeck(), viewer, nil)

	_, ok := region.Replace(1, []*Fragment{r.DeckCard(v), r.DeckCard(v)})
	require.True(t, ok)
	assert.Equal(t, 1, region.Len())
}

func TestRegion_DropdownStateMachine(t *testing.T) {
	r := New(&fakeActions{})
	region := NewRegion("user-decks", nil)
	ctx := context.Background()

	a := &domain.Deck{ID: "a", Title: "A", OwnerID: owner.UserID}
	b := &domain.Deck{ID: "b", Title: "B", OwnerID: owner.UserID}
	paint := func(gen uint64) {
		_, ok := region.Replace(gen, []*Fragment{r.DeckCard(NewDeckView(a, owner, nil)), r.DeckCard(NewDeckView(b, owner, nil))})
		require.True(t, ok)
	}
	state := func(key string) DropdownState {
		s, ok := region.DropdownState(key)
		require.True(t, ok)
		return s
	}

	paint(1)
	assert.Equal(t, Closed, state("deck/a"))

	require.NoError(t, region.Dispatch(ctx, "deck/a/menu", nil))
	assert.Equal(t, Open, state("deck/a"))
	assert.Contains(t, region.HTML(), `data-state="open"`)

	// A repaint keeps the open menu.
	paint(2)
	assert.Equal(t, Open, state("deck/a"))

	// Opening another menu is an outside click for the first.
	require.NoError(t, region.Dispatch(ctx, "deck/b/menu", nil))
	assert.Equal(t, Closed, state("deck/a"))
	assert.Equal(t, Open, state("deck/b"))

	region.ClickOutside()
	assert.Equal(t, Closed, state("deck/b"))
	assert.NotContains(t, region.HTML(), `data-state="open"`)

	require.NoError(t, region.Dispatch(ctx, "deck/a/menu", nil))
	require.NoError(t, region.Dispatch(ctx, "deck/a/menu", nil))
	assert.Equal(t, Closed, state("deck/a"))
}

func TestRegion_DispatchRunsHandlerAndClosesMenu(t *testing.T) {
	actions := &fakeActions{}
	r := New(actions)
	region := NewRegion("user-decks", nil)
	ctx := context.Background()

	_, ok := region.Replace(1, []*Fragment{r.DeckCard(NewDeckView(spanishDeck(), owner, nil))})
	require.True(t, ok)

	require.NoError(t, region.Dispatch(ctx, "deck/deck-1/menu", nil))
	require.NoError(t, region.Dispatch(ctx, "deck/deck-1/visibility", nil))

	s, _ := region.DropdownState("deck/deck-1")
	assert.Equal(t, Closed, s)
	assert.Equal(t, []string{"visibility deck-1"}, actions.Calls())
}

func TestRegion_DispatchErrors(t *testing.T) {
	actions := &fakeActions{err: errors.New("denied")}
	r := New(actions)
	region := NewRegion("public-decks", nil)
	ctx := context.Background()

	_, ok := region.Replace(1, []*Fragment{r.DeckCard(NewDeckView(spanishDeck(), viewer, nil))})
	require.True(t, ok)

	assert.ErrorIs(t, region.Dispatch(ctx, "deck/gone/like", nil), ErrUnknownAction)
	assert.EqualError(t, region.Dispatch(ctx, "deck/deck-1/like", nil), "denied")
}
