package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
	"github.com/flashcardexchange/flashcards/internal/store"
)

var (
	alice = &domain.Identity{UserID: "usr-alice", Username: "alice", Email: "alice@example.com"}
	bob   = &domain.Identity{UserID: "usr-bob", Email: "bob@example.com"}
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// recordingStore counts calls and optionally fails them.
type recordingStore struct {
	Store
	mu    sync.Mutex
	calls int
	err   error
}

func (r *recordingStore) hit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *recordingStore) Add(ctx context.Context, c string, d map[string]any) (string, error) {
	if err := r.hit(); err != nil {
		return "", err
	}
	return r.Store.Add(ctx, c, d)
}

func (r *recordingStore) Set(ctx context.Context, p string, d map[string]any, opts ...store.SetOption) error {
	if err := r.hit(); err != nil {
		return err
	}
	return r.Store.Set(ctx, p, d, opts...)
}

func (r *recordingStore) Update(ctx context.Context, p string, f map[string]any) error {
	if err := r.hit(); err != nil {
		return err
	}
	return r.Store.Update(ctx, p, f)
}

func (r *recordingStore) Delete(ctx context.Context, p string) error {
	if err := r.hit(); err != nil {
		return err
	}
	return r.Store.Delete(ctx, p)
}

func getDeck(t *testing.T, s *store.Store, deckID string) *domain.Deck {
	t.Helper()

	doc, err := s.Get(context.Background(), domain.DeckPath(deckID))
	require.NoError(t, err)
	var d domain.Deck
	require.NoError(t, doc.DataTo(&d))
	d.ID = doc.ID
	return &d
}

func createDeck(t *testing.T, g *Gateway, title string) string {
	t.Helper()

	deckID, err := g.CreateDeck(context.Background(), domain.DeckInput{Title: title, Tags: "spanish, beginner"})
	require.NoError(t, err)
	return deckID
}

func TestCreateDeck(t *testing.T) {
	s := setupTestStore(t)
	g := New(s, alice, Options{})

	deckID, err := g.CreateDeck(context.Background(), domain.DeckInput{
		Title:       "  Spanish 101 ",
		Description: "Basic vocabulary",
		Tags:        "spanish, beginner, Spanish,, ",
	})
	require.NoError(t, err)

	d := getDeck(t, s, deckID)
	assert.Equal(t, "Spanish 101", d.Title)
	assert.Equal(t, []string{"spanish", "beginner"}, d.Tags)
	assert.Equal(t, alice.UserID, d.OwnerID)
	assert.False(t, d.IsPublic)
	assert.Empty(t, d.Likes)
	assert.False(t, d.CreatedAt.IsZero())
}

func TestCreateDeck_ValidationAbortsBeforeMutation(t *testing.T) {
	rs := &recordingStore{Store: setupTestStore(t)}
	g := New(rs, alice, Options{})

	_, err := g.CreateDeck(context.Background(), domain.DeckInput{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
	assert.Equal(t, domain.MsgDeckTitleRequired, domainerrors.MessageOf(err))
	assert.Zero(t, rs.calls)
}

func TestCreateDeck_SignedOut(t *testing.T) {
	rs := &recordingStore{Store: setupTestStore(t)}
	g := New(rs, nil, Options{})

	_, err := g.CreateDeck(context.Background(), domain.DeckInput{Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.Zero(t, rs.calls)
}

func TestToggleLike_OnlyTouchesViewerEntry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	deckID := createDeck(t, New(s, alice, Options{}), "Spanish 101")

	require.NoError(t, s.Update(ctx, domain.DeckPath(deckID), map[string]any{
		domain.LikePath("usr-x"): true,
		domain.LikePath("usr-y"): true,
	}))

	g := New(s, bob, Options{})

	require.NoError(t, g.ToggleLike(ctx, getDeck(t, s, deckID)))
	d := getDeck(t, s, deckID)
	assert.True(t, d.IsLikedBy(bob.UserID))
	assert.Equal(t, 3, d.LikeCount())

	require.NoError(t, g.ToggleLike(ctx, d))
	d = getDeck(t, s, deckID)
	assert.False(t, d.IsLikedBy(bob.UserID))
	assert.Equal(t, map[string]bool{"usr-x": true, "usr-y": true}, d.Likes)
}

func TestToggleFavorite_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, bob, Options{})

	favorites := func() []string {
		docs, err := s.Query(ctx, store.Collection(domain.FavoritesPath(bob.UserID)))
		require.NoError(t, err)
		out := make([]string, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	require.NoError(t, g.ToggleFavorite(ctx, "deck-other", false))
	before := favorites()

	for range 2 {
		require.NoError(t, g.ToggleFavorite(ctx, "deck-1", false))
		assert.ElementsMatch(t, append([]string{"deck-1"}, before...), favorites())
		require.NoError(t, g.ToggleFavorite(ctx, "deck-1", true))
		assert.Equal(t, before, favorites())
	}
}

func TestOwnerOnlyCommands(t *testing.T) {
	rs := &recordingStore{Store: setupTestStore(t)}
	ctx := context.Background()
	deckID := createDeck(t, New(rs, alice, Options{}), "Spanish 101")
	d := getDeck(t, rs.Store.(*store.Store), deckID)
	card := &domain.Card{ID: "card-1", DeckID: deckID}
	calls := rs.calls

	g := New(rs, bob, Options{})
	for name, fn := range map[string]func() error{
		"visibility":  func() error { return g.ToggleVisibility(ctx, d) },
		"edit":        func() error { return g.EditDeck(ctx, d, domain.DeckInput{Title: "x"}) },
		"delete":      func() error { return g.DeleteDeck(ctx, d) },
		"add card":    func() error { _, err := g.AddCard(ctx, d, domain.CardInput{Term: "a", Definition: "b"}); return err },
		"edit card":   func() error { return g.EditCard(ctx, d, card, domain.CardInput{Term: "a", Definition: "b"}) },
		"delete card": func() error { return g.DeleteCard(ctx, d, card) },
	} {
		t.Run(name, func(t *testing.T) {
			err := fn()
			assert.ErrorIs(t, err, domainerrors.ErrForbidden)
			assert.Equal(t, MsgNotDeckOwner, domainerrors.MessageOf(err))
		})
	}
	assert.Equal(t, calls, rs.calls)
}

func TestToggleVisibility(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, alice, Options{})
	deckID := createDeck(t, g, "Spanish 101")

	require.NoError(t, g.ToggleVisibility(ctx, getDeck(t, s, deckID)))
	assert.True(t, getDeck(t, s, deckID).IsPublic)

	require.NoError(t, g.ToggleVisibility(ctx, getDeck(t, s, deckID)))
	assert.False(t, getDeck(t, s, deckID).IsPublic)
}

func TestEditDeck_KeepsLikesAndVisibility(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, alice, Options{})
	deckID := createDeck(t, g, "Spanish 101")

	require.NoError(t, g.ToggleVisibility(ctx, getDeck(t, s, deckID)))
	require.NoError(t, New(s, bob, Options{}).ToggleLike(ctx, getDeck(t, s, deckID)))

	require.NoError(t, g.EditDeck(ctx, getDeck(t, s, deckID), domain.DeckInput{
		Title: "Spanish 102", Description: "More words", Tags: " verbs ,VERBS, nouns",
	}))

	d := getDeck(t, s, deckID)
	assert.Equal(t, "Spanish 102", d.Title)
	assert.Equal(t, "More words", d.Description)
	assert.Equal(t, []string{"verbs", "nouns"}, d.Tags)
	assert.True(t, d.IsPublic)
	assert.True(t, d.IsLikedBy(bob.UserID))
}

func TestDeleteDeck_Cascades(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, alice, Options{})
	deckID := createDeck(t, g, "Spanish 101")
	d := getDeck(t, s, deckID)

	_, err := g.AddCard(ctx, d, domain.CardInput{Term: "hola", Definition: "hello"})
	require.NoError(t, err)
	require.NoError(t, g.PostComment(ctx, deckID, "mine"))
	require.NoError(t, g.ToggleFavorite(ctx, deckID, false))
	require.NoError(t, g.RecordVisit(ctx, d))

	other := New(s, bob, Options{})
	require.NoError(t, other.ToggleFavorite(ctx, deckID, false))

	require.NoError(t, g.DeleteDeck(ctx, d))

	_, err = s.Get(ctx, domain.DeckPath(deckID))
	assert.ErrorIs(t, err, store.ErrNotFound)
	for _, c := range []string{
		domain.CardsPath(deckID),
		domain.CommentsPath(deckID),
		domain.FavoritesPath(alice.UserID),
		domain.HistoryPath(alice.UserID),
	} {
		docs, err := s.Query(ctx, store.Collection(c))
		require.NoError(t, err)
		assert.Empty(t, docs, c)
	}

	// Another user's bookmark is left as a soft orphan.
	_, err = s.Get(ctx, domain.FavoritePath(bob.UserID, deckID))
	assert.NoError(t, err)
}

func TestCards(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, alice, Options{})
	deckID := createDeck(t, g, "Spanish 101")
	d := getDeck(t, s, deckID)

	_, err := g.AddCard(ctx, d, domain.CardInput{Term: " ", Definition: "hello"})
	assert.Equal(t, domain.MsgCardFieldsRequired, domainerrors.MessageOf(err))

	cardID, err := g.AddCard(ctx, d, domain.CardInput{Term: " hola ", Definition: "hello"})
	require.NoError(t, err)

	card := &domain.Card{ID: cardID, DeckID: deckID}
	require.NoError(t, g.EditCard(ctx, d, card, domain.CardInput{Term: "adiós", Definition: "goodbye"}))

	doc, err := s.Get(ctx, domain.CardPath(deckID, cardID))
	require.NoError(t, err)
	assert.Equal(t, "adiós", doc.Data[domain.FieldTerm])
	assert.Contains(t, doc.Data, domain.FieldCreatedAt)

	require.NoError(t, g.DeleteCard(ctx, d, card))
	_, err = s.Get(ctx, domain.CardPath(deckID, cardID))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEditCard_MissingCardIsNotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, alice, Options{})
	d := getDeck(t, s, createDeck(t, g, "Spanish 101"))

	err := g.EditCard(ctx, d, &domain.Card{ID: "card-gone"}, domain.CardInput{Term: "a", Definition: "b"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Equal(t, MsgUpdateCardFailed, domainerrors.MessageOf(err))
}

func TestPostComment_OnePerUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, alice, Options{})

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, g.PostComment(ctx, "deck-1", text))
	}
	require.NoError(t, New(s, bob, Options{}).PostComment(ctx, "deck-1", "hi"))

	docs, err := s.Query(ctx, store.Collection(domain.CommentsPath("deck-1")))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byAuthor := map[string]map[string]any{}
	for _, d := range docs {
		byAuthor[d.ID] = d.Data
	}
	assert.Equal(t, "third", byAuthor[alice.UserID][domain.FieldText])
	assert.Equal(t, "alice", byAuthor[alice.UserID][domain.FieldUsername])
	assert.Equal(t, domain.DefaultCommentUsername, byAuthor[bob.UserID][domain.FieldUsername])
}

func TestPostComment_Validation(t *testing.T) {
	rs := &recordingStore{Store: setupTestStore(t)}
	g := New(rs, alice, Options{})

	err := g.PostComment(context.Background(), "deck-1", "  ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Zero(t, rs.calls)
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, New(s, alice, Options{}).PostComment(ctx, "deck-1", "mine"))

	c := &domain.Comment{ID: alice.UserID, DeckID: "deck-1"}
	assert.ErrorIs(t, New(s, bob, Options{}).DeleteComment(ctx, c), domainerrors.ErrForbidden)

	require.NoError(t, New(s, alice, Options{}).DeleteComment(ctx, c))
	_, err := s.Get(ctx, domain.CommentPath("deck-1", alice.UserID))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordVisit_Merges(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	g := New(s, bob, Options{})
	path := domain.HistoryEntryPath(bob.UserID, "deck-1")

	require.NoError(t, s.Set(ctx, path, map[string]any{"pinned": true}))
	require.NoError(t, g.RecordVisit(ctx, &domain.Deck{ID: "deck-1", Title: "Spanish 101", Description: "v1"}))
	first, err := s.Get(ctx, path)
	require.NoError(t, err)

	require.NoError(t, g.RecordVisit(ctx, &domain.Deck{ID: "deck-1", Title: "Spanish 102", Description: "v2"}))
	doc, err := s.Get(ctx, path)
	require.NoError(t, err)

	var e domain.HistoryEntry
	require.NoError(t, doc.DataTo(&e))
	assert.Equal(t, "Spanish 102", e.Title)
	assert.Equal(t, "v2", e.Description)
	assert.Equal(t, "deck-1", e.DeckID)
	assert.Equal(t, true, doc.Data["pinned"])
	assert.True(t, doc.UpdateTime.After(first.UpdateTime))
}

func TestBackendFailureIsBlocking(t *testing.T) {
	rs := &recordingStore{Store: setupTestStore(t), err: errors.New("connection reset")}
	g := New(rs, alice, Options{})

	_, err := g.CreateDeck(context.Background(), domain.DeckInput{Title: "Spanish 101"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeUnavailable, domainerrors.CodeOf(err))
	assert.True(t, domainerrors.CodeOf(err).Blocking())
	assert.Equal(t, MsgCreateDeckFailed, domainerrors.MessageOf(err))
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(0.001, 2, ratelimit.WithIdleTTL(time.Minute))
	t.Cleanup(limiter.Stop)

	s := setupTestStore(t)
	g := New(s, bob, Options{Limiter: limiter})
	ctx := context.Background()

	require.NoError(t, g.ToggleFavorite(ctx, "deck-1", false))
	require.NoError(t, g.ToggleFavorite(ctx, "deck-1", true))
	err := g.ToggleFavorite(ctx, "deck-1", false)
	assert.ErrorIs(t, err, domainerrors.ErrRateLimited)

	// Limits are per viewer.
	require.NoError(t, New(s, alice, Options{Limiter: limiter}).ToggleFavorite(ctx, "deck-1", false))
}
