package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/store"
)

func setupAccounts(t *testing.T) (*Accounts, *store.Store) {
	t.Helper()

	s, err := store.New(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	hasher := auth.NewHasher(auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	return NewAccounts(s, hasher, nil), s
}

type identityLog struct {
	mu  sync.Mutex
	got []*domain.Identity
}

func (l *identityLog) record(i *domain.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, i)
}

func (l *identityLog) all() []*domain.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.Identity(nil), l.got...)
}

func TestBoundary_OnIdentityChange_DeliversImmediately(t *testing.T) {
	accounts, _ := setupAccounts(t)
	b := NewBoundary(accounts, nil)

	var log identityLog
	cancel := b.OnIdentityChange(log.record)
	defer cancel()

	got := log.all()
	require.Len(t, got, 1)
	assert.Nil(t, got[0])
}

func TestBoundary_SignUpSignOutSignIn(t *testing.T) {
	accounts, _ := setupAccounts(t)
	b := NewBoundary(accounts, nil)
	ctx := context.Background()

	var log identityLog
	cancel := b.OnIdentityChange(log.record)
	defer cancel()

	created, err := b.CreateIdentity(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserID)

	b.SignOut(ctx)
	b.SignOut(ctx)
	assert.Nil(t, b.Current())

	signedIn, err := b.SignIn(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, signedIn.UserID)

	got := log.all()
	require.Len(t, got, 4)
	assert.Nil(t, got[0])
	assert.Equal(t, created.UserID, got[1].UserID)
	assert.Nil(t, got[2])
	assert.Equal(t, created.UserID, got[3].UserID)
}

func TestBoundary_CancelStopsNotifications(t *testing.T) {
	accounts, _ := setupAccounts(t)
	b := NewBoundary(accounts, nil)

	var log identityLog
	cancel := b.OnIdentityChange(log.record)
	cancel()
	cancel()

	_, err := b.CreateIdentity(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, log.all(), 1)
}

func TestBoundary_CreateIdentity_Failures(t *testing.T) {
	accounts, _ := setupAccounts(t)
	b := NewBoundary(accounts, nil)
	ctx := context.Background()

	_, err := b.CreateIdentity(ctx, "not-an-email", "secret1")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	assert.Equal(t, "please enter a valid email address", domainerrors.MessageOf(err))

	_, err = b.CreateIdentity(ctx, "ana@example.com", "123")
	require.Error(t, err)
	assert.Equal(t, "password must be at least 6 characters", domainerrors.MessageOf(err))

	_, err = b.CreateIdentity(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = b.CreateIdentity(ctx, "Ana@Example.com", "secret2")
	require.Error(t, err)
	assert.Equal(t, MsgEmailInUse, domainerrors.MessageOf(err))
}

func TestBoundary_SignIn_WrongPassword(t *testing.T) {
	accounts, _ := setupAccounts(t)
	b := NewBoundary(accounts, nil)
	ctx := context.Background()

	_, err := b.CreateIdentity(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	b.SignOut(ctx)

	_, err = b.SignIn(ctx, "ana@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Nil(t, b.Current())

	_, err = b.SignIn(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, MsgInvalidCredentials, domainerrors.MessageOf(err))
}

func TestBoundary_SetUsername(t *testing.T) {
	accounts, s := setupAccounts(t)
	b := NewBoundary(accounts, nil)
	ctx := context.Background()

	require.Error(t, b.SetUsername(ctx, "ana"))

	_, err := b.CreateIdentity(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	err = b.SetUsername(ctx, " an ")
	require.Error(t, err)
	assert.Equal(t, MsgUsernameTooShort, domainerrors.MessageOf(err))

	require.NoError(t, b.SetUsername(ctx, "ana"))
	assert.Equal(t, "ana", b.Current().Username)

	doc, err := s.Get(ctx, domain.UserPath(b.Current().UserID))
	require.NoError(t, err)
	assert.Equal(t, "ana", doc.Data["username"])
	assert.Equal(t, "ana@example.com", doc.Data["email"])

	err = b.SetUsername(ctx, "someone-else")
	assert.Equal(t, MsgUsernameTaken, domainerrors.MessageOf(err))

	b.SignOut(ctx)
	again, err := b.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana", again.Username)
}

func TestBoundary_DeleteIdentity(t *testing.T) {
	accounts, s := setupAccounts(t)
	b := NewBoundary(accounts, nil)
	ctx := context.Background()

	identity, err := b.CreateIdentity(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, b.SetUsername(ctx, "ana"))
	require.NoError(t, s.Set(ctx, domain.FavoritePath(identity.UserID, "deck-1"), map[string]any{"savedAt": store.ServerTimestamp}))
	require.NoError(t, s.Set(ctx, "decks/deck-9", map[string]any{"ownerId": identity.UserID}))

	require.NoError(t, b.DeleteIdentity(ctx))
	assert.Nil(t, b.Current())

	_, err = s.Get(ctx, domain.UserPath(identity.UserID))
	assert.ErrorIs(t, err, store.ErrNotFound)
	favs, err := s.Query(ctx, store.Collection(domain.FavoritesPath(identity.UserID)))
	require.NoError(t, err)
	assert.Empty(t, favs)

	_, err = s.Get(ctx, "decks/deck-9")
	require.NoError(t, err, "authored decks are kept")

	_, err = b.SignIn(ctx, "ana@example.com", "secret1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))

	_, err = b.CreateIdentity(ctx, "ana@example.com", "secret1")
	require.NoError(t, err, "email is free again")
}
