package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAccount struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newAccounts(s *Store) *Entity[testAccount] {
	lower := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }
	return NewEntity[testAccount](s, "acct:").WithIndexTransform("email",
		func(a *testAccount) []string { return []string{lower(a.Email)} },
		lower,
	)
}

func TestEntity_Create_Success(t *testing.T) {
	s := setupTestStore(t)
	accounts := newAccounts(s)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "Ana@Example.com"}))

	got, err := accounts.Get(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana@Example.com", got.Email)
}

func TestEntity_Create_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	accounts := newAccounts(s)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "a@x.io"}))
	err := accounts.Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "b@x.io"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestEntity_Create_DuplicateIndexValue(t *testing.T) {
	s := setupTestStore(t)
	accounts := newAccounts(s)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "a@x.io"}))
	err := accounts.Create(ctx, "usr-2", &testAccount{ID: "usr-2", Email: "A@X.io"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestEntity_GetByIndex_AppliesTransform(t *testing.T) {
	s := setupTestStore(t)
	accounts := newAccounts(s)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "a@x.io"}))

	got, err := accounts.GetByIndex(ctx, "email", "  A@X.IO ")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.ID)

	_, err = accounts.GetByIndex(ctx, "email", "nobody@x.io")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntity_Delete_FreesIndex(t *testing.T) {
	s := setupTestStore(t)
	accounts := newAccounts(s)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "a@x.io"}))
	require.NoError(t, accounts.Delete(ctx, "usr-1"))
	require.NoError(t, accounts.Delete(ctx, "usr-1"))

	_, err := accounts.Get(ctx, "usr-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, accounts.Create(ctx, "usr-2", &testAccount{ID: "usr-2", Email: "a@x.io"}))
}

func TestEntity_InvisibleToCollections(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, newAccounts(s).Create(ctx, "usr-1", &testAccount{ID: "usr-1", Email: "a@x.io"}))

	docs, err := s.Query(ctx, Collection("acct:"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}
