package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcardexchange/flashcards/internal/domain"
)

func setupIndex(t *testing.T, decks ...*domain.Deck) *Index {
	t.Helper()

	idx, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Rebuild(1, decks))
	return idx
}

func resultIDs(v *View) []string {
	out := make([]string, 0, len(v.Results))
	for _, d := range v.Results {
		out = append(out, d.ID)
	}
	return out
}

var spanish = &domain.Deck{ID: "d1", Title: "Spanish 101", Description: "Basic vocabulary", Tags: []string{"spanish", "beginner"}}

func TestQuery_EmptyHidesOverlay(t *testing.T) {
	idx := setupIndex(t, spanish)

	for _, q := range []string{"", "   "} {
		v, err := idx.Query(q)
		require.NoError(t, err)
		assert.False(t, v.Visible)
		assert.False(t, v.Dimmed)
		assert.Empty(t, v.Results)
	}
}

func TestQuery_TagMatchIgnoresCase(t *testing.T) {
	idx := setupIndex(t, spanish)

	v, err := idx.Query("BEGIN")
	require.NoError(t, err)
	assert.True(t, v.Visible)
	assert.True(t, v.Dimmed)
	assert.Equal(t, []string{"d1"}, resultIDs(v))

	v, err = idx.Query("Spanish")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, resultIDs(v))
}

func TestQuery_SubstringOfTitleAndDescription(t *testing.T) {
	idx := setupIndex(t,
		spanish,
		&domain.Deck{ID: "d2", Title: "Organic Chemistry", Description: "Reactions and mechanisms"},
	)

	tests := []struct {
		q    string
		want []string
	}{
		{"nish 1", []string{"d1"}},
		{"VOCAB", []string{"d1"}},
		{"chem", []string{"d2"}},
		{"and mech", []string{"d2"}},
		{"i", []string{"d1", "d2"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			v, err := idx.Query(tt.q)
			require.NoError(t, err)
			assert.True(t, v.Visible)
			assert.Equal(t, tt.want, resultIDs(v))
		})
	}
}

func TestQuery_MatchesAcrossLineBreaks(t *testing.T) {
	idx := setupIndex(t,
		&domain.Deck{ID: "d1", Title: "Spanish\nweek one", Description: "Basic vocabulary\nfor week one\n\nand two"},
	)

	for _, q := range []string{"vocab", "week", "and two", "SPANISH"} {
		t.Run(q, func(t *testing.T) {
			v, err := idx.Query(q)
			require.NoError(t, err)
			assert.Equal(t, []string{"d1"}, resultIDs(v))
		})
	}
}

func TestQuery_RegexpMetacharactersAreLiteral(t *testing.T) {
	idx := setupIndex(t,
		&domain.Deck{ID: "d1", Title: "C++ basics"},
		&domain.Deck{ID: "d2", Title: "Cats"},
	)

	v, err := idx.Query("c++")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, resultIDs(v))

	v, err = idx.Query(".*")
	require.NoError(t, err)
	assert.Empty(t, v.Results)
}

func TestQuery_ResultsInCorpusOrder(t *testing.T) {
	idx := setupIndex(t,
		&domain.Deck{ID: "owned-2", Title: "verbs b"},
		&domain.Deck{ID: "owned-1", Title: "verbs a"},
		&domain.Deck{ID: "public-1", Title: "Verbs c"},
	)

	v, err := idx.Query("verbs")
	require.NoError(t, err)
	assert.Equal(t, []string{"owned-2", "owned-1", "public-1"}, resultIDs(v))
}

func TestRebuild_ReplacesCorpus(t *testing.T) {
	idx := setupIndex(t, spanish)

	require.NoError(t, idx.Rebuild(2, []*domain.Deck{{ID: "d9", Title: "French"}}))
	assert.Equal(t, 1, idx.Len())

	v, err := idx.Query("spanish")
	require.NoError(t, err)
	assert.Empty(t, v.Results)

	v, err = idx.Query("fren")
	require.NoError(t, err)
	assert.Equal(t, []string{"d9"}, resultIDs(v))
}

func TestRebuild_IgnoresOlderGeneration(t *testing.T) {
	idx := setupIndex(t)

	require.NoError(t, idx.Rebuild(5, []*domain.Deck{{ID: "new", Title: "newest"}}))
	require.NoError(t, idx.Rebuild(3, []*domain.Deck{{ID: "old", Title: "older"}}))

	v, err := idx.Query("e")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, resultIDs(v))
	assert.Equal(t, uint64(5), idx.Gen())
}

func TestQuery_AfterClose(t *testing.T) {
	idx, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Query("x")
	assert.ErrorIs(t, err, ErrClosed)
}
