package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeck_LikeCountMatchesMapSize(t *testing.T) {
	deck := &Deck{Likes: map[string]bool{"usr-a": true, "usr-b": true}}
	assert.Equal(t, 2, deck.LikeCount())

	empty := &Deck{}
	assert.Equal(t, 0, empty.LikeCount())
}

func TestDeck_IsLikedBy_PresenceNotValue(t *testing.T) {
	deck := &Deck{Likes: map[string]bool{"usr-a": true, "usr-b": false}}

	assert.True(t, deck.IsLikedBy("usr-a"))
	assert.True(t, deck.IsLikedBy("usr-b"))
	assert.False(t, deck.IsLikedBy("usr-c"))
	assert.False(t, deck.IsLikedBy(""))
}

func TestDeck_Ownership(t *testing.T) {
	deck := &Deck{OwnerID: "usr-owner"}

	assert.True(t, deck.IsOwnedBy("usr-owner"))
	assert.False(t, deck.IsOwnedBy("usr-other"))
	assert.False(t, deck.IsOwnedBy(""))

	assert.False(t, deck.VisibleTo("usr-other"))
	assert.True(t, deck.VisibleTo("usr-owner"))
	deck.IsPublic = true
	assert.True(t, deck.VisibleTo(""))
}

func TestComment_AuthorIsID(t *testing.T) {
	c := &Comment{ID: "usr-a"}
	assert.Equal(t, "usr-a", c.AuthorID())
	assert.True(t, c.IsAuthoredBy("usr-a"))
	assert.False(t, c.IsAuthoredBy("usr-b"))
}

func TestIdentity_DisplayName(t *testing.T) {
	var nobody *Identity
	assert.Equal(t, "User", nobody.DisplayName())
	assert.Equal(t, "User", (&Identity{UserID: "usr-a"}).DisplayName())
	assert.Equal(t, "ana", (&Identity{Username: "ana"}).DisplayName())
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"only separators", " , ,, ", []string{}},
		{"trims", " spanish ,  beginner", []string{"spanish", "beginner"}},
		{"dedupes case-insensitively keeping first", "Spanish, spanish, SPANISH, verbs", []string{"Spanish", "verbs"}},
		{"normalizes composed forms", "café, café", []string{"café"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "decks/deck-1/cards/card-1", CardPath("deck-1", "card-1"))
	assert.Equal(t, "decks/deck-1/comments/usr-a", CommentPath("deck-1", "usr-a"))
	assert.Equal(t, "users/usr-a/savedDecks/deck-1", FavoritePath("usr-a", "deck-1"))
	assert.Equal(t, "users/usr-a/history/deck-1", HistoryEntryPath("usr-a", "deck-1"))
	assert.Equal(t, "likes.usr-a", LikePath("usr-a"))
}
