// Package domain holds the flashcard library's entities and the document
// layout they are stored under.
package domain

import "time"

// Document field names shared by the gateway (writes) and the mirror (queries).
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldOwnerID     = "ownerId"
	FieldIsPublic    = "isPublic"
	FieldLikes       = "likes"
	FieldCreatedAt   = "createdAt"
	FieldTerm        = "term"
	FieldDefinition  = "definition"
	FieldText        = "text"
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldSavedAt     = "savedAt"
	FieldDeckID      = "deckId"
	FieldLastVisited = "lastVisited"
)

// LikePath returns the dotted field path of one user's entry in a deck's likes map.
func LikePath(userID string) string {
	return FieldLikes + "." + userID
}

// Deck is a titled set of cards authored by one user.
type Deck struct {
	CreatedAt   time.Time       `json:"createdAt"`
	Likes       map[string]bool `json:"likes"`
	ID          string          `json:"-"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	OwnerID     string          `json:"ownerId"`
	Tags        []string        `json:"tags"`
	IsPublic    bool            `json:"isPublic"`
}

// LikeCount returns the number of users that like the deck.
// Presence of a key is what counts, never its value.
func (d *Deck) LikeCount() int {
	return len(d.Likes)
}

// IsLikedBy reports whether userID has an entry in the likes map.
func (d *Deck) IsLikedBy(userID string) bool {
	if userID == "" {
		return false
	}
	_, ok := d.Likes[userID]
	return ok
}

// IsOwnedBy reports whether userID authored the deck.
func (d *Deck) IsOwnedBy(userID string) bool {
	return userID != "" && d.OwnerID == userID
}

// VisibleTo reports whether a viewer may see the deck at all: public decks are
// visible to everyone, private decks only to their owner.
func (d *Deck) VisibleTo(userID string) bool {
	return d.IsPublic || d.IsOwnedBy(userID)
}

// Card is one term/definition pair inside a deck.
type Card struct {
	CreatedAt  time.Time `json:"createdAt"`
	ID         string    `json:"-"`
	DeckID     string    `json:"-"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
}

// Comment is a user's single comment on a deck. Its ID is the author's user id,
// so a deck holds at most one comment per user.
type Comment struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"-"`
	DeckID    string    `json:"-"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
}

// AuthorID returns the user that wrote the comment.
func (c *Comment) AuthorID() string {
	return c.ID
}

// IsAuthoredBy reports whether userID wrote the comment.
func (c *Comment) IsAuthoredBy(userID string) bool {
	return userID != "" && c.ID == userID
}
