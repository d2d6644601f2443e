package domain

import "time"

// MinUsernameLength is the shortest username accepted at setup.
const MinUsernameLength = 3

// DefaultCommentUsername is used when a commenter has not chosen a username.
const DefaultCommentUsername = "User"

// Identity is the signed-in user as seen by the client.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// DisplayName returns the username, or the comment fallback when unset.
func (i *Identity) DisplayName() string {
	if i == nil || i.Username == "" {
		return DefaultCommentUsername
	}
	return i.Username
}

// Profile is the public user document at users/{id}.
type Profile struct {
	CreatedAt time.Time `json:"createdAt"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
}

// Credential is the private sign-in record kept by the session provider.
type Credential struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
}

// FavoriteMark records that a user bookmarked a deck. Presence is the whole
// signal; the deck itself is never copied.
type FavoriteMark struct {
	SavedAt time.Time `json:"savedAt"`
	DeckID  string    `json:"-"`
}

// HistoryEntry records a user's latest visit to a deck, with a snapshot of the
// deck's title and description at that time.
type HistoryEntry struct {
	LastVisited time.Time `json:"lastVisited"`
	DeckID      string    `json:"deckId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
