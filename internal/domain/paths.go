package domain

// Collection paths. Subcollections hang off a parent document path.
const (
	CollectionDecks      = "decks"
	CollectionUsers      = "users"
	CollectionCards      = "cards"
	CollectionComments   = "comments"
	CollectionSavedDecks = "savedDecks"
	CollectionHistory    = "history"
)

// DeckPath is decks/{deckID}.
func DeckPath(deckID string) string {
	return CollectionDecks + "/" + deckID
}

// CardsPath is decks/{deckID}/cards.
func CardsPath(deckID string) string {
	return DeckPath(deckID) + "/" + CollectionCards
}

// CardPath is decks/{deckID}/cards/{cardID}.
func CardPath(deckID, cardID string) string {
	return CardsPath(deckID) + "/" + cardID
}

// CommentsPath is decks/{deckID}/comments.
func CommentsPath(deckID string) string {
	return DeckPath(deckID) + "/" + CollectionComments
}

// CommentPath is decks/{deckID}/comments/{authorID}.
func CommentPath(deckID, authorID string) string {
	return CommentsPath(deckID) + "/" + authorID
}

// UserPath is users/{userID}.
func UserPath(userID string) string {
	return CollectionUsers + "/" + userID
}

// FavoritesPath is users/{userID}/savedDecks.
func FavoritesPath(userID string) string {
	return UserPath(userID) + "/" + CollectionSavedDecks
}

// FavoritePath is users/{userID}/savedDecks/{deckID}.
func FavoritePath(userID, deckID string) string {
	return FavoritesPath(userID) + "/" + deckID
}

// HistoryPath is users/{userID}/history.
func HistoryPath(userID string) string {
	return UserPath(userID) + "/" + CollectionHistory
}

// HistoryEntryPath is users/{userID}/history/{deckID}.
func HistoryEntryPath(userID, deckID string) string {
	return HistoryPath(userID) + "/" + deckID
}
