// Package id generates document identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for server-assigned document ids.
const (
	PrefixDeck    = "deck"
	PrefixCard    = "card"
	PrefixUser    = "usr"
	PrefixClient  = "cli"
	PrefixDoc     = "doc"
	PrefixTokenID = "tok"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g. "deck-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// ForCollection picks the id prefix for documents added to a collection,
// keyed on the last path segment ("decks/x/cards" -> "card").
func ForCollection(collection string) string {
	last := collection
	for i := len(collection) - 1; i >= 0; i-- {
		if collection[i] == '/' {
			last = collection[i+1:]
			break
		}
	}
	switch last {
	case "decks":
		return PrefixDeck
	case "cards":
		return PrefixCard
	case "users":
		return PrefixUser
	default:
		return PrefixDoc
	}
}
