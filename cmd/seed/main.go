// Package main seeds the document store with demo accounts and public decks.
//
// Usage:
//
//	DATA_PATH=~/Flashcards/data go run ./cmd/seed
//	DATA_PATH=~/Flashcards/data go run ./cmd/seed --decks 3
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/gateway"
	"github.com/flashcardexchange/flashcards/internal/session"
	"github.com/flashcardexchange/flashcards/internal/store"
)

var deckCount = flag.Int("decks", 2, "Decks to create per demo user")

const demoPassword = "flashcards"

type demoUser struct {
	email    string
	username string
}

var demoUsers = []demoUser{
	{"ana@example.com", "ana"},
	{"ben@example.com", "ben"},
	{"chen@example.com", "chen"},
}

var demoDecks = []struct {
	title string
	tags  string
	cards [][2]string
}{
	{"Spanish basics", "language, spanish", [][2]string{{"perro", "dog"}, {"gato", "cat"}, {"casa", "house"}}},
	{"Go keywords", "programming, go", [][2]string{{"defer", "runs at function return"}, {"select", "waits on channel operations"}}},
	{"Capitals", "geography", [][2]string{{"France", "Paris"}, {"Japan", "Tokyo"}, {"Kenya", "Nairobi"}}},
	{"Chemistry", "science", [][2]string{{"H2O", "water"}, {"NaCl", "table salt"}}},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Flashcards/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(store.Options{Path: dbPath})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	accounts := session.NewAccounts(s, auth.NewHasher(auth.DefaultParams), nil)

	for i, u := range demoUsers {
		identity, err := signUpOrIn(ctx, accounts, u)
		if err != nil {
			log.Printf("Skipping %s: %v", u.email, err)
			continue
		}
		fmt.Printf("\nSeeding decks for %s (%s)\n", u.username, identity.UserID)

		g := gateway.New(s, identity, gateway.Options{})
		for n := range *deckCount {
			d := demoDecks[(i+n)%len(demoDecks)]
			if err := seedDeck(ctx, g, identity, d.title, d.tags, d.cards); err != nil {
				log.Printf("  Failed to seed %q: %v", d.title, err)
				continue
			}
			fmt.Printf("  %s (%d cards)\n", d.title, len(d.cards))
		}
	}

	fmt.Println("\nDone. Demo password:", demoPassword)
}

// signUpOrIn creates the demo account, or signs into it on a re-run.
func signUpOrIn(ctx context.Context, accounts *session.Accounts, u demoUser) (*domain.Identity, error) {
	identity, err := accounts.Create(ctx, u.email, demoPassword)
	if domainerrors.CodeOf(err) == domainerrors.CodeAlreadyExists {
		return accounts.Authenticate(ctx, u.email, demoPassword)
	}
	if err != nil {
		return nil, err
	}

	if err := accounts.SetUsername(ctx, identity, u.username); err != nil {
		return nil, err
	}
	identity.Username = u.username
	return identity, nil
}

// seedDeck creates a deck through the gateway, fills it and publishes it.
func seedDeck(ctx context.Context, g *gateway.Gateway, owner *domain.Identity, title, tags string, cards [][2]string) error {
	deckID, err := g.CreateDeck(ctx, domain.DeckInput{Title: title, Tags: tags})
	if err != nil {
		return err
	}
	deck := &domain.Deck{ID: deckID, OwnerID: owner.UserID}

	for _, c := range cards {
		if _, err := g.AddCard(ctx, deck, domain.CardInput{Term: c[0], Definition: c[1]}); err != nil {
			return err
		}
	}
	return g.ToggleVisibility(ctx, deck)
}
