// Package session is the identity provider: a shared credential registry
// (Accounts) and a per-client Boundary that reports who is signed in.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/id"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/store"
	"github.com/flashcardexchange/flashcards/internal/validation"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// Failure messages shown to the user.
const (
	MsgEmailInUse         = "email already in use"
	MsgInvalidCredentials = "invalid email or password"
	MsgUsernameTooShort   = "Username must be at least 3 characters"
	MsgUsernameTaken      = "username has already been chosen"
	MsgSignedOut          = "you must be signed in"
)

type credentialsForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

func (credentialsForm) Messages() map[string]string {
	return map[string]string{
		"email":    "please enter a valid email address",
		"password": "password must be at least 6 characters",
	}
}

type usernameForm struct {
	Username string `json:"username" validate:"min=3"`
}

func (usernameForm) Messages() map[string]string {
	return map[string]string{"username": MsgUsernameTooShort}
}

// Accounts is the credential registry shared by every client instance.
// Credentials are private records; profiles are public documents at users/{id}.
type Accounts struct {
	store     *store.Store
	creds     *store.Entity[domain.Credential]
	hasher    *auth.Hasher
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewAccounts creates the registry on s.
func NewAccounts(s *store.Store, hasher *auth.Hasher, log *slog.Logger) *Accounts {
	return &Accounts{
		store: s,
		creds: store.NewEntity[domain.Credential](s, "cred:").
			WithIndexTransform("email",
				func(c *domain.Credential) []string { return []string{normalizeEmail(c.Email)} },
				normalizeEmail,
			),
		hasher:    hasher,
		validator: validation.New(),
		logger:    logger.OrDiscard(log),
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a new credential and returns its identity. The identity has
// no username until SetUsername is called.
func (a *Accounts) Create(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(email)
	if err := a.validator.Validate(credentialsForm{Email: email, Password: password}); err != nil {
		return nil, err
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not create account")
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not create account")
	}

	cred := &domain.Credential{
		ID:           userID,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.creds.Create(ctx, userID, cred); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists(MsgEmailInUse)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not create account")
	}

	a.logger.Info("account created", "user_id", userID)
	return &domain.Identity{UserID: userID, Email: email}, nil
}

// Authenticate checks an email/password pair and returns the identity,
// including the username from the profile when one has been chosen.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	cred, err := a.creds.GetByIndex(ctx, "email", email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.InvalidCredentials(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not sign in")
	}
	if !a.hasher.Verify(cred.PasswordHash, password) {
		return nil, domainerrors.InvalidCredentials(MsgInvalidCredentials)
	}

	identity := &domain.Identity{UserID: cred.ID, Email: cred.Email}
	profile, err := a.Profile(ctx, cred.ID)
	switch {
	case err == nil:
		identity.Username = profile.Username
	case !errors.Is(err, store.ErrNotFound):
		a.logger.Warn("profile read failed", "user_id", cred.ID, "error", err)
	}
	return identity, nil
}

// Profile reads users/{userID}.
func (a *Accounts) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	doc, err := a.store.Get(ctx, domain.UserPath(userID))
	if err != nil {
		return nil, err
	}
	var p domain.Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetUsername writes the profile document. A username can be chosen once.
func (a *Accounts) SetUsername(ctx context.Context, identity *domain.Identity, username string) error {
	username = strings.TrimSpace(username)
	if err := a.validator.Validate(usernameForm{Username: username}); err != nil {
		return err
	}

	existing, err := a.Profile(ctx, identity.UserID)
	if err == nil && existing.Username != "" {
		return domainerrors.AlreadyExists(MsgUsernameTaken)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not save username")
	}

	err = a.store.Set(ctx, domain.UserPath(identity.UserID), map[string]any{
		domain.FieldUsername:  username,
		domain.FieldEmail:     identity.Email,
		domain.FieldCreatedAt: store.ServerTimestamp,
	})
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not save username")
	}
	return nil
}

// Delete removes the user's profile, private favorites and history, then the
// credential. Decks the user authored are left in place.
func (a *Accounts) Delete(ctx context.Context, userID string) error {
	if err := a.store.Delete(ctx, domain.UserPath(userID)); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not delete account")
	}
	for _, c := range []string{domain.FavoritesPath(userID), domain.HistoryPath(userID)} {
		if _, err := a.store.DeleteCollection(ctx, c); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not delete account")
		}
	}
	if err := a.creds.Delete(ctx, userID); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not delete account")
	}

	a.logger.Info("account deleted", "user_id", userID)
	return nil
}
