package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/logger"
)

// IdentityFunc receives the signed-in identity, or nil when signed out.
type IdentityFunc func(*domain.Identity)

// Boundary is one client's view of the identity provider. It remembers who is
// signed in and tells subscribers whenever that changes.
//
// Callbacks run synchronously on the goroutine that caused the change and must
// not call back into the Boundary's mutating methods.
type Boundary struct {
	accounts *Accounts
	logger   *slog.Logger

	// opMu serializes sign-in state transitions together with their
	// notifications so subscribers see changes in order.
	opMu sync.Mutex

	mu        sync.RWMutex
	current   *domain.Identity
	listeners map[uint64]IdentityFunc
	nextID    uint64
}

// NewBoundary creates a signed-out boundary.
func NewBoundary(accounts *Accounts, log *slog.Logger) *Boundary {
	return &Boundary{
		accounts:  accounts,
		logger:    logger.OrDiscard(log),
		listeners: make(map[uint64]IdentityFunc),
	}
}

// OnIdentityChange registers fn, immediately delivers the current identity to
// it, and returns a function that unregisters it.
func (b *Boundary) OnIdentityChange(fn IdentityFunc) (cancel func()) {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	b.nextID++
	key := b.nextID
	b.listeners[key] = fn
	current := clone(b.current)
	b.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, key)
			b.mu.Unlock()
		})
	}
}

// Current returns a copy of the signed-in identity, or nil.
func (b *Boundary) Current() *domain.Identity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clone(b.current)
}

// CreateIdentity registers a new account and signs it in.
func (b *Boundary) CreateIdentity(ctx context.Context, email, password string) (*domain.Identity, error) {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	identity, err := b.accounts.Create(ctx, email, password)
	if err != nil {
		return nil, err
	}
	b.set(identity)
	return clone(identity), nil
}

// SignIn authenticates and signs in.
func (b *Boundary) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	identity, err := b.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	b.set(identity)
	return clone(identity), nil
}

// SignOut signs out. Signing out while signed out does nothing.
func (b *Boundary) SignOut(_ context.Context) {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.Current() == nil {
		return
	}
	b.set(nil)
}

// SetUsername chooses the signed-in user's username and republishes the
// identity with it.
func (b *Boundary) SetUsername(ctx context.Context, username string) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	current := b.Current()
	if current == nil {
		return domainerrors.Unauthorized(MsgSignedOut)
	}
	if err := b.accounts.SetUsername(ctx, current, username); err != nil {
		return err
	}

	profile, err := b.accounts.Profile(ctx, current.UserID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "could not save username")
	}
	current.Username = profile.Username
	b.set(current)
	return nil
}

// DeleteIdentity deletes the signed-in account and signs out.
func (b *Boundary) DeleteIdentity(ctx context.Context) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	current := b.Current()
	if current == nil {
		return domainerrors.Unauthorized(MsgSignedOut)
	}
	if err := b.accounts.Delete(ctx, current.UserID); err != nil {
		return err
	}
	b.set(nil)
	return nil
}

// set swaps the identity and notifies every listener. Callers hold opMu.
func (b *Boundary) set(identity *domain.Identity) {
	b.mu.Lock()
	b.current = clone(identity)
	fns := make([]IdentityFunc, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	if identity == nil {
		b.logger.Info("signed out")
	} else {
		b.logger.Info("identity changed", "user_id", identity.UserID)
	}

	for _, fn := range fns {
		fn(clone(identity))
	}
}

func clone(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
