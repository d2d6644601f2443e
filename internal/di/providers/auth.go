package providers

import (
	"github.com/samber/do/v2"

	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/config"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
	"github.com/flashcardexchange/flashcards/internal/session"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the client token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.Path)
	if err != nil {
		return nil, err
	}

	cfg.Auth.TokenKey = key

	log.Info("Authentication key loaded", "client_token_ttl", cfg.Auth.ClientTokenTTL)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(key, cfg.Auth.ClientTokenTTL)
}

// ProvideAccounts provides the credential registry shared by every client.
func ProvideAccounts(i do.Injector) (*session.Accounts, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	hasher := auth.NewHasher(auth.DefaultParams)
	return session.NewAccounts(storeHandle.Store, hasher, log.Component("accounts")), nil
}

// AuthLimiterHandle throttles sign-up, sign-in and client creation per IP.
type AuthLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *AuthLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAuthLimiter provides the per-IP auth limiter.
func ProvideAuthLimiter(i do.Injector) (*AuthLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &AuthLimiterHandle{ratelimit.New(cfg.Auth.Rate, cfg.Auth.Burst)}, nil
}

// MutationLimiterHandle throttles each signed-in user's writes.
type MutationLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *MutationLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideMutationLimiter provides the per-user mutation limiter.
func ProvideMutationLimiter(i do.Injector) (*MutationLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &MutationLimiterHandle{ratelimit.New(cfg.Gateway.MutationRate, cfg.Gateway.MutationBurst)}, nil
}
