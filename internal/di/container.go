// Package di provides dependency injection configuration for the flashcards server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/config"
	"github.com/flashcardexchange/flashcards/internal/di/providers"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/session"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAccounts)
	do.Provide(injector, providers.ProvideAuthLimiter)
	do.Provide(injector, providers.ProvideMutationLimiter)

	// Clients and server
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order. The HTTP server
// starts listening as its provider runs.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	for _, invoke := range []func() error{
		func() error { _, err := do.Invoke[providers.AuthKey](injector); return err },
		func() error { _, err := do.Invoke[*providers.SSEManagerHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.StoreHandle](injector); return err },
		func() error { _, err := do.Invoke[*auth.TokenService](injector); return err },
		func() error { _, err := do.Invoke[*session.Accounts](injector); return err },
		func() error { _, err := do.Invoke[*providers.RegistryHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
	} {
		if err := invoke(); err != nil {
			return err
		}
	}
	return nil
}
