package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/flashcardexchange/flashcards/internal/api"
	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/config"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/session"
)

// RegistryHandle wraps the client registry and its idle sweeper.
type RegistryHandle struct {
	*api.Registry
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RegistryHandle) Shutdown() error {
	h.cancel()
	h.Close()
	return nil
}

// ProvideRegistry provides the client registry and starts sweeping idle clients.
func ProvideRegistry(i do.Injector) (*RegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	accounts := do.MustInvoke[*session.Accounts](i)
	mutations := do.MustInvoke[*MutationLimiterHandle](i)

	registry := api.NewRegistry(api.RegistryOptions{
		Backend:     storeHandle.Store,
		Accounts:    accounts,
		Limiter:     mutations.KeyedRateLimiter,
		Events:      sseHandle.Manager,
		MaxClients:  cfg.Clients.Max,
		IdleTimeout: cfg.Clients.IdleTimeout,
		Logger:      log.Component("clients"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go registry.Start(ctx)

	return &RegistryHandle{Registry: registry, cancel: cancel}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	registryHandle := do.MustInvoke[*RegistryHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	authLimiter := do.MustInvoke[*AuthLimiterHandle](i)

	handler := api.NewServer(api.Options{
		Store:          storeHandle.Store,
		Registry:       registryHandle.Registry,
		Tokens:         tokens,
		Events:         sseHandle.Manager,
		AuthLimiter:    authLimiter.KeyedRateLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        Version,
		Logger:         log.Component("api"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
