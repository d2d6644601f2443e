package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flashcardexchange/flashcards/internal/client"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/id"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
	"github.com/flashcardexchange/flashcards/internal/session"
	"github.com/flashcardexchange/flashcards/internal/sse"
)

// MsgTooManyClients is returned when the registry is full.
const MsgTooManyClients = "Too many open sessions, try again later"

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Backend  client.Backend
	Accounts *session.Accounts
	// Limiter throttles mutations per viewer across every client.
	Limiter *ratelimit.KeyedRateLimiter
	// Events receives each client's repaints and notices. Nil disables streaming.
	Events *sse.Manager
	// MaxClients bounds open clients. Zero means unbounded.
	MaxClients int
	// IdleTimeout closes clients with no requests and no open stream.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

type registryEntry struct {
	client   *client.Client
	lastSeen time.Time
}

// Registry owns the server's client instances, one per browser tab.
type Registry struct {
	opts   RegistryOptions
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*registryEntry
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		opts:    opts,
		logger:  logger.OrDiscard(opts.Logger),
		now:     time.Now,
		clients: make(map[string]*registryEntry),
	}
}

// Create starts a new signed-out client instance.
func (r *Registry) Create() (*client.Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not create client")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, domainerrors.Unavailable("server shutting down")
	}
	if r.opts.MaxClients > 0 && len(r.clients) >= r.opts.MaxClients {
		r.mu.Unlock()
		return nil, domainerrors.RateLimited(MsgTooManyClients)
	}
	// Reserve the slot; the client itself is built outside the lock because
	// its first paint runs synchronously.
	entry := &registryEntry{lastSeen: r.now()}
	r.clients[clientID] = entry
	r.mu.Unlock()

	opts := client.Options{
		Backend:  r.opts.Backend,
		Accounts: r.opts.Accounts,
		Limiter:  r.opts.Limiter,
		Logger:   r.logger,
	}
	if r.opts.Events != nil {
		pub := sse.NewPublisher(r.opts.Events, clientID)
		opts.Notifier = pub
		opts.OnRender = pub.Render
		opts.OnSearch = pub.Search
	}
	c := client.New(clientID, opts)

	r.mu.Lock()
	if r.clients[clientID] != entry {
		r.mu.Unlock()
		c.Close()
		return nil, domainerrors.Unavailable("server shutting down")
	}
	entry.client = c
	r.mu.Unlock()

	r.logger.Info("client created", "client_id", clientID)
	return c, nil
}

// Get returns a client and marks it as seen.
func (r *Registry) Get(clientID string) (*client.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[clientID]
	if !ok || e.client == nil {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.client, true
}

// Remove closes and forgets a client.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	e, ok := r.clients[clientID]
	delete(r.clients, clientID)
	r.mu.Unlock()

	if ok && e.client != nil {
		e.client.Close()
		r.logger.Info("client removed", "client_id", clientID)
	}
}

// Len returns the number of open clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle for longer than IdleTimeout. Clients with an open
// stream are never idle. It returns how many were closed.
func (r *Registry) Sweep() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}

	streaming := map[string]struct{}{}
	if r.opts.Events != nil {
		for s := range r.opts.Events.Streams() {
			streaming[s.ClientID] = struct{}{}
		}
	}

	cutoff := r.now().Add(-r.opts.IdleTimeout)
	var idle []*client.Client

	r.mu.Lock()
	for clientID, e := range r.clients {
		if e.client == nil || e.lastSeen.After(cutoff) {
			continue
		}
		if _, ok := streaming[clientID]; ok {
			e.lastSeen = r.now()
			continue
		}
		delete(r.clients, clientID)
		idle = append(idle, e.client)
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("idle clients closed", "count", len(idle))
	}
	return len(idle)
}

// Start sweeps idle clients until ctx is done.
func (r *Registry) Start(ctx context.Context) {
	if r.opts.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(r.opts.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Close closes every client and refuses new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := r.clients
	r.clients = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range all {
		if e.client != nil {
			e.client.Close()
		}
	}
}
