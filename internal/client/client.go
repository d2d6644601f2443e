// Package client coordinates one browser session: identity changes drive the
// mirror's subscriptions, every mirror rebuild drives the search index and the
// painted regions, and user gestures go out through the gateway.
//
// Control flow:
//
//	identity change → resubscribe scopes → snapshot → mirror rebuild
//	  → search rebuild → region repaint → OnRender
//	gesture → gateway mutation → store → snapshot → repaint
package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flashcardexchange/flashcards/internal/domain"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/gateway"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/mirror"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
	"github.com/flashcardexchange/flashcards/internal/render"
	"github.com/flashcardexchange/flashcards/internal/search"
	"github.com/flashcardexchange/flashcards/internal/session"
	"github.com/flashcardexchange/flashcards/internal/store"

	"golang.org/x/sync/singleflight"
)

// Backend is the remote store as the client uses it: live queries, point
// reads and mutations.
type Backend interface {
	mirror.Source
	gateway.Store
	Get(ctx context.Context, docPath string) (*store.Document, error)
}

// Notice is a blocking message for the user, raised when a backend mutation
// fails.
type Notice struct {
	Code    domainerrors.Code `json:"code"`
	Message string            `json:"message"`
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// RenderEvent reports a repainted region.
type RenderEvent struct {
	Region string
	HTML   string
	Patch  render.Patch
	Gen    uint64
}

// SearchEvent reports the state of the search overlay.
type SearchEvent struct {
	Query   string `json:"query"`
	Results int    `json:"results"`
	Visible bool   `json:"visible"`
	Dimmed  bool   `json:"dimmed"`
}

// Options configures a Client.
type Options struct {
	Backend  Backend
	Accounts *session.Accounts
	// Limiter throttles mutations per viewer. Shared across clients.
	Limiter  *ratelimit.KeyedRateLimiter
	Notifier Notifier
	// OnRender and OnSearch are called with the client's lock held and must
	// not call back into the Client. Either may be nil.
	OnRender func(RenderEvent)
	OnSearch func(SearchEvent)
	Logger   *slog.Logger
}

// sessionState is everything that lives exactly as long as one identity.
type sessionState struct {
	viewer   *domain.Identity
	cache    *mirror.Cache
	index    *search.Index
	gateway  *gateway.Gateway
	openDeck *domain.Deck
	// favorites are the resolved favorite decks as of favoritesGen.
	favorites    []*domain.Deck
	favoritesGen uint64
	epoch        uint64
}

// Client is one browser session's engine.
type Client struct {
	id       string
	backend  Backend
	boundary *session.Boundary
	limiter  *ratelimit.KeyedRateLimiter
	notifier Notifier
	onRender func(RenderEvent)
	onSearch func(SearchEvent)
	logger   *slog.Logger

	renderer *render.Renderer
	regions  map[string]*render.Region
	resolver singleflight.Group

	cancelIdentity func()

	mu     sync.Mutex
	state  *sessionState
	epoch  uint64
	query  string
	closed bool
}

// New creates a signed-out client and starts its guest session.
func New(clientID string, opts Options) *Client {
	log := logger.OrDiscard(opts.Logger).With("client_id", clientID)

	c := &Client{
		id:       clientID,
		backend:  opts.Backend,
		boundary: session.NewBoundary(opts.Accounts, log),
		limiter:  opts.Limiter,
		notifier: opts.Notifier,
		onRender: opts.OnRender,
		onSearch: opts.OnSearch,
		logger:   log,
		regions:  make(map[string]*render.Region, len(Regions)),
	}
	c.renderer = render.New(actions{c})
	for _, name := range Regions {
		c.regions[name] = render.NewRegion(name, log)
	}

	// Delivers the current (signed-out) identity synchronously, which starts
	// the guest session.
	c.cancelIdentity = c.boundary.OnIdentityChange(c.onIdentity)

	activeClients.Inc()
	return c
}

// ID returns the client's id.
func (c *Client) ID() string {
	return c.id
}

// Viewer returns the signed-in identity, or nil.
func (c *Client) Viewer() *domain.Identity {
	return c.boundary.Current()
}

// View returns the current mirror contents.
func (c *Client) View() *mirror.View {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st == nil {
		return &mirror.View{}
	}
	return st.cache.View()
}

// Region returns a painted region by name.
func (c *Client) Region(name string) (*render.Region, bool) {
	r, ok := c.regions[name]
	return r, ok
}

// Close ends the session and releases every listener. The client is unusable
// afterwards.
func (c *Client) Close() {
	c.cancelIdentity()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.teardownLocked()
	activeClients.Dec()
	c.logger.Debug("client closed")
}

// onIdentity reacts to a sign-in, sign-out or username change.
func (c *Client) onIdentity(identity *domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	// Same user with a new username: only the gateway, which stamps comments
	// with the username, needs to know.
	if st := c.state; st != nil && identity != nil && st.viewer != nil && st.viewer.UserID == identity.UserID {
		st.viewer = identity
		st.gateway = c.newGateway(identity)
		return
	}

	c.teardownLocked()

	c.epoch++
	epoch := c.epoch
	index, err := search.New(c.logger)
	if err != nil {
		// The index is in-memory; failing to build its mapping is a programming error.
		c.logger.Error("search index unavailable", "error", err)
		return
	}
	st := &sessionState{
		viewer:  identity,
		index:   index,
		gateway: c.newGateway(identity),
		epoch:   epoch,
	}
	st.cache = mirror.New(c.backend, identity, func(scope mirror.Scope, view *mirror.View) {
		c.onRebuild(epoch, scope, view)
	}, c.logger)
	c.state = st
	c.query = ""

	sessionsStarted.WithLabelValues(sessionKind(identity)).Inc()
	c.logger.Info("session started", "user_id", viewerID(identity), "epoch", epoch)

	c.paintAllLocked(st, st.cache.View(), true)

	if err := st.cache.SubscribeSession(); err != nil {
		c.logger.Warn("session subscriptions incomplete", "error", err)
	}
}

// teardownLocked releases the current session's listeners and index.
func (c *Client) teardownLocked() {
	st := c.state
	if st == nil {
		return
	}
	c.state = nil
	st.cache.Close()
	if err := st.index.Close(); err != nil {
		c.logger.Warn("closing search index", "error", err)
	}
}

func (c *Client) newGateway(identity *domain.Identity) *gateway.Gateway {
	return gateway.New(c.backend, identity, gateway.Options{Limiter: c.limiter, Logger: c.logger})
}

// current returns the live session state.
func (c *Client) current() (*sessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == nil {
		return nil, domainerrors.Unavailable("session closed")
	}
	return c.state, nil
}

// report passes blocking failures to the notifier and returns err unchanged.
func (c *Client) report(err error) error {
	if err == nil {
		return nil
	}
	code := domainerrors.CodeOf(err)
	if !code.Blocking() {
		return err
	}
	noticesTotal.WithLabelValues(string(code)).Inc()
	if c.notifier != nil {
		c.notifier.Notify(Notice{Code: code, Message: domainerrors.MessageOf(err)})
	}
	return err
}

func viewerID(identity *domain.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.UserID
}

func sessionKind(identity *domain.Identity) string {
	if identity == nil {
		return "guest"
	}
	return "user"
}
