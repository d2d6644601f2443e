package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the full ordered membership of a query at one point in time.
type Snapshot struct {
	ReadTime time.Time
	Docs     []*Document
}

// SnapshotFunc receives snapshots. It is called with a nil snapshot and a
// non-nil error when the listener fails; a failed listener is detached and
// receives nothing further.
type SnapshotFunc func(*Snapshot, error)

// Unsubscribe detaches a listener. It is safe to call more than once and from
// inside the listener's own callback.
type Unsubscribe func()

// Subscribe attaches a live listener for q. The first snapshot is delivered
// asynchronously right after attaching, then once after every committed write
// to q.Collection. Deliveries for one listener never overlap. Writes that land
// while a delivery is running are coalesced into a single follow-up snapshot
// that reflects the latest state.
func (s *Store) Subscribe(q Query, fn SnapshotFunc) (Unsubscribe, error) {
	c, err := q.compile()
	if err != nil {
		return nil, err
	}
	l, err := s.hub.attach(c, fn)
	if err != nil {
		return nil, err
	}
	return l.stop, nil
}

// hub tracks live listeners by collection.
type hub struct {
	store     *Store
	logger    *slog.Logger
	listeners map[string]map[uint64]*listener
	mu        sync.RWMutex
	nextID    uint64
	closed    bool
}

func newHub(s *Store, logger *slog.Logger) *hub {
	return &hub{
		store:     s,
		logger:    logger,
		listeners: make(map[string]map[uint64]*listener),
	}
}

type listener struct {
	hub     *hub
	query   *compiled
	fn      SnapshotFunc
	pending chan struct{}
	done    chan struct{}
	id      uint64
	stopped atomic.Bool
	once    sync.Once
}

func (h *hub) attach(c *compiled, fn SnapshotFunc) (*listener, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	h.nextID++
	l := &listener{
		hub:     h,
		query:   c,
		fn:      fn,
		id:      h.nextID,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	byID, ok := h.listeners[c.Collection]
	if !ok {
		byID = make(map[uint64]*listener)
		h.listeners[c.Collection] = byID
	}
	byID[l.id] = l

	l.pending <- struct{}{}
	go l.run()

	activeListeners.Inc()
	h.logger.Debug("listener attached", "collection", c.Collection, "listener_id", l.id)
	return l, nil
}

func (h *hub) detach(l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if byID, ok := h.listeners[l.query.Collection]; ok {
		if _, ok := byID[l.id]; ok {
			delete(byID, l.id)
			activeListeners.Dec()
		}
		if len(byID) == 0 {
			delete(h.listeners, l.query.Collection)
		}
	}
}

// notify marks every listener of collection as pending. It never blocks:
// a listener that already has a pending delivery absorbs the signal.
func (h *hub) notify(collection string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, l := range h.listeners[collection] {
		select {
		case l.pending <- struct{}{}:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	var all []*listener
	for _, byID := range h.listeners {
		for _, l := range byID {
			all = append(all, l)
		}
	}
	h.mu.Unlock()

	for _, l := range all {
		l.stop()
	}
}

func (l *listener) stop() {
	l.once.Do(func() {
		l.stopped.Store(true)
		close(l.done)
		l.hub.detach(l)
		l.hub.logger.Debug("listener detached", "collection", l.query.Collection, "listener_id", l.id)
	})
}

func (l *listener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.pending:
		}
		if l.stopped.Load() {
			return
		}

		docs, err := l.hub.store.run(l.query)
		if l.stopped.Load() {
			return
		}
		if err != nil {
			l.hub.logger.Warn("listener failed", "collection", l.query.Collection, "error", err)
			snapshotsDelivered.WithLabelValues("error").Inc()
			l.fn(nil, err)
			l.stop()
			return
		}

		snapshotsDelivered.WithLabelValues("ok").Inc()
		l.fn(&Snapshot{Docs: docs, ReadTime: time.Now().UTC()}, nil)
	}
}
