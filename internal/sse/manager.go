package sse

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/flashcardexchange/flashcards/internal/id"
	"github.com/flashcardexchange/flashcards/internal/logger"
)

// Stream is one open SSE connection.
type Stream struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	// ClientID is the client instance whose events this stream receives.
	ClientID string
}

// Manager manages SSE connections and routes events to them.
type Manager struct {
	streams           map[string]*Stream
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		streams:           make(map[string]*Stream),
		events:            make(chan Event, 1000),
		logger:            logger.OrDiscard(log),
		heartbeatInterval: 30 * time.Second,
	}
}

// Start begins the event routing loop.
// This should be called once at server startup in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.route(event)

		case <-heartbeatTicker.C:
			m.route(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllStreams()
			return
		}
	}
}

// Shutdown stops accepting new events, drains queued ones and closes every
// stream.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	// Mark as shutdown and close the channel together so Emit never sends on
	// a closed channel.
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range m.events {
			m.route(event)
		}
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("SSE events drained successfully")
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
	}

	m.wg.Wait()
	m.closeAllStreams()

	m.logger.Info("SSE manager shutdown complete")
	return nil
}

// route delivers an event to the streams it is addressed to.
func (m *Manager) route(event Event) {
	var delivered, dropped int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.streams {
		if event.ClientID != "" && event.ClientID != s.ClientID {
			continue
		}

		// Non-blocking send (drop if the stream is slow or stuck).
		select {
		case s.EventChan <- event:
			delivered++
		default:
			dropped++
			eventsDropped.WithLabelValues(string(event.Type)).Inc()
			m.logger.Warn("dropped event for slow stream",
				slog.String("stream_id", s.ID),
				slog.String("client_id", s.ClientID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event routed",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a stream for clientID.
func (m *Manager) Connect(clientID string) (*Stream, error) {
	streamID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	s := &Stream{
		ID:          streamID,
		ClientID:    clientID,
		EventChan:   make(chan Event, 100),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.streams[s.ID] = s
	total := len(m.streams)
	m.mu.Unlock()
	openStreams.Set(float64(total))

	m.logger.Info("SSE stream connected",
		slog.String("stream_id", streamID),
		slog.String("client_id", clientID),
		slog.Int("total_streams", total))
	return s, nil
}

// Disconnect removes a stream and closes its channels.
func (m *Manager) Disconnect(streamID string) {
	m.mu.Lock()
	s, ok := m.streams[streamID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.streams, streamID)
	total := len(m.streams)
	m.mu.Unlock()
	openStreams.Set(float64(total))

	close(s.Done)
	close(s.EventChan)

	m.logger.Info("SSE stream disconnected",
		slog.String("stream_id", streamID),
		slog.Duration("duration", time.Since(s.ConnectedAt)),
		slog.Int("total_streams", total))
}

// Emit queues an event for routing. Events emitted after Shutdown are dropped.
func (m *Manager) Emit(event Event) {
	// Hold the read lock through the send so Shutdown cannot close the
	// channel underneath it.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		eventsDropped.WithLabelValues(string(event.Type)).Inc()
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Streams returns an iterator over all open streams.
func (m *Manager) Streams() iter.Seq[*Stream] {
	return func(yield func(*Stream) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		for _, s := range m.streams {
			if !yield(s) {
				return
			}
		}
	}
}

// StreamCount returns the number of open streams.
func (m *Manager) StreamCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

// closeAllStreams closes every stream (used during shutdown).
func (m *Manager) closeAllStreams() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.streams {
		close(s.Done)
		close(s.EventChan)
	}
	m.streams = make(map[string]*Stream)
	openStreams.Set(0)

	m.logger.Info("all SSE streams disconnected")
}
