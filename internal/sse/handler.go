package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashcardexchange/flashcards/internal/logger"
)

// Authenticator resolves the client instance a stream request belongs to.
type Authenticator func(r *http.Request) (clientID string, err error)

// Handler handles SSE connections at GET /api/v1/stream.
type Handler struct {
	manager      *Manager
	authenticate Authenticator
	logger       *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, authenticate Authenticator, log *slog.Logger) *Handler {
	return &Handler{
		manager:      manager,
		authenticate: authenticate,
		logger:       logger.OrDiscard(log),
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Early client disconnect.
	if r.Context().Err() != nil {
		return
	}

	clientID, err := h.authenticate(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)

	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	stream, err := h.manager.Connect(clientID)
	if err != nil {
		h.logger.Error("failed to register SSE stream", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(stream.ID)

	streamLogger := h.logger.With(slog.String("stream_id", stream.ID), slog.String("client_id", clientID))

	if err := h.sendEvent(w, rc, string(EventConnected), map[string]string{
		"client_id": clientID,
		"stream_id": stream.ID,
	}); err != nil {
		streamLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()
	for {
		select {
		case event, ok := <-stream.EventChan:
			if !ok {
				streamLogger.Info("stream closed by manager")
				return
			}
			if err := h.sendEvent(w, rc, string(event.Type), event); err != nil {
				// Client disconnect is normal, not an error condition.
				streamLogger.Info("client disconnected during send")
				return
			}

		case <-stream.Done:
			streamLogger.Info("stream closed by manager")
			return

		case <-ctx.Done():
			streamLogger.Info("client context canceled")
			return
		}
	}
}

// sendEvent writes one event in SSE framing and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}

	if err := rc.Flush(); err != nil {
		return err
	}

	// Reset after each successful write so a hung connection times out.
	if err := rc.SetWriteDeadline(time.Now().Add(60 * time.Second)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
