package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/flashcardexchange/flashcards/internal/client"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyClient contextKey = "client"

// Messages for rejected requests.
const (
	MsgMissingToken = "Client token required"
	MsgInvalidToken = "Invalid or expired client token"
)

// authMiddleware resolves the bearer token to its client instance. Requests
// without a valid token continue without one; handlers that need a client
// reject them.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		c, err := s.clientForToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyClient, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientForToken verifies a client token and looks up its instance.
func (s *Server) clientForToken(token string) (*client.Client, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domainerrors.Unauthorized(MsgInvalidToken).WithCause(err)
	}
	c, ok := s.registry.Get(claims.ClientID)
	if !ok {
		return nil, domainerrors.Unauthorized(MsgInvalidToken)
	}
	return c, nil
}

// authenticateStream resolves a stream request. Browsers cannot set headers
// on an EventSource, so the token may also come as ?token=.
func (s *Server) authenticateStream(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", domainerrors.Unauthorized(MsgMissingToken)
	}
	c, err := s.clientForToken(token)
	if err != nil {
		return "", err
	}
	return c.ID(), nil
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireClient returns the request's client instance.
func requireClient(ctx context.Context) (*client.Client, error) {
	c, ok := ctx.Value(contextKeyClient).(*client.Client)
	if !ok || c == nil {
		return nil, toAPIError(domainerrors.Unauthorized(MsgMissingToken))
	}
	return c, nil
}

// requestLogger logs each request through slog.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
