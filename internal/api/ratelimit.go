package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// MsgTooManyRequests is returned when a client IP is throttled.
const MsgTooManyRequests = "Too many requests. Please try again later."

// rateLimitByIP is a huma middleware limiting requests per client IP.
// Operations without a limiter configured pass through.
func (s *Server) rateLimitByIP(ctx huma.Context, next func(huma.Context)) {
	if s.authLimiter == nil {
		next(ctx)
		return
	}

	key := clientIP(ctx)
	if !s.authLimiter.Allow(key) {
		s.logger.Warn("Rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, MsgTooManyRequests)
		return
	}
	next(ctx)
}

// clientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(ctx.RemoteAddr())
	if err != nil {
		return ctx.RemoteAddr()
	}
	return host
}
