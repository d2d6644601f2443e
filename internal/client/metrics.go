package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// activeClients is the number of open client instances.
	activeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flashcards",
		Subsystem: "client",
		Name:      "active",
		Help:      "Open client instances",
	})

	// sessionsStarted counts identity sessions.
	// Labels: kind (guest, user)
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "client",
		Name:      "sessions_started_total",
		Help:      "Sessions started by kind",
	}, []string{"kind"})

	// noticesTotal counts blocking notices raised to users.
	// Labels: code
	noticesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "client",
		Name:      "notices_total",
		Help:      "Blocking notices by error code",
	}, []string{"code"})

	// staleRebuilds counts mirror rebuilds that arrived after their session ended.
	staleRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "client",
		Name:      "stale_rebuilds_total",
		Help:      "Rebuilds dropped because their session had ended",
	})

	// pointReads counts single-deck reads used to resolve favorites and links.
	// Labels: outcome (ok, not_found, error), share (own, shared)
	pointReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "client",
		Name:      "point_reads_total",
		Help:      "Deck point reads by outcome",
	}, []string{"outcome", "share"})
)
