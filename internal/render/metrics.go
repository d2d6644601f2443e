package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	repaints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "render",
		Name:      "repaints_total",
		Help:      "Region repaints applied",
	}, []string{"region"})

	staleRepaints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "render",
		Name:      "stale_repaints_total",
		Help:      "Region repaints dropped because a newer generation was already painted",
	}, []string{"region"})
)
