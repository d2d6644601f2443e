package sse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	openStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flashcards",
		Subsystem: "sse",
		Name:      "streams",
		Help:      "Open SSE streams",
	})

	// eventsDropped counts events lost to full buffers.
	// Labels: type
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "sse",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a buffer was full",
	}, []string{"type"})
)
