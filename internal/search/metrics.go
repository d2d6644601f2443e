package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "search",
		Name:      "rebuilds_total",
		Help:      "Full rebuilds of the deck search index",
	})

	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Non-empty search queries answered",
	})
)
