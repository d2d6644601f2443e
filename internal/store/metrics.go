package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// writesTotal counts committed writes.
	// Labels: op (add, set, merge, update, delete, delete_collection)
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Committed document writes by operation",
	}, []string{"op"})

	// snapshotsDelivered counts snapshot callbacks.
	// Labels: status (ok, error)
	snapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "store",
		Name:      "snapshots_delivered_total",
		Help:      "Snapshot callbacks delivered to listeners",
	}, []string{"status"})

	activeListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flashcards",
		Subsystem: "store",
		Name:      "active_listeners",
		Help:      "Currently attached snapshot listeners",
	})
)
