package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// snapshotsApplied counts snapshots that rebuilt a scope.
	// Labels: scope
	snapshotsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "mirror",
		Name:      "snapshots_applied_total",
		Help:      "Snapshots applied to the local mirror",
	}, []string{"scope"})

	// staleSnapshots counts callbacks dropped because their listener was released.
	// Labels: scope
	staleSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "mirror",
		Name:      "stale_snapshots_total",
		Help:      "Snapshot callbacks ignored after their listener was released",
	}, []string{"scope"})

	// subscriptionErrors counts failed subscriptions; the scope degrades to empty.
	// Labels: scope
	subscriptionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashcards",
		Subsystem: "mirror",
		Name:      "subscription_errors_total",
		Help:      "Subscription failures by scope",
	}, []string{"scope"})
)
