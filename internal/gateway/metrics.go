package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeDenied  = "denied"
	outcomeLimited = "limited"
	outcomeFailed  = "failed"
)

// mutations counts gated commands.
// Labels: action, outcome (ok, invalid, denied, limited, failed)
var mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "flashcards",
	Subsystem: "gateway",
	Name:      "mutations_total",
	Help:      "Gated commands by action and outcome",
}, []string{"action", "outcome"})
