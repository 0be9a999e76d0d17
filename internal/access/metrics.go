package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// decisions counts resolver outcomes by reason.
	decisions = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Number of resolver decisions, differentiated by outcome reason.",
		},
		[]string{"reason"},
	)

	// storeFailures counts snapshot load and persist failures.
	// A non zero read count means the store recovered to empty tables,
	// which defaults open. Operators should alert on it.
	storeFailures = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "access_store_failures_total",
			Help: "Number of permission snapshot load and persist failures.",
		},
		[]string{"op"},
	)
)
