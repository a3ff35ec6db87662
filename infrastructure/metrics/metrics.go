// Package metrics registers the backend's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsApplied counts chain events applied to storage, by event kind.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moonzip_chain_events_applied_total",
		Help: "Chain events applied to storage.",
	}, []string{"event"})

	// EventsDropped counts parse results that failed to apply.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moonzip_chain_events_dropped_total",
		Help: "Parse results dropped due to storage errors.",
	})

	// MigrationAttempts counts per-project migration attempts, by outcome.
	MigrationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moonzip_migration_attempts_total",
		Help: "Per-project migration attempts.",
	}, []string{"outcome"})

	// ExecutorTries counts transaction submission tries, by path.
	ExecutorTries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moonzip_executor_tries_total",
		Help: "Transaction executor submission tries.",
	}, []string{"path"})
)

// Handler returns the HTTP handler exposing all registered collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
