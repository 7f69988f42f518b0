// Package metrics exposes operational counters for the diagnostics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

// Registry returns the process-wide metrics registry for /metrics.
func Registry() *prometheus.Registry {
	return registry
}

var (
	// LoadsTotal counts state loads by resulting status
	// (ok, empty, recovered, reset).
	LoadsTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantrybook",
		Name:      "loads_total",
		Help:      "State loads by resulting status.",
	}, []string{"status"})

	// SavesTotal counts state saves by result (ok, failed).
	SavesTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantrybook",
		Name:      "saves_total",
		Help:      "State saves by result.",
	}, []string{"result"})

	// AuditRemovalsTotal counts entries stripped by the integrity auditor,
	// by collection.
	AuditRemovalsTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantrybook",
		Name:      "audit_removals_total",
		Help:      "Dangling entries removed by the integrity auditor.",
	}, []string{"collection"})

	// QuarantinesTotal counts corrupt payloads put into quarantine.
	QuarantinesTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "pantrybook",
		Name:      "quarantines_total",
		Help:      "Corrupt persisted payloads quarantined.",
	})
)
