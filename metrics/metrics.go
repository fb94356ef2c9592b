// Package metrics defines the Prometheus instrumentation for the engine's
// surrounding surfaces. The pure engine itself is not instrumented; the
// API layer and the importer increment these.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MatrixRecomputations   prometheus.Counter
	EligibilityEvaluations prometheus.Counter
	ImportRowsApplied      prometheus.Counter
	ImportRowsFailed       prometheus.Counter
	UnresolvedPositions    prometheus.Gauge
}

// New registers all collectors on the given registerer. Tests pass a
// fresh prometheus.NewRegistry to avoid cross-test registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatrixRecomputations: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_matrix_recomputations_total",
			Help: "Total number of compliance matrix recomputations",
		}),
		EligibilityEvaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_eligibility_evaluations_total",
			Help: "Total number of promotion eligibility evaluations",
		}),
		ImportRowsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_import_rows_applied_total",
			Help: "Total number of imported course results applied",
		}),
		ImportRowsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_import_rows_failed_total",
			Help: "Total number of imported course results that failed to apply",
		}),
		UnresolvedPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "compliance_import_unresolved_positions",
			Help: "Unresolved position names seen in the most recent import",
		}),
	}
}
