package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every ecef2sez collector. It is separate from the default
// registry so textfile exports carry no Go runtime or process metrics.
var Registry = prometheus.NewRegistry()

var (
	conversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecef2sez_conversions_total",
			Help: "Total number of ECEF to SEZ conversions by outcome.",
		},
		[]string{"outcome"},
	)

	geodeticIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecef2sez_geodetic_iterations",
			Help:    "Latitude refinement steps per station solve.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	geodeticNonConvergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ecef2sez_geodetic_nonconverged_total",
			Help: "Station solves that hit the iteration cap without converging.",
		},
	)

	lastRangeKm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecef2sez_last_range_km",
			Help: "Station to target range of the most recent conversion.",
		},
	)

	consistencyResidualKm = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecef2sez_consistency_residual_km",
			Help: "Self-check residual of the most recent conversion by check.",
		},
		[]string{"check"},
	)
)

// Conversion outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNonFinite = "non_finite"
	OutcomeRejected  = "rejected"
)

// Consistency checks.
const (
	CheckRotation = "rotation" // scalar SEZ formulas against the matrix product
	CheckGeodetic = "geodetic" // station rebuilt from its geodetic estimate
)

func init() {
	Registry.MustRegister(conversionsTotal)
	Registry.MustRegister(geodeticIterations)
	Registry.MustRegister(geodeticNonConvergedTotal)
	Registry.MustRegister(lastRangeKm)
	Registry.MustRegister(consistencyResidualKm)
}

// RecordConversion records a finished conversion.
func RecordConversion(outcome string, iterations int, converged bool, rangeKm float64) {
	conversionsTotal.WithLabelValues(outcome).Inc()
	geodeticIterations.Observe(float64(iterations))
	if !converged {
		geodeticNonConvergedTotal.Inc()
	}
	lastRangeKm.Set(rangeKm)
}

// RecordRejected records a conversion refused before the solver ran.
func RecordRejected() {
	conversionsTotal.WithLabelValues(OutcomeRejected).Inc()
}

// RecordResidual records the residual of a consistency check.
func RecordResidual(check string, km float64) {
	consistencyResidualKm.WithLabelValues(check).Set(km)
}

// WriteTextfile writes the registry to path in the text exposition format,
// for pickup by the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
