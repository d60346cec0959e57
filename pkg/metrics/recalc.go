package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecalcMetrics records outcomes of order total recalculations.
type RecalcMetrics struct {
	duration          *prometheus.HistogramVec
	success           *prometheus.CounterVec
	failure           *prometheus.CounterVec
	roundingViolation prometheus.Counter
}

// NewRecalcMetrics registers the recalculation metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewRecalcMetrics(reg prometheus.Registerer) *RecalcMetrics {
	if reg == nil {
		return &RecalcMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recalc_duration_seconds",
		Help:    "Duration of order total recalculations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recalc_success",
		Help: "Successful order total recalculations.",
	}, []string{"tax_processor"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recalc_failure",
		Help: "Failed order total recalculations.",
	}, []string{"tax_processor"})
	roundingViolation := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recalc_rounding_violations",
		Help: "Discount allocations whose sum deviated from the target by more than one cent.",
	})
	reg.MustRegister(duration, success, failure, roundingViolation)
	return &RecalcMetrics{
		duration:          duration,
		success:           success,
		failure:           failure,
		roundingViolation: roundingViolation,
	}
}

// ObserveDuration records the duration for the given outcome.
func (m *RecalcMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named tax processor.
func (m *RecalcMetrics) IncSuccess(processor string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(processor)).Inc()
}

// IncFailure increments the failure counter for the named tax processor.
func (m *RecalcMetrics) IncFailure(processor string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(processor)).Inc()
}

// IncRoundingViolation counts an allocation that missed its target sum.
func (m *RecalcMetrics) IncRoundingViolation() {
	if m == nil || m.roundingViolation == nil {
		return
	}
	m.roundingViolation.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
