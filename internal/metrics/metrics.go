package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the timing engine
type Metrics struct {
	Decisions         *prometheus.CounterVec
	Confirmations     *prometheus.CounterVec
	ConfirmationDelta prometheus.Histogram
	ShapedReward      prometheus.Histogram
	Resets            prometheus.Counter
	Errors            *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			Decisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "timing_decisions_total",
					Help: "Daily decisions by outcome (baseline, shift, cached)",
				},
				[]string{"outcome"},
			),
			Confirmations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "timing_confirmations_total",
					Help: "Confirmations by binary reward and update action",
				},
				[]string{"reward", "action"},
			),
			ConfirmationDelta: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "timing_confirmation_delta_minutes",
					Help:    "Absolute folded minutes between confirmation and nominal time",
					Buckets: []float64{5, 10, 15, 30, 60, 120, 240, 480, 720},
				},
			),
			ShapedReward: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "timing_shaped_reward",
					Help:    "Shaped learning signal applied per update",
					Buckets: prometheus.LinearBuckets(0, 0.1, 11),
				},
			),
			Resets: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "timing_resets_total",
					Help: "Policies cleared by reset",
				},
			),
			Errors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "timing_errors_total",
					Help: "Engine operation failures",
				},
				[]string{"op"},
			),
			OperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "timing_operation_duration_seconds",
					Help:    "Engine operation latency including storage",
					Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
				},
				[]string{"op"},
			),
		}
	})
	return sharedMetrics
}

// ObserveDecision counts one decide call.
func (m *Metrics) ObserveDecision(outcome string) {
	m.Decisions.WithLabelValues(outcome).Inc()
}

// ObserveConfirmation records one evaluate-and-learn call.
func (m *Metrics) ObserveConfirmation(reward int, action string, delta int, shaped float64) {
	m.Confirmations.WithLabelValues(strconv.Itoa(reward), action).Inc()
	if action != "commit" {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.ConfirmationDelta.Observe(float64(delta))
	m.ShapedReward.Observe(shaped)
}

// ObserveReset counts one cleared policy.
func (m *Metrics) ObserveReset() {
	m.Resets.Inc()
}

// ObserveError counts a failed operation.
func (m *Metrics) ObserveError(op string) {
	m.Errors.WithLabelValues(op).Inc()
}

// ObserveDuration records how long op took.
func (m *Metrics) ObserveDuration(op string, d time.Duration) {
	m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}
