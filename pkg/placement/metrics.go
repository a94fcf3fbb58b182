package placement

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder observes placement outcomes. NewRPA uses NoopMetrics
// unless WithMetrics supplies another recorder such as PrometheusMetrics.
type MetricsRecorder interface {
	ObservePlacement(outcome string, duration time.Duration)
	ObservePass(pass string, recordCount int)
}

// PrometheusMetrics implements MetricsRecorder with a CounterVec for
// per-pass alignment counts and a HistogramVec for placement duration by
// outcome (classified, unclassified, error).
type PrometheusMetrics struct {
	duration *prometheus.HistogramVec
	passes   *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the
// default global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxoplace",
			Subsystem: "placement",
			Name:      "duration_seconds",
			Help:      "Placement wall-clock duration by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxoplace",
			Subsystem: "placement",
			Name:      "pass_records_total",
			Help:      "Alignments scored per RPA pass.",
		}, []string{"pass"}),
	}
	reg.MustRegister(m.duration, m.passes)
	return m
}

// ObservePlacement records one completed placement.
func (m *PrometheusMetrics) ObservePlacement(outcome string, duration time.Duration) {
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObservePass records how many alignments a pass scored.
func (m *PrometheusMetrics) ObservePass(pass string, recordCount int) {
	m.passes.WithLabelValues(pass).Add(float64(recordCount))
}

// NoopMetrics discards all observations; useful for tests and one-off CLI
// invocations that don't expose a metrics endpoint.
type NoopMetrics struct{}

func (NoopMetrics) ObservePlacement(string, time.Duration) {}
func (NoopMetrics) ObservePass(string, int)                {}

var _ MetricsRecorder = NoopMetrics{}
var _ MetricsRecorder = (*PrometheusMetrics)(nil)
