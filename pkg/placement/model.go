package placement

import (
	"taxoplace/pkg/domain"
	"taxoplace/pkg/taxonomy"
)

// Scorer is the external pairwise edit-distance primitive:
// a pure function returning a nonnegative alignment score, lower is
// better. internal/align provides the production implementation.
type Scorer func(a, b []byte) int

// Config holds the two numeric knobs that tune placement.
type Config struct {
	// ExcludeAlignmentsFactor is exclude_factor, in (0,1].
	ExcludeAlignmentsFactor float64
	// ReevalBandwidth is reeval_bandwidth, in [0,1); the engine stores
	// reeval_factor = 1 - reeval_bandwidth.
	ReevalBandwidth float64
}

func (c Config) reevalFactor() float64 { return 1 - c.ReevalBandwidth }

// Query is one placement request: a recordset of candidate alignments
// for a single query sequence.
type Query struct {
	ID      string
	Length  int
	Records []*domain.AlignmentRecord
}

// Model is the placement capability: a tagged variant, not a base class.
// RPA is the sole production implementation.
type Model interface {
	Predict(q Query, sink domain.LogSink) (domain.PredictionRecord, error)
}

// RPA implements the three-pass realignment and placement algorithm
// (C5), grounded directly on the original taxator-tk RPAPredictionModel.
type RPA struct {
	tax     *taxonomy.Taxonomy
	store   domain.Store
	scorer  Scorer
	cfg     Config
	metrics MetricsRecorder
	tracer  *JSONTracer
}

// NewRPA constructs a placement engine over an already-built, already
// rank-normalized taxonomy. The taxonomy must be frozen before any
// placement begins.
func NewRPA(tax *taxonomy.Taxonomy, store domain.Store, scorer Scorer, cfg Config, opts ...Option) *RPA {
	m := &RPA{
		tax:     tax,
		store:   store,
		scorer:  scorer,
		cfg:     cfg,
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures optional RPA collaborators.
type Option func(*RPA)

// WithMetrics attaches a MetricsRecorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *RPA) { r.metrics = m }
}

// WithTracer attaches a JSONTracer for per-call span recording.
func WithTracer(t *JSONTracer) Option {
	return func(r *RPA) { r.tracer = t }
}

var _ Model = (*RPA)(nil)
