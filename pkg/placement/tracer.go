package placement

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Span is a per-call trace span: timers are per-call fields, never
// shared, to avoid races between concurrent placements.
type Span struct {
	id        string
	queryID   string
	startedAt time.Time
	tracer    *JSONTracer
}

// End records the span's outcome. err may be nil.
func (s *Span) End(err error) {
	entry := traceEntry{
		SpanID:    s.id,
		QueryID:   s.queryID,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
		DurationMS: float64(time.Since(s.startedAt).Microseconds()) / 1000.0,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.tracer.write(entry)
}

type traceEntry struct {
	SpanID     string    `json:"span_id"`
	QueryID    string    `json:"query_id"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// JSONTracer writes one JSON line per completed placement span, using
// per-call Span values rather than a context.Context-scoped pair, since
// placements run concurrently with independent scratch state.
type JSONTracer struct {
	w io.Writer
}

// NewJSONTracer wraps w as a trace sink.
func NewJSONTracer(w io.Writer) *JSONTracer { return &JSONTracer{w: w} }

// Start begins a span for queryID.
func (t *JSONTracer) Start(queryID string) *Span {
	return &Span{id: uuid.NewString(), queryID: queryID, startedAt: time.Now(), tracer: t}
}

func (t *JSONTracer) write(entry traceEntry) {
	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = t.w.Write(b)
}

// LineLogSink implements domain.LogSink by writing plain diagnostic lines:
// NUMREF, per-pass NUMALN, RANGE, and a final STATS line.
type LineLogSink struct {
	w io.Writer
}

// NewLineLogSink wraps w as a diagnostic LogSink.
func NewLineLogSink(w io.Writer) *LineLogSink { return &LineLogSink{w: w} }

// Line writes one formatted diagnostic line, newline-terminated.
func (s *LineLogSink) Line(format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	_, _ = io.WriteString(s.w, msg+"\n")
}
