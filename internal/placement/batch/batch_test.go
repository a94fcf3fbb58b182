package batch

import (
	"context"
	"fmt"
	"testing"

	"taxoplace/pkg/domain"
	"taxoplace/pkg/placement"
)

type fakeModel struct {
	failOn string
}

func (m fakeModel) Predict(q placement.Query, sink domain.LogSink) (domain.PredictionRecord, error) {
	if q.ID == m.failOn {
		return domain.PredictionRecord{}, fmt.Errorf("boom")
	}
	return domain.PredictionRecord{QueryID: q.ID, QueryLength: q.Length}, nil
}

var _ placement.Model = fakeModel{}

func TestRunPreservesOrderAndCollectsErrors(t *testing.T) {
	queries := []placement.Query{
		{ID: "q1", Length: 10},
		{ID: "q2", Length: 20},
		{ID: "q3", Length: 30},
	}
	results, err := Run(context.Background(), fakeModel{failOn: "q2"}, queries, nil, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"q1", "q2", "q3"} {
		if results[i].QueryID != want {
			t.Fatalf("results[%d].QueryID = %q, want %q", i, results[i].QueryID, want)
		}
	}
	if results[1].Err == nil {
		t.Fatalf("expected q2 to fail")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("expected q1 and q3 to succeed")
	}
}

func TestRunDefaultsConcurrencyToOne(t *testing.T) {
	queries := []placement.Query{{ID: "q1"}}
	results, err := Run(context.Background(), fakeModel{}, queries, nil, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
}
