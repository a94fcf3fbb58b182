package placement

import (
	"fmt"
	"testing"

	"taxoplace/pkg/domain"
	"taxoplace/pkg/taxonomy"
)

// fakeStore returns a fixed byte slice per identifier, ignoring the
// requested range: the tests control scorer outcomes directly and don't
// exercise byte-range arithmetic here (internal/seqstore covers that).
type fakeStore struct {
	seqs map[string][]byte
}

func (s *fakeStore) GetSequence(id string, _, _ int) (domain.SequenceRecord, error) {
	seq, ok := s.seqs[id]
	if !ok {
		return domain.SequenceRecord{}, fmt.Errorf("unknown sequence %q", id)
	}
	return domain.SequenceRecord{ID: id, Sequence: seq}, nil
}

func (s *fakeStore) GetSequenceReverseComplement(id string, start, stop int) (domain.SequenceRecord, error) {
	return s.GetSequence(id, start, stop)
}

var _ domain.Store = (*fakeStore)(nil)

// hammingScorer counts mismatches between equal-length slices. Every
// fixture in this file uses equal-length reference regions so the
// mismatch count alone determines the traced control flow.
func hammingScorer(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	d := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			d++
		}
	}
	d += abs(len(a) - len(b))
	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// testTaxonomy builds root(1) -> A(2) -> leaf1(4), leaf2(5); root(1) -> B(3) -> leaf3(6).
func testTaxonomy(t *testing.T) (tax *taxonomy.Taxonomy, root, a, b, leaf1, leaf2, leaf3 *taxonomy.Node) {
	t.Helper()
	tax = taxonomy.NewTaxonomy(1)
	for _, e := range []struct{ id, parent int64 }{
		{2, 1}, {3, 1}, {4, 2}, {5, 2}, {6, 3},
	} {
		if err := tax.InsertNode(e.id, e.parent); err != nil {
			t.Fatalf("insert %d: %v", e.id, err)
		}
	}
	if err := tax.Reindex(); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	get := func(id int64) *taxonomy.Node {
		n, ok := tax.GetNode(id)
		if !ok {
			t.Fatalf("node %d missing", id)
		}
		return n
	}
	return tax, get(1), get(2), get(3), get(4), get(5), get(6)
}

func TestPredictZeroCandidates(t *testing.T) {
	tax, root, _, _, _, _, _ := testTaxonomy(t)
	m := NewRPA(tax, &fakeStore{}, hammingScorer, Config{ExcludeAlignmentsFactor: 0.9, ReevalBandwidth: 0.1})

	rec, err := m.Predict(Query{ID: "q1", Length: 10}, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !rec.Unclassified {
		t.Fatalf("expected Unclassified, got %+v", rec)
	}
	if rec.LowerNode != root || rec.UpperNode != root {
		t.Fatalf("expected both bounds at root, got lower=%v upper=%v", rec.LowerNode, rec.UpperNode)
	}
}

func TestPredictOneCandidate(t *testing.T) {
	tax, root, _, _, leaf1, _, _ := testTaxonomy(t)
	m := NewRPA(tax, &fakeStore{}, hammingScorer, Config{ExcludeAlignmentsFactor: 0.9, ReevalBandwidth: 0.1})

	rec := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 9, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf1", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf1,
	}
	out, err := m.Predict(Query{ID: "q1", Length: 10, Records: []*domain.AlignmentRecord{rec}}, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out.LowerNode != leaf1 || out.BestReferenceTaxon != leaf1 {
		t.Fatalf("expected leaf1 as lower/best, got %+v", out)
	}
	if out.UpperNode != root {
		t.Fatalf("expected root as upper bound, got %v", out.UpperNode)
	}
	if out.InterpolationValue != 1.0 {
		t.Fatalf("expected interpolation 1.0, got %v", out.InterpolationValue)
	}
	if out.AnchorsSupport != 9 {
		t.Fatalf("expected anchors support 9, got %d", out.AnchorsSupport)
	}
}

func TestPredictExactPlusDistantFiltered(t *testing.T) {
	tax, root, _, _, leaf1, _, leaf3 := testTaxonomy(t)
	m := NewRPA(tax, &fakeStore{}, hammingScorer, Config{ExcludeAlignmentsFactor: 0.9, ReevalBandwidth: 0.1})

	exact := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 10, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf1", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf1,
	}
	distant := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 5, Identities: 4, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf3", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf3,
	}
	out, err := m.Predict(Query{ID: "q1", Length: 10, Records: []*domain.AlignmentRecord{exact, distant}}, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !distant.Filtered {
		t.Fatalf("expected the low-scoring record to be filtered")
	}
	if out.LowerNode != leaf1 || out.BestReferenceTaxon != leaf1 {
		t.Fatalf("expected the surviving exact match to drive placement, got %+v", out)
	}
	if out.UpperNode != root {
		t.Fatalf("expected root as upper bound (single-survivor shortcut), got %v", out.UpperNode)
	}
	if out.InterpolationValue != 1.0 {
		t.Fatalf("expected interpolation 1.0, got %v", out.InterpolationValue)
	}
}

func TestPredictTwoIdenticalReferences(t *testing.T) {
	tax, root, a, _, leaf1, leaf2, _ := testTaxonomy(t)
	store := &fakeStore{seqs: map[string][]byte{
		"q1":        []byte("AAAAAAAAAA"),
		"ref-leaf1": []byte("AAAAAAAAAA"),
		"ref-leaf2": []byte("AAAAAAAAAA"),
	}}
	m := NewRPA(tax, store, hammingScorer, Config{ExcludeAlignmentsFactor: 0.9, ReevalBandwidth: 0.1})

	r1 := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 10, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf1", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf1,
	}
	r2 := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 10, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf2", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf2,
	}
	out, err := m.Predict(Query{ID: "q1", Length: 10, Records: []*domain.AlignmentRecord{r1, r2}}, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out.LowerNode != a {
		t.Fatalf("expected lower node at the shared parent A, got %v", out.LowerNode)
	}
	if out.BestReferenceTaxon != a {
		t.Fatalf("expected best-reference taxon at A, got %v", out.BestReferenceTaxon)
	}
	if out.UpperNode != root {
		t.Fatalf("expected root as upper bound with no disagreeing evidence, got %v", out.UpperNode)
	}
	if out.InterpolationValue != 1.0 {
		t.Fatalf("expected interpolation 1.0, got %v", out.InterpolationValue)
	}
	if out.AnchorsSupport != 10 {
		t.Fatalf("expected anchors support 10, got %d", out.AnchorsSupport)
	}
}

func TestPredictExactPlusSibling(t *testing.T) {
	tax, _, a, _, leaf1, leaf2, _ := testTaxonomy(t)
	store := &fakeStore{seqs: map[string][]byte{
		"q1":        []byte("QQQQQQQQQQ"),
		"ref-leaf1": []byte("AAAAAAAAAA"),
		"ref-leaf2": []byte("AAAAAAACCC"),
	}}
	m := NewRPA(tax, store, hammingScorer, Config{ExcludeAlignmentsFactor: 0.3, ReevalBandwidth: 0.5})

	exact := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 10, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf1", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf1,
	}
	sibling := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 40, Identities: 8, AlignLength: 8,
		ReferenceIdentifier: "ref-leaf2", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf2,
	}
	out, err := m.Predict(Query{ID: "q1", Length: 10, Records: []*domain.AlignmentRecord{exact, sibling}}, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out.LowerNode != leaf1 || out.BestReferenceTaxon != leaf1 {
		t.Fatalf("expected lower/best at leaf1, got %+v", out)
	}
	if out.UpperNode != a {
		t.Fatalf("expected upper bound widened to A by the sibling, got %v", out.UpperNode)
	}
	if out.InterpolationValue != 0.0 {
		t.Fatalf("expected interpolation 0.0, got %v", out.InterpolationValue)
	}
	if out.AnchorsSupport != 10 {
		t.Fatalf("expected anchors support 10, got %d", out.AnchorsSupport)
	}
}

func TestPredictIngroupAndOutgroup(t *testing.T) {
	tax, root, a, _, leaf1, leaf2, leaf3 := testTaxonomy(t)
	store := &fakeStore{seqs: map[string][]byte{
		"q1":        []byte("QQQQQQQQQQ"),
		"ref-leaf1": []byte("AAAAAAAAAA"),
		"ref-leaf2": []byte("AAAAAAAAAA"),
		"ref-leaf3": []byte("CCCCCCCCCA"),
	}}
	m := NewRPA(tax, store, hammingScorer, Config{ExcludeAlignmentsFactor: 0.3, ReevalBandwidth: 0})

	ingroup1 := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 10, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf1", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf1,
	}
	ingroup2 := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 100, Identities: 10, AlignLength: 10,
		ReferenceIdentifier: "ref-leaf2", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf2,
	}
	outgroup := &domain.AlignmentRecord{
		QueryStart: 1, QueryStop: 10,
		ScoreValue: 90, Identities: 7, AlignLength: 9,
		ReferenceIdentifier: "ref-leaf3", ReferenceStart: 1, ReferenceStop: 10,
		ReferenceNode: leaf3,
	}
	out, err := m.Predict(Query{ID: "q1", Length: 10, Records: []*domain.AlignmentRecord{ingroup1, ingroup2, outgroup}}, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out.LowerNode != a {
		t.Fatalf("expected the ingroup pair to resolve to A, got %v", out.LowerNode)
	}
	if out.BestReferenceTaxon != a {
		t.Fatalf("expected best-reference taxon at A, got %v", out.BestReferenceTaxon)
	}
	if out.UpperNode != root {
		t.Fatalf("expected the outgroup to widen the upper bound to root, got %v", out.UpperNode)
	}
	if out.InterpolationValue != 0.0 {
		t.Fatalf("expected interpolation 0.0, got %v", out.InterpolationValue)
	}
	if out.AnchorsSupport != 10 {
		t.Fatalf("expected anchors support 10, got %d", out.AnchorsSupport)
	}
}
