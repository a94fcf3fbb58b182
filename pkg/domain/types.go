// Package domain holds the data types shared across the taxonomy and
// placement packages: the records placement consumes and produces, plus
// the small interfaces external collaborators (sequence storage, log
// sinks) must satisfy.
package domain

// TaxonAnnotation is the optional name/rank payload attached to a taxon
// node. A node without one is a "dummy" internal node.
type TaxonAnnotation struct {
	Name string
	Rank string
}

// RankSet is a caller-supplied ordered rank ladder used by rank
// normalization. CanonicalDepth gives the canonical depth of each named rank
// (1-based, matching root_pathlength after normalization).
type RankSet struct {
	order []string
	depth map[string]int
}

// DefaultRankSet returns the canonical seven-rank ladder used throughout
// the testable-property examples: superkingdom=1 .. species=7.
func DefaultRankSet() RankSet {
	return NewRankSet([]string{
		"superkingdom",
		"phylum",
		"class",
		"order",
		"family",
		"genus",
		"species",
	})
}

// NewRankSet builds a RankSet from an ordered list of rank names, assigning
// canonical depths 1..len(ranks) in order.
func NewRankSet(ranks []string) RankSet {
	depth := make(map[string]int, len(ranks))
	for i, r := range ranks {
		depth[r] = i + 1
	}
	order := make([]string, len(ranks))
	copy(order, ranks)
	return RankSet{order: order, depth: depth}
}

// Contains reports whether rank is part of the marked ladder.
func (rs RankSet) Contains(rank string) bool {
	_, ok := rs.depth[rank]
	return ok
}

// CanonicalDepth returns the canonical root_pathlength for rank and true,
// or (0, false) if rank is not part of the ladder.
func (rs RankSet) CanonicalDepth(rank string) (int, bool) {
	d, ok := rs.depth[rank]
	return d, ok
}

// Ranks returns the ordered rank names, lowest index first.
func (rs RankSet) Ranks() []string {
	out := make([]string, len(rs.order))
	copy(out, rs.order)
	return out
}

// AlignmentRecord is one candidate local alignment between a query and a
// reference sequence, as produced by the alignment-record parser. The
// core treats every field read-only except Filtered.
type AlignmentRecord struct {
	QueryStart  int
	QueryStop   int
	Identities  int
	ScoreValue  float64
	AlignLength int

	ReferenceIdentifier string
	ReferenceStart      int
	ReferenceStop       int
	ReferenceNode       TaxonRef

	Filtered bool
}

// TaxonRef is the minimal read-only view of a taxonomy node the placement
// engine needs. pkg/taxonomy.Node implements it; keeping it as an
// interface here avoids an import cycle between domain and taxonomy.
type TaxonRef interface {
	TaxID() int64
	LeftValue() uint64
	RightValue() uint64
	RootPathLength() int
	Annotation() (TaxonAnnotation, bool)
	IsUnclassified() bool
}

// PredictionRecord is the placement output for one query.
type PredictionRecord struct {
	QueryID     string
	QueryLength int
	QueryStart  int
	QueryStop   int

	LowerNode          TaxonRef
	UpperNode          TaxonRef
	BestReferenceTaxon TaxonRef

	InterpolationValue float64
	SignalStrength     float64
	AnchorsSupport     int

	// Unclassified is true for the EmptyAlignmentSet shortcut: not an
	// error, but a result carrying no bounded placement.
	Unclassified bool
}

// SequenceRecord is a fetched sequence plus bookkeeping length, as
// returned by a Store.
type SequenceRecord struct {
	ID       string
	Sequence []byte
}

// Len returns the sequence length in bases.
func (s SequenceRecord) Len() int { return len(s.Sequence) }

// Store is the sequence-storage external interface: two capabilities,
// 1-based inclusive coordinates, reverse-complement served directly
// rather than computed by the caller.
type Store interface {
	GetSequence(id string, start, stop int) (SequenceRecord, error)
	GetSequenceReverseComplement(id string, start, stop int) (SequenceRecord, error)
}

// LogSink accepts diagnostic trace lines: NUMREF, per-pass NUMALN, RANGE,
// and a final STATS line. Format is diagnostic, not contractual.
type LogSink interface {
	Line(format string, args ...any)
}

// IdentifierTaxonStore is a sequence-identifier-to-taxon-id key-value
// store, consumed by surrounding tooling (the alignment-record parser)
// rather than by the placement core itself.
type IdentifierTaxonStore interface {
	LookupTaxID(sequenceID string) (int64, error)
}
