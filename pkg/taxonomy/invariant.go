package taxonomy

import (
	"fmt"

	"taxoplace/pkg/domain"
)

// Severity classifies an invariant Violation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// Violation is one broken invariant, identified by the check that found
// it and the node it concerns.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	TaxID    int64
}

// Result aggregates Violations found while checking a Taxonomy.
type Result struct {
	Violations []Violation
}

// HasFatal reports whether any violation is fatal.
func (r Result) HasFatal() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// CheckInvariants re-validates the universal taxonomy invariants
// beyond what Reindex already enforces at build time: useful after
// DeleteUnmarkedNodes/SetRankDistances, or for defensive checks on a
// taxonomy loaded from a snapshot.
func (t *Taxonomy) CheckInvariants(ranks domain.RankSet) Result {
	var res Result
	if t.Size() != t.IndexSize() {
		res.Violations = append(res.Violations, Violation{
			Rule: "TAXONOMY_SIZE", Severity: SeverityFatal,
			Message: fmt.Sprintf("size %d != indexSize %d", t.Size(), t.IndexSize()),
		})
	}
	if t.root.rootPathLength != 0 {
		res.Violations = append(res.Violations, Violation{
			Rule: "PATHLENGTH_ROOT", Severity: SeverityFatal, TaxID: t.root.taxID,
			Message: "root root_pathlength != 0",
		})
	}
	t.BFS(func(n *Node, _ int) bool {
		if n.parent == nil {
			return true
		}
		if n.parent.leftValue > n.leftValue || n.rightValue > n.parent.rightValue {
			res.Violations = append(res.Violations, Violation{
				Rule: "NESTED_SET", Severity: SeverityFatal, TaxID: n.taxID,
				Message: "nested-set containment violated",
			})
		}
		ann, ok := n.Annotation()
		if !ok {
			return true
		}
		if depth, ok := ranks.CanonicalDepth(ann.Rank); ok && n.rootPathLength != depth {
			res.Violations = append(res.Violations, Violation{
				Rule: "NORMALIZED_DEPTH", Severity: SeverityWarning, TaxID: n.taxID,
				Message: fmt.Sprintf("rank %s expects depth %d, got %d", ann.Rank, depth, n.rootPathLength),
			})
		}
		return true
	})
	return res
}
