// Package taxonomy implements the nested-set taxonomy tree (C1), its
// read-only query interface (C2), and rank normalization (C3).
package taxonomy

import "taxoplace/pkg/domain"

// Node is one taxon in the tree. The zero value is not usable; nodes are
// created through Taxonomy.InsertNode.
type Node struct {
	taxID      int64
	annotation *domain.TaxonAnnotation

	parent   *Node
	children []*Node

	leftValue  uint64
	rightValue uint64

	rootPathLength int
	isUnclassified bool

	// mark is scratch state used by rank normalization; it has no meaning
	// outside DeleteUnmarkedNodes.
	mark bool
}

// TaxID returns the stable integer identifier.
func (n *Node) TaxID() int64 { return n.taxID }

// LeftValue returns the nested-set left bound.
func (n *Node) LeftValue() uint64 { return n.leftValue }

// RightValue returns the nested-set right bound.
func (n *Node) RightValue() uint64 { return n.rightValue }

// RootPathLength returns the edge count from root, or (post-normalization)
// the canonical depth of the node's rank.
func (n *Node) RootPathLength() int { return n.rootPathLength }

// Annotation returns the node's name/rank pair, if any.
func (n *Node) Annotation() (domain.TaxonAnnotation, bool) {
	if n.annotation == nil {
		return domain.TaxonAnnotation{}, false
	}
	return *n.annotation, true
}

// IsUnclassified reports whether some ancestor path to root passes through
// a node whose annotation name contains "unclassified".
func (n *Node) IsUnclassified() bool { return n.isUnclassified }

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children. The slice is owned by the tree;
// callers must not mutate it.
func (n *Node) Children() []*Node { return n.children }

var _ domain.TaxonRef = (*Node)(nil)
