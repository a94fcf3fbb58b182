package taxonomy

import (
	"fmt"
	"strings"

	"taxoplace/pkg/domain"
)

// Taxonomy is the tree plus an index from taxid to node. It is built once
// via InsertNode/SetAnnotation in parent-first order, then Reindex'd; after
// that it is immutable and safe to share across goroutines.
type Taxonomy struct {
	root    *Node
	index   map[int64]*Node
	indexed bool
}

// NewTaxonomy creates an empty taxonomy with the given root taxid. The root
// is never deleted and always has root_pathlength 0.
func NewTaxonomy(rootTaxID int64) *Taxonomy {
	root := &Node{taxID: rootTaxID}
	return &Taxonomy{
		root:  root,
		index: map[int64]*Node{rootTaxID: root},
	}
}

// InsertNode adds a child of parentTaxID. The loader must call this in
// valid parent-first order: parentTaxID must already be indexed.
func (t *Taxonomy) InsertNode(taxID, parentTaxID int64) error {
	if t.indexed {
		return fmt.Errorf("insert taxon %d: taxonomy already indexed", taxID)
	}
	if _, exists := t.index[taxID]; exists {
		return fmt.Errorf("insert taxon %d: already present", taxID)
	}
	parent, ok := t.index[parentTaxID]
	if !ok {
		return fmt.Errorf("insert taxon %d: parent %d not yet present", taxID, parentTaxID)
	}
	n := &Node{taxID: taxID, parent: parent}
	parent.children = append(parent.children, n)
	t.index[taxID] = n
	return nil
}

// SetAnnotation attaches a name/rank pair to an already-inserted node.
func (t *Taxonomy) SetAnnotation(taxID int64, name, rank string) error {
	n, ok := t.index[taxID]
	if !ok {
		return domain.MissingTaxonError{TaxID: taxID}
	}
	if name == rank {
		return fmt.Errorf("set annotation on taxon %d: name %q equals rank", taxID, name)
	}
	n.annotation = &domain.TaxonAnnotation{Name: name, Rank: rank}
	return nil
}

// Reindex performs the whole-tree depth-first traversal: assigns
// leftvalue on descent and rightvalue on ascent using a monotonically
// increasing counter, sets root_pathlength by accumulating depth, and
// marks is_unclassified on every node whose ancestor chain (inclusive)
// contains "unclassified" in its name.
func (t *Taxonomy) Reindex() error {
	var counter uint64
	var walk func(n *Node, depth int, unclassifiedAncestor bool)
	walk = func(n *Node, depth int, unclassifiedAncestor bool) {
		n.leftValue = counter
		counter++
		n.rootPathLength = depth

		marked := unclassifiedAncestor
		if n.annotation != nil && strings.Contains(n.annotation.Name, "unclassified") {
			marked = true
		}
		// is_unclassified is true for the node whose own name matches and
		// for every node below it, never for that node's ancestors.
		n.isUnclassified = marked

		for _, c := range n.children {
			walk(c, depth+1, marked)
		}
		n.rightValue = counter
		counter++
	}
	walk(t.root, 0, false)
	t.indexed = true
	return t.checkInvariants()
}

// GetRoot returns the taxonomy root.
func (t *Taxonomy) GetRoot() *Node { return t.root }

// GetNode looks up a node by taxid.
func (t *Taxonomy) GetNode(taxID int64) (*Node, bool) {
	n, ok := t.index[taxID]
	return n, ok
}

// Size returns the number of nodes in the tree.
func (t *Taxonomy) Size() int { return len(t.index) }

// IndexSize returns the number of nodes reachable through the taxid
// index. Invariant: always equal to Size.
func (t *Taxonomy) IndexSize() int { return len(t.index) }

// Children returns n's children as a plain slice; a lazy iterator
// buys nothing at this scale.
func (t *Taxonomy) Children(n *Node) []*Node { return n.Children() }

// BFS walks the tree breadth-first, yielding each node with its depth.
func (t *Taxonomy) BFS(yield func(n *Node, depth int) bool) {
	type item struct {
		n     *Node
		depth int
	}
	queue := []item{{t.root, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !yield(cur.n, cur.depth) {
			return
		}
		for _, c := range cur.n.children {
			queue = append(queue, item{c, cur.depth + 1})
		}
	}
}

func (t *Taxonomy) checkInvariants() error {
	if t.Size() != t.IndexSize() {
		return domain.InvalidTaxonomyError{Reason: "size does not equal indexSize"}
	}
	var err error
	t.BFS(func(n *Node, _ int) bool {
		if n.annotation != nil && n.annotation.Name == n.annotation.Rank {
			err = domain.InvalidTaxonomyError{Reason: fmt.Sprintf("taxon %d: annotation name equals rank", n.taxID)}
			return false
		}
		if n.parent != nil {
			if n.parent.leftValue > n.leftValue || n.rightValue > n.parent.rightValue {
				err = domain.InvalidTaxonomyError{Reason: fmt.Sprintf("taxon %d: nested-set containment violated", n.taxID)}
				return false
			}
			if n.rootPathLength != n.parent.rootPathLength+1 {
				err = domain.InvalidTaxonomyError{Reason: fmt.Sprintf("taxon %d: root_pathlength not parent+1", n.taxID)}
				return false
			}
		}
		return true
	})
	return err
}
