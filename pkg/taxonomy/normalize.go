package taxonomy

import "taxoplace/pkg/domain"

// DeleteUnmarkedNodes removes every node whose rank is not in ranks,
// re-parenting its children to its surviving (marked) ancestor. The root
// is never deleted. Nested-set intervals are left as-is: they stay
// a valid containment encoding for the surviving tree because a kept
// node's new parent interval strictly contains its old parent's interval,
// which already contained the kept node's own interval.
func (t *Taxonomy) DeleteUnmarkedNodes(ranks domain.RankSet) {
	marked := make(map[*Node]bool, len(t.index))
	t.BFS(func(n *Node, _ int) bool {
		if n == t.root {
			marked[n] = true
			return true
		}
		if ann, ok := n.Annotation(); ok && ranks.Contains(ann.Rank) {
			marked[n] = true
		}
		return true
	})

	survivingParent := make(map[*Node]*Node, len(t.index))
	for _, n := range t.index {
		if n == t.root {
			continue
		}
		p := n.parent
		for p != t.root && !marked[p] {
			p = p.parent
		}
		survivingParent[n] = p
	}

	newChildren := make(map[*Node][]*Node, len(t.index))
	for _, n := range t.index {
		if n == t.root || !marked[n] {
			continue
		}
		p := survivingParent[n]
		newChildren[p] = append(newChildren[p], n)
	}

	for _, n := range t.index {
		if marked[n] {
			n.children = newChildren[n]
			if n != t.root {
				n.parent = survivingParent[n]
			}
		}
	}

	newIndex := make(map[int64]*Node, len(newChildren)+1)
	for taxID, n := range t.index {
		if marked[n] {
			newIndex[taxID] = n
		}
	}
	t.index = newIndex
}

// SetRankDistances assigns each remaining node's root_pathlength to the
// canonical depth of its rank. Nodes without a canonical rank take
// their parent's root_pathlength + 1, so nodes that do carry a canonical
// rank always report the same depth regardless of how many uncanonical
// nodes sit above them.
func (t *Taxonomy) SetRankDistances(ranks domain.RankSet) {
	t.root.rootPathLength = 0
	t.BFS(func(n *Node, _ int) bool {
		for _, c := range n.children {
			if ann, ok := c.Annotation(); ok {
				if depth, ok := ranks.CanonicalDepth(ann.Rank); ok {
					c.rootPathLength = depth
					continue
				}
			}
			c.rootPathLength = n.rootPathLength + 1
		}
		return true
	})
}
