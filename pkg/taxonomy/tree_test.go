package taxonomy

import (
	"testing"

	"taxoplace/pkg/domain"
)

// buildSample constructs:
//
//	1 (root)
//	└─ 2 superkingdom
//	   └─ 3 phylum "unclassified Foo"
//	      └─ 4 class
//	         └─ 5 species
func buildSample(t *testing.T) *Taxonomy {
	t.Helper()
	tax := NewTaxonomy(1)
	must := func(err error) {
		if err != nil {
			t.Fatalf("build: %v", err)
		}
	}
	must(tax.InsertNode(2, 1))
	must(tax.InsertNode(3, 2))
	must(tax.InsertNode(4, 3))
	must(tax.InsertNode(5, 4))
	must(tax.SetAnnotation(2, "Bacteria", "superkingdom"))
	must(tax.SetAnnotation(3, "unclassified Foo", "phylum"))
	must(tax.SetAnnotation(4, "Fooclass", "class"))
	must(tax.SetAnnotation(5, "Foo bar", "species"))
	if err := tax.Reindex(); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	return tax
}

func TestReindexNestedSetContainment(t *testing.T) {
	tax := buildSample(t)
	var errs []string
	tax.BFS(func(n *Node, _ int) bool {
		if n.parent == nil {
			return true
		}
		if !(n.parent.leftValue <= n.leftValue && n.rightValue <= n.parent.rightValue) {
			errs = append(errs, "containment violated")
		}
		return true
	})
	if len(errs) > 0 {
		t.Fatalf("containment violations: %v", errs)
	}
}

func TestReindexPathLength(t *testing.T) {
	tax := buildSample(t)
	root := tax.GetRoot()
	if root.rootPathLength != 0 {
		t.Fatalf("root root_pathlength = %d, want 0", root.rootPathLength)
	}
	tax.BFS(func(n *Node, _ int) bool {
		if n.parent != nil && n.rootPathLength != n.parent.rootPathLength+1 {
			t.Errorf("taxon %d: root_pathlength %d, want parent+1 (%d)", n.taxID, n.rootPathLength, n.parent.rootPathLength+1)
		}
		return true
	})
}

func TestSizeEqualsIndexSize(t *testing.T) {
	tax := buildSample(t)
	if tax.Size() != tax.IndexSize() {
		t.Fatalf("size %d != indexSize %d", tax.Size(), tax.IndexSize())
	}
}

func TestUnclassifiedMarking(t *testing.T) {
	tax := buildSample(t)
	for _, taxID := range []int64{3, 4, 5} {
		n, _ := tax.GetNode(taxID)
		if !n.IsUnclassified() {
			t.Errorf("taxon %d: expected is_unclassified, got false", taxID)
		}
	}
	n2, _ := tax.GetNode(2)
	if n2.IsUnclassified() {
		t.Errorf("taxon 2: expected not unclassified")
	}
}

func TestGetLCAAndPathLength(t *testing.T) {
	tax := buildSample(t)
	root := tax.GetRoot()
	if up, down := tax.GetPathLength(root, root); up != 0 || down != 0 {
		t.Fatalf("GetPathLength(root,root) = (%d,%d), want (0,0)", up, down)
	}
	n4, _ := tax.GetNode(4)
	n5, _ := tax.GetNode(5)
	if lca := tax.GetLCA(n4, n5); lca != n4 {
		t.Fatalf("GetLCA(4,5) = taxon %d, want 4", lca.taxID)
	}
}

func TestIsParentOf(t *testing.T) {
	tax := buildSample(t)
	n2, _ := tax.GetNode(2)
	n5, _ := tax.GetNode(5)
	if !tax.IsParentOf(n2, n5) {
		t.Fatalf("expected taxon 2 to be ancestor of taxon 5")
	}
	if tax.IsParentOf(n5, n2) {
		t.Fatalf("taxon 5 must not be ancestor of taxon 2")
	}
}

func TestDeleteUnmarkedNodesAndSetRankDistances(t *testing.T) {
	tax := NewTaxonomy(1)
	must := func(err error) {
		if err != nil {
			t.Fatalf("build: %v", err)
		}
	}
	// root -> 2 (superkingdom) -> 3 (no rank, dummy) -> 4 (phylum) -> 5 (species)
	must(tax.InsertNode(2, 1))
	must(tax.InsertNode(3, 2))
	must(tax.InsertNode(4, 3))
	must(tax.InsertNode(5, 4))
	must(tax.SetAnnotation(2, "Bacteria", "superkingdom"))
	must(tax.SetAnnotation(4, "Fooum", "phylum"))
	must(tax.SetAnnotation(5, "Foo bar", "species"))
	if err := tax.Reindex(); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	ranks := domain.DefaultRankSet()
	before := tax.Size()
	tax.DeleteUnmarkedNodes(ranks)
	if tax.Size() != before-1 {
		t.Fatalf("expected exactly one unmarked node removed, size %d -> %d", before, tax.Size())
	}
	if _, ok := tax.GetNode(3); ok {
		t.Fatalf("taxon 3 should have been deleted")
	}
	n4, ok := tax.GetNode(4)
	if !ok || n4.parent.taxID != 2 {
		t.Fatalf("taxon 4 should be reparented to taxon 2")
	}

	tax.SetRankDistances(ranks)
	if n4.rootPathLength != 2 {
		t.Fatalf("phylum root_pathlength = %d, want 2", n4.rootPathLength)
	}
	n5, _ := tax.GetNode(5)
	if n5.rootPathLength != 7 {
		t.Fatalf("species root_pathlength = %d, want 7", n5.rootPathLength)
	}
	n2, _ := tax.GetNode(2)
	if n2.rootPathLength != 1 {
		t.Fatalf("superkingdom root_pathlength = %d, want 1", n2.rootPathLength)
	}
}

func TestInsertNodeRejectsUnknownParent(t *testing.T) {
	tax := NewTaxonomy(1)
	if err := tax.InsertNode(2, 99); err == nil {
		t.Fatalf("expected error inserting under unknown parent")
	}
}

func TestInsertNodeRejectsAfterIndexed(t *testing.T) {
	tax := NewTaxonomy(1)
	if err := tax.Reindex(); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if err := tax.InsertNode(2, 1); err == nil {
		t.Fatalf("expected error inserting after indexing")
	}
}
