// Package taxrepo persists a built taxonomy.Taxonomy as a snapshot and
// reloads it without re-running InsertNode/Reindex from scratch.
package taxrepo

import (
	"encoding/json"
	"fmt"

	"taxoplace/pkg/taxonomy"
)

// NodeRecord is one taxon as stored in a snapshot: enough to replay
// InsertNode/SetAnnotation calls against a fresh Taxonomy.
type NodeRecord struct {
	TaxID       int64  `json:"tax_id"`
	ParentTaxID int64  `json:"parent_tax_id"`
	IsRoot      bool   `json:"is_root"`
	Name        string `json:"name,omitempty"`
	Rank        string `json:"rank,omitempty"`
}

// Snapshot is a whole taxonomy's structure and annotations, ready to be
// rebuilt without re-reading source flat files. Root path lengths are not
// stored: Rebuild reindexes, so they come back as tree depths and any
// SetRankDistances assignment is not kept.
type Snapshot struct {
	Nodes []NodeRecord `json:"nodes"`
}

// Encode marshals a Taxonomy into a Snapshot in parent-first BFS order,
// so Rebuild can replay InsertNode calls directly.
func Encode(tax *taxonomy.Taxonomy) (Snapshot, error) {
	root := tax.GetRoot()
	if root == nil {
		return Snapshot{}, fmt.Errorf("taxonomy has no root")
	}
	var nodes []NodeRecord
	tax.BFS(func(n *taxonomy.Node, depth int) bool {
		rec := NodeRecord{TaxID: n.TaxID(), IsRoot: n == root}
		if !rec.IsRoot {
			if n.Parent() != nil {
				rec.ParentTaxID = n.Parent().TaxID()
			}
		}
		if ann, ok := n.Annotation(); ok {
			rec.Name, rec.Rank = ann.Name, ann.Rank
		}
		nodes = append(nodes, rec)
		return true
	})
	return Snapshot{Nodes: nodes}, nil
}

// Rebuild replays a Snapshot's nodes, in the order stored, against a
// fresh Taxonomy and reindexes it. The snapshot must have been encoded
// in parent-first order, which Encode guarantees via BFS.
func Rebuild(snap Snapshot) (*taxonomy.Taxonomy, error) {
	if len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}
	root := snap.Nodes[0]
	if !root.IsRoot {
		return nil, fmt.Errorf("snapshot's first node is not marked root")
	}
	tax := taxonomy.NewTaxonomy(root.TaxID)
	if root.Name != "" || root.Rank != "" {
		if err := tax.SetAnnotation(root.TaxID, root.Name, root.Rank); err != nil {
			return nil, err
		}
	}
	for _, n := range snap.Nodes[1:] {
		if err := tax.InsertNode(n.TaxID, n.ParentTaxID); err != nil {
			return nil, fmt.Errorf("insert taxon %d: %w", n.TaxID, err)
		}
		if n.Name != "" || n.Rank != "" {
			if err := tax.SetAnnotation(n.TaxID, n.Name, n.Rank); err != nil {
				return nil, fmt.Errorf("annotate taxon %d: %w", n.TaxID, err)
			}
		}
	}
	if err := tax.Reindex(); err != nil {
		return nil, err
	}
	return tax, nil
}

// MarshalSnapshot and UnmarshalSnapshot are the JSON codec shared by both
// backends, so the on-disk payload shape never drifts between them.
func MarshalSnapshot(snap Snapshot) ([]byte, error) { return json.Marshal(snap) }

func UnmarshalSnapshot(b []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
