package placement

import (
	"math"
	"sort"

	"taxoplace/pkg/taxonomy"
)

// maxBandFactor is the clamp ceiling ("INT_MAX" in the original source).
const maxBandFactor = float64(math.MaxInt32)

// minBandFactor is the clamp floor: a band factor never narrows a threshold.
const minBandFactor = 1.0

type scoredNode struct {
	score float64
	node  *taxonomy.Node
}

// BandFactor implements C4: given the anchor (score 0) and a stream of
// further (score, node) observations, it computes an adaptive multiplier
// expressing how far tree-monotonic behavior has been violated among the
// observations, grounded directly on the original BandFactor class.
type BandFactor struct {
	tax     *taxonomy.Taxonomy
	entries []scoredNode
}

// NewBandFactor starts an accumulator anchored at (0, anchor).
func NewBandFactor(tax *taxonomy.Taxonomy, anchor *taxonomy.Node) *BandFactor {
	return &BandFactor{
		tax:     tax,
		entries: []scoredNode{{score: 0, node: anchor}},
	}
}

// Push feeds one further (score, node) observation.
func (b *BandFactor) Push(score float64, node *taxonomy.Node) {
	b.entries = append(b.entries, scoredNode{score: score, node: node})
}

// Compute sorts every entry but the anchor by ascending score and walks
// them to produce the clamped band factor.
func (b *BandFactor) Compute() float64 {
	anchor := b.entries[0].node
	rest := make([]scoredNode, len(b.entries)-1)
	copy(rest, b.entries[1:])
	sort.Slice(rest, func(i, j int) bool { return rest[i].score < rest[j].score })

	worstScorePerRank := map[int]float64{anchor.RootPathLength(): 0}
	lastRank := anchor.RootPathLength()
	bandfactor := minBandFactor

	for _, e := range rest {
		r := b.tax.GetLCA(e.node, anchor).RootPathLength()
		switch {
		case r == lastRank:
			// no change
		case r < lastRank:
			worstScorePerRank[r] = e.score
			lastRank = r
		default: // r > lastRank: disorder
			for rr := r - 1; rr >= 0; rr-- {
				sPrime, ok := worstScorePerRank[rr]
				if !ok || sPrime == 0 {
					continue
				}
				if ratio := e.score / sPrime; ratio > bandfactor {
					bandfactor = ratio
				}
			}
		}
	}

	if bandfactor < minBandFactor {
		bandfactor = minBandFactor
	}
	if bandfactor > maxBandFactor {
		bandfactor = maxBandFactor
	}
	return bandfactor
}
