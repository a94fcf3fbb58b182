package placement

import (
	"math"
	"time"

	"taxoplace/pkg/domain"
	"taxoplace/pkg/taxonomy"
)

const intMax = math.MaxInt

// outgroupEntry pairs a record index with its measured score, used while
// building and curating outgroup_tmp in Pass 1.
type outgroupEntry struct {
	index int
	score int
}

// Predict runs the three-pass algorithm for one query. It never
// retries and never panics on a per-query failure: MissingSequence
// aborts this call only, returned to the caller.
func (m *RPA) Predict(q Query, sink domain.LogSink) (rec domain.PredictionRecord, err error) {
	started := time.Now()
	var span *Span
	if m.tracer != nil {
		span = m.tracer.Start(q.ID)
	}
	outcome := "classified"
	defer func() {
		if err != nil {
			outcome = "error"
		} else if rec.Unclassified {
			outcome = "unclassified"
		}
		m.metrics.ObservePlacement(outcome, time.Since(started))
		if span != nil {
			span.End(err)
		}
	}()

	root := m.tax.GetRoot()

	// Phase A: screen and shortcut.
	unfiltered := make([]*domain.AlignmentRecord, 0, len(q.Records))
	for _, r := range q.Records {
		if !r.Filtered {
			unfiltered = append(unfiltered, r)
		}
	}
	qmaxscore := 0.0
	for _, r := range unfiltered {
		if r.ScoreValue > qmaxscore {
			qmaxscore = r.ScoreValue
		}
	}
	threshold := qmaxscore * m.cfg.ExcludeAlignmentsFactor
	for _, r := range unfiltered {
		if r.ScoreValue < threshold {
			r.Filtered = true
		}
	}
	survivors := make([]*domain.AlignmentRecord, 0, len(unfiltered))
	for _, r := range unfiltered {
		if !r.Filtered {
			survivors = append(survivors, r)
		}
	}
	n := len(survivors)
	if sink != nil {
		sink.Line("NUMREF %d", n)
	}

	if n == 0 {
		return domain.PredictionRecord{
			QueryID:      q.ID,
			QueryLength:  q.Length,
			LowerNode:    root,
			UpperNode:    root,
			Unclassified: true,
		}, nil
	}
	if n == 1 {
		r := survivors[0]
		node, cerr := asNode(r.ReferenceNode)
		if cerr != nil {
			return domain.PredictionRecord{}, cerr
		}
		return domain.PredictionRecord{
			QueryID:            q.ID,
			QueryLength:        q.Length,
			QueryStart:         r.QueryStart,
			QueryStop:          r.QueryStop,
			LowerNode:          node,
			UpperNode:          root,
			BestReferenceTaxon: node,
			InterpolationValue: 1.0,
			AnchorsSupport:     r.Identities,
		}, nil
	}

	// Phase B: query range and sequence fetch.
	qrstart, qrstop := survivors[0].QueryStart, survivors[0].QueryStop
	for _, r := range survivors[1:] {
		if r.QueryStart < qrstart {
			qrstart = r.QueryStart
		}
		if r.QueryStop > qrstop {
			qrstop = r.QueryStop
		}
	}
	qrlength := qrstop - qrstart + 1

	qrecord, ferr := m.store.GetSequence(q.ID, qrstart, qrstop)
	if ferr != nil {
		return domain.PredictionRecord{}, domain.MissingSequenceError{QueryID: q.ID, SequenceID: q.ID, Cause: ferr}
	}
	qrseq := qrecord.Sequence

	nodes := make([]*taxonomy.Node, n)
	rrseqs := make([][]byte, n)
	for i, r := range survivors {
		node, cerr := asNode(r.ReferenceNode)
		if cerr != nil {
			return domain.PredictionRecord{}, cerr
		}
		nodes[i] = node

		leftOverhang := r.QueryStart - qrstart
		rightOverhang := qrstop - r.QueryStop
		var seq domain.SequenceRecord
		var serr error
		if r.ReferenceStart <= r.ReferenceStop {
			seq, serr = m.store.GetSequence(r.ReferenceIdentifier, r.ReferenceStart-leftOverhang, r.ReferenceStop+rightOverhang)
		} else {
			seq, serr = m.store.GetSequenceReverseComplement(r.ReferenceIdentifier, r.ReferenceStop-rightOverhang, r.ReferenceStart+leftOverhang)
		}
		if serr != nil {
			return domain.PredictionRecord{}, domain.MissingSequenceError{QueryID: q.ID, SequenceID: r.ReferenceIdentifier, Cause: serr}
		}
		rrseqs[i] = seq.Sequence
	}

	qscores := make([]int, n)
	matchesArr := make([]int, n)
	pass0Count, pass1Count, pass2Count := 0, 0, 0

	// Pass 0: best-reference re-evaluation.
	threshold0 := m.cfg.reevalFactor() * qmaxscore
	qgroup := newIntSet()
	bestScore, bestMatches := intMax, -1
	anchorsSupport := 0
	for i, r := range survivors {
		var score, matches int
		switch {
		case r.AlignLength == qrlength && r.Identities == qrlength:
			score, matches = 0, r.Identities
			qgroup.Add(i)
		case r.ScoreValue >= threshold0:
			pass0Count++
			score = m.scorer(rrseqs[i], qrseq)
			matches = maxInt(maxInt(len(rrseqs[i]), len(qrseq))-score, r.Identities)
			qgroup.Add(i)
		default:
			score, matches = intMax, 0
		}
		qscores[i] = score
		matchesArr[i] = matches
		if score < bestScore || (score == bestScore && matches > bestMatches) {
			bestScore, bestMatches = score, matches
		}
		if matches > anchorsSupport {
			anchorsSupport = matches
		}
	}
	lcaAllNodes := m.tax.GetLCASet(nodes)

	var rtaxNodes []*taxonomy.Node
	restricted := newIntSet()
	for _, i := range qgroup.Items() {
		if qscores[i] == bestScore && matchesArr[i] == bestMatches {
			rtaxNodes = append(rtaxNodes, nodes[i])
			restricted.Add(i)
		}
	}
	qgroup = restricted
	rtax := m.tax.GetLCASet(rtaxNodes)
	m.metrics.ObservePass("pass0", pass0Count)
	if sink != nil {
		sink.Line("NUMALN pass0 %d", pass0Count)
		sink.Line("RANGE %d %d", qrstart, qrstop)
	}

	// Pass 1: ingroup / outgroup expansion.
	lnodeGlobal, unodeGlobal := rtax, rtax
	ivalGlobal := 0.0
	anchorsTaxsig := 1.0
	bandfactorMax := 1.0
	outgroup := newIntSet()
	lcaRootDistMin := intMax

	for !qgroup.Empty() && lnodeGlobal != root {
		indexAnchor := qgroup.Pop()
		qscore := qscores[indexAnchor]
		rnode := nodes[indexAnchor]

		// taxsig is always 0 at the source: the
		// signal-strength path is plumbed but currently constant.
		const taxsig = 0.0
		if taxsig < anchorsTaxsig {
			anchorsTaxsig = taxsig
		}

		bf := NewBandFactor(m.tax, rnode)
		lnode := rtax
		lscore := 0
		uscore := intMax
		var outgroupTmp []outgroupEntry

		for i := n - 1; i >= 0; i-- {
			cnode := nodes[i]
			var score, matches int
			switch {
			case i == indexAnchor:
				score, matches = 0, matchesArr[i]
			case qscores[i] == 0 && qscores[indexAnchor] == 0:
				score, matches = qscores[i], matchesArr[i]
			default:
				pass1Count++
				score = m.scorer(rrseqs[i], rrseqs[indexAnchor])
				matches = maxInt(len(rrseqs[i]), len(rrseqs[indexAnchor])) - score
				if qscores[indexAnchor] == 0 && matchesArr[i] > 0 {
					qscores[i], matchesArr[i] = score, matches
				}
			}
			bf.Push(float64(score), cnode)

			switch {
			case score == 0:
				qgroup.Remove(i)
			case score <= qscore:
				lnode = m.tax.GetLCA(lnode, cnode)
				lscore = maxInt(lscore, score)
			default:
				if score < uscore {
					uscore = score
				}
				outgroupTmp = append(outgroupTmp, outgroupEntry{index: i, score: score})
			}
		}

		bandfactor := bf.Compute()
		if bandfactor > bandfactorMax {
			bandfactorMax = bandfactor
		}
		qscoreEx := int(float64(qscore) * bandfactor)

		minUpperScore := intMax
		minUpperScoreSet := false
		var filtered []outgroupEntry
		for _, e := range outgroupTmp {
			if e.score > qscoreEx {
				if e.score > minUpperScore {
					continue
				}
				minUpperScore = e.score
				minUpperScoreSet = true
				filtered = append(filtered, e)
				continue
			}
			if minUpperScore > qscoreEx {
				minUpperScore = e.score
			} else if e.score > minUpperScore {
				minUpperScore = e.score
			}
			minUpperScoreSet = true
			filtered = append(filtered, e)
		}

		var unode *taxonomy.Node
		if minUpperScoreSet {
			unode = lnode
		}
		for _, e := range filtered {
			if e.score > minUpperScore {
				continue
			}
			cnode := nodes[e.index]
			unode = m.tax.GetLCA(unode, cnode)
			d := m.tax.GetLCA(cnode, rtax).RootPathLength()
			switch {
			case d < lcaRootDistMin:
				outgroup.Clear()
				outgroup.Add(e.index)
				lcaRootDistMin = d
			case d == lcaRootDistMin:
				outgroup.Add(e.index)
			}
		}

		var ival float64
		if unode == nil {
			unode = root
			uscore = -1
			ival = 1
		} else if unode != lnode && lscore < qscore {
			ival = (float64(qscore) - float64(lscore)) / (float64(uscore) - float64(lscore))
		}

		if ival > ivalGlobal {
			ivalGlobal = ival
		}
		lnodeGlobal = m.tax.GetLCA(lnodeGlobal, lnode)
		unodeGlobal = m.tax.GetLCA(unodeGlobal, unode)
	}
	m.metrics.ObservePass("pass1", pass1Count)
	if sink != nil {
		sink.Line("NUMALN pass1 %d", pass1Count)
		sink.Line("RANGE %d %d", qrstart, qrstop)
	}

	// Pass 2: outgroup stabilization.
	for !outgroup.Empty() {
		indexAnchor := outgroup.Pop()
		if unodeGlobal == lcaAllNodes {
			continue
		}
		if matchesArr[indexAnchor] == 0 {
			score := m.scorer(rrseqs[indexAnchor], qrseq)
			matches := maxInt(len(rrseqs[indexAnchor]), len(qrseq)) - score
			qscores[indexAnchor], matchesArr[indexAnchor] = score, matches
		}
		qscore := qscores[indexAnchor]
		qscoreEx := int(float64(qscore) * bandfactorMax)

		for i := 0; i < n; i++ {
			cnode := nodes[i]
			var score int
			switch {
			case i == indexAnchor:
				score = 0
			case m.tax.IsParentOf(unodeGlobal, cnode) || cnode == unodeGlobal:
				score = intMax
			default:
				pass2Count++
				score = m.scorer(rrseqs[i], rrseqs[indexAnchor])
				qscores[i] = score // triangle update: matches intentionally left stale.
			}
			if score == 0 {
				outgroup.Remove(i)
			}
			if score <= qscoreEx {
				unodeGlobal = m.tax.GetLCA(unodeGlobal, cnode)
			}
		}
	}
	m.metrics.ObservePass("pass2", pass2Count)
	if sink != nil {
		sink.Line("NUMALN pass2 %d", pass2Count)
	}

	if unodeGlobal == lnodeGlobal {
		ivalGlobal = 1
	}

	gcounter := pass0Count + pass1Count + pass2Count
	if sink != nil {
		sink.Line("STATS gcounter=%d normalised_rt=%.4f", gcounter, float64(gcounter)/float64(n))
	}

	return domain.PredictionRecord{
		QueryID:            q.ID,
		QueryLength:        q.Length,
		QueryStart:         qrstart,
		QueryStop:          qrstop,
		LowerNode:          lnodeGlobal,
		UpperNode:          unodeGlobal,
		BestReferenceTaxon: rtax,
		InterpolationValue: ivalGlobal,
		SignalStrength:     anchorsTaxsig,
		AnchorsSupport:     anchorsSupport,
	}, nil
}

func asNode(ref domain.TaxonRef) (*taxonomy.Node, error) {
	n, ok := ref.(*taxonomy.Node)
	if !ok {
		return nil, domain.InvalidTaxonomyError{Reason: "reference node is not a *taxonomy.Node"}
	}
	return n, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
