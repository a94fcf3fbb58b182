// Package seqstore implements the sequence-storage external interface:
// getSequence / getSequenceReverseComplement, 1-based inclusive
// coordinates. Concrete byte-range fetching is backend-specific (memory,
// fs, s3); reverse-complement is computed once here so backends only
// need to serve forward ranges.
package seqstore

import (
	"fmt"

	"taxoplace/pkg/domain"
)

// Fetcher serves a forward, 1-based inclusive byte range for a stored
// sequence. Implementations fail on unknown id or out-of-range coordinates.
type Fetcher interface {
	Fetch(id string, start, stop int) ([]byte, error)
}

// Store adapts any Fetcher into the full domain.Store contract.
type Store struct {
	fetcher Fetcher
}

// New wraps a Fetcher as a domain.Store.
func New(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher}
}

// GetSequence returns the forward sequence in [start, stop].
func (s *Store) GetSequence(id string, start, stop int) (domain.SequenceRecord, error) {
	if stop < start {
		return domain.SequenceRecord{}, fmt.Errorf("sequence %s: stop %d < start %d", id, stop, start)
	}
	b, err := s.fetcher.Fetch(id, start, stop)
	if err != nil {
		return domain.SequenceRecord{}, err
	}
	return domain.SequenceRecord{ID: id, Sequence: b}, nil
}

// GetSequenceReverseComplement returns the reverse complement of the
// forward sequence in [start, stop] (stop >= start, same contract as
// GetSequence).
func (s *Store) GetSequenceReverseComplement(id string, start, stop int) (domain.SequenceRecord, error) {
	rec, err := s.GetSequence(id, start, stop)
	if err != nil {
		return domain.SequenceRecord{}, err
	}
	rec.Sequence = ReverseComplement(rec.Sequence)
	return rec, nil
}

var complement = map[byte]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
	'a': 't', 't': 'a', 'c': 'g', 'g': 'c',
	'U': 'A', 'u': 'a',
	'N': 'N', 'n': 'n',
}

// ReverseComplement returns the reverse complement of seq. Bytes outside
// the known nucleotide alphabet pass through unchanged, reversed.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, c := range seq {
		rc, ok := complement[c]
		if !ok {
			rc = c
		}
		out[len(seq)-1-i] = rc
	}
	return out
}

var _ domain.Store = (*Store)(nil)
