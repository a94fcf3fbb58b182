// Package memory implements an in-process seqstore.Fetcher for tests and
// small corpora: a mutex-guarded map, cloned on write so callers can't
// mutate shared state through their own slice.
package memory

import (
	"fmt"
	"sync"

	"taxoplace/internal/seqstore"
)

// Fetcher holds whole sequences keyed by identifier, in process memory.
type Fetcher struct {
	mu   sync.RWMutex
	seqs map[string][]byte
}

// New returns an empty in-memory fetcher.
func New() *Fetcher {
	return &Fetcher{seqs: make(map[string][]byte)}
}

// Put stores seq under id, overwriting any existing entry.
func (f *Fetcher) Put(id string, seq []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(seq))
	copy(stored, seq)
	f.seqs[id] = stored
}

// Fetch implements seqstore.Fetcher.
func (f *Fetcher) Fetch(id string, start, stop int) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	seq, ok := f.seqs[id]
	if !ok {
		return nil, fmt.Errorf("sequence %q not found", id)
	}
	if start < 1 || stop > len(seq) {
		return nil, fmt.Errorf("sequence %q: range [%d,%d] out of bounds (length %d)", id, start, stop, len(seq))
	}
	out := make([]byte, stop-start+1)
	copy(out, seq[start-1:stop])
	return out, nil
}

// Store returns a domain.Store backed by this fetcher.
func (f *Fetcher) Store() *seqstore.Store { return seqstore.New(f) }

var _ seqstore.Fetcher = (*Fetcher)(nil)
