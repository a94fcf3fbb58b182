// Package fs implements a seqstore.Fetcher backed by the local
// filesystem: one flat file per sequence identifier, grounded on the
// teacher's filesystem blob store (sanitized keys, one file per object),
// generalized here to serve byte ranges instead of whole blobs.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"taxoplace/internal/seqstore"
)

// Fetcher reads sequences from flat files under root, one file per
// identifier (root/<id>.seq).
type Fetcher struct {
	root string
}

// New returns a filesystem-backed fetcher rooted at path.
func New(root string) (*Fetcher, error) {
	if root == "" {
		root = "./seqdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create sequence root: %w", err)
	}
	return &Fetcher{root: root}, nil
}

func sanitizeID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("empty sequence id")
	}
	if strings.Contains(id, "..") || strings.HasPrefix(id, "/") {
		return "", fmt.Errorf("invalid sequence id %q", id)
	}
	return filepath.Clean(id), nil
}

func (f *Fetcher) path(id string) (string, error) {
	clean, err := sanitizeID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, clean+".seq"), nil
}

// Fetch implements seqstore.Fetcher by opening the per-identifier file
// and reading the requested byte range directly, rather than loading the
// whole sequence, so range fetches against large reference files stay
// cheap.
func (f *Fetcher) Fetch(id string, start, stop int) ([]byte, error) {
	path, err := f.path(id)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sequence %q: %w", id, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("sequence %q: %w", id, err)
	}
	if start < 1 || int64(stop) > info.Size() {
		return nil, fmt.Errorf("sequence %q: range [%d,%d] out of bounds (length %d)", id, start, stop, info.Size())
	}
	length := stop - start + 1
	buf := make([]byte, length)
	if _, err := file.ReadAt(buf, int64(start-1)); err != nil {
		return nil, fmt.Errorf("sequence %q: read range [%d,%d]: %w", id, start, stop, err)
	}
	return buf, nil
}

// Put writes seq to id's file, creating or overwriting it.
func (f *Fetcher) Put(id string, seq []byte) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, seq, 0o644)
}

// Store returns a domain.Store backed by this fetcher.
func (f *Fetcher) Store() *seqstore.Store { return seqstore.New(f) }

var _ seqstore.Fetcher = (*Fetcher)(nil)
