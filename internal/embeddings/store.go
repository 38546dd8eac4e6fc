// Package embeddings provides the read-only base word vectors every agent is
// initialized from.
package embeddings

import (
	"errors"
	"fmt"

	"github.com/nvandessel/headwinds/internal/vecmath"
	"github.com/nvandessel/headwinds/internal/vocab"
)

var (
	// ErrNoVocabulary is returned when none of the configured vocabulary
	// words has a vector. A simulation cannot be built from such a store.
	ErrNoVocabulary = errors.New("no configured vocabulary word has an embedding")

	// ErrDimension is returned when a vector does not match the store
	// dimension.
	ErrDimension = errors.New("embedding dimension mismatch")
)

// Store is the lookup surface agents consume.
type Store interface {
	// Lookup returns the base vector for word. Unknown words yield a zero
	// vector of length Dim(). The returned slice is shared and must not be
	// modified.
	Lookup(word string) []float64

	// Dim returns the vector dimension D.
	Dim() int

	// Size returns the number of words with a stored vector.
	Size() int

	// Vocabulary returns the words with a stored vector, in index order.
	Vocabulary() *vocab.Vocabulary
}

// Table is an in-memory Store. It is immutable after construction and safe
// for concurrent readers.
type Table struct {
	dim     int
	vocab   *vocab.Vocabulary
	vectors [][]float64 // indexed like vocab
}

// NewTable builds a Table from vectors restricted to the words of want.
// Keys are normalized like vocabulary words; vectors whose word is not in
// want are ignored. Returns ErrNoVocabulary if
// no word of want has a vector.
func NewTable(dim int, vectors map[string][]float64, want *vocab.Vocabulary) (*Table, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimension, dim)
	}

	vectors = normalizeKeys(vectors)
	available, err := want.Restrict(func(w string) bool {
		_, ok := vectors[w]
		return ok
	})
	if err != nil {
		if errors.Is(err, vocab.ErrEmpty) {
			return nil, ErrNoVocabulary
		}
		return nil, err
	}

	t := &Table{
		dim:     dim,
		vocab:   available,
		vectors: make([][]float64, available.Len()),
	}
	for i, w := range available.Words() {
		v := vectors[w]
		if len(v) != dim {
			return nil, fmt.Errorf("%w: word %q has %d components, want %d", ErrDimension, w, len(v), dim)
		}
		t.vectors[i] = vecmath.Clone(v)
	}
	return t, nil
}

// Lookup implements Store.
func (t *Table) Lookup(word string) []float64 {
	if i, ok := t.vocab.Index(word); ok {
		return t.vectors[i]
	}
	return vecmath.Zeros(t.dim)
}

// Dim implements Store.
func (t *Table) Dim() int { return t.dim }

// Size implements Store.
func (t *Table) Size() int { return t.vocab.Len() }

// Vocabulary implements Store.
func (t *Table) Vocabulary() *vocab.Vocabulary { return t.vocab }

// normalizeKeys rekeys vectors by normalized word. When several keys share
// a normalized form, the key already in normal form wins, otherwise the
// lexically smallest key.
func normalizeKeys(vectors map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(vectors))
	from := make(map[string]string, len(vectors))
	for raw, vec := range vectors {
		w := vocab.Normalize(raw)
		if w == "" {
			continue
		}
		if prev, ok := from[w]; ok {
			if prev == w || (raw != w && prev < raw) {
				continue
			}
		}
		out[w] = vec
		from[w] = raw
	}
	return out
}
