// Package vocab holds the process-wide vocabulary shared by the embedding
// store and every agent.
//
// A Vocabulary is immutable once built: it is passed by reference into
// constructors instead of living in package-level state, and each word keeps
// the same integer index for the lifetime of a run.
package vocab

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrEmpty is returned when a vocabulary would contain no words.
var ErrEmpty = errors.New("vocabulary is empty")

// Normalize canonicalizes a word so configured vocabulary entries match
// embedding-file tokens: surrounding space is trimmed, the text is put in
// NFC form and case-folded.
func Normalize(word string) string {
	w := strings.TrimSpace(word)
	if w == "" {
		return ""
	}
	// A Caser carries state, so each call gets its own.
	return cases.Fold().String(norm.NFC.String(w))
}

// Vocabulary is an ordered set of distinct words with a stable word→index
// mapping.
type Vocabulary struct {
	words []string
	index map[string]int
}

// New builds a vocabulary from words. Each word is normalized; blanks and
// repeats are dropped, keeping the first occurrence's position.
func New(words []string) (*Vocabulary, error) {
	v := &Vocabulary{
		words: make([]string, 0, len(words)),
		index: make(map[string]int, len(words)),
	}
	for _, raw := range words {
		w := Normalize(raw)
		if w == "" {
			continue
		}
		if _, dup := v.index[w]; dup {
			continue
		}
		v.index[w] = len(v.words)
		v.words = append(v.words, w)
	}
	if len(v.words) == 0 {
		return nil, ErrEmpty
	}
	return v, nil
}

// Len returns the number of words.
func (v *Vocabulary) Len() int { return len(v.words) }

// Words returns a copy of the words in index order.
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Word returns the word at index i. It panics when i is out of range.
func (v *Vocabulary) Word(i int) string { return v.words[i] }

// Index returns the stable index of word. word is matched after
// normalization, so "Love" finds "love".
func (v *Vocabulary) Index(word string) (int, bool) {
	if i, ok := v.index[word]; ok {
		return i, true
	}
	i, ok := v.index[Normalize(word)]
	return i, ok
}

// Contains reports whether word, once normalized, is in the vocabulary.
func (v *Vocabulary) Contains(word string) bool {
	_, ok := v.Index(word)
	return ok
}

// Canonical returns the vocabulary's form of word.
func (v *Vocabulary) Canonical(word string) (string, bool) {
	i, ok := v.Index(word)
	if !ok {
		return "", false
	}
	return v.words[i], true
}

// Restrict returns a new vocabulary holding only the words for which keep
// returns true, in their original relative order. Returns ErrEmpty when no
// word survives.
func (v *Vocabulary) Restrict(keep func(string) bool) (*Vocabulary, error) {
	kept := make([]string, 0, len(v.words))
	for _, w := range v.words {
		if keep(w) {
			kept = append(kept, w)
		}
	}
	return New(kept)
}
