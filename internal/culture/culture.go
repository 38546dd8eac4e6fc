// Package culture implements the per-agent cultural bias ("headwinds")
// applied to base embeddings when an agent is built.
//
// A Profile is baked into the agent's table once at construction; it is
// never reapplied during the simulation.
package culture

import (
	"fmt"
	"math"

	"github.com/nvandessel/headwinds/internal/vecmath"
	"github.com/nvandessel/headwinds/internal/vocab"
)

// Default factors for generated profiles.
const (
	DefaultSuppression   = 0.3
	DefaultAmplification = 2.0
)

// Profile is one agent's bias: taboo words are scaled down by Suppression,
// virtue words scaled up by Amplification. A word may be in both sets.
type Profile struct {
	Taboo         map[string]struct{}
	Virtue        map[string]struct{}
	Suppression   float64
	Amplification float64
}

// NewProfile builds a Profile from word lists. Words are normalized so they
// match vocabulary entries.
func NewProfile(taboo, virtue []string, suppression, amplification float64) Profile {
	return Profile{
		Taboo:         toSet(taboo),
		Virtue:        toSet(virtue),
		Suppression:   suppression,
		Amplification: amplification,
	}
}

// Neutral returns a Profile that leaves every vector unchanged.
func Neutral() Profile {
	return Profile{Suppression: 1, Amplification: 1}
}

// Validate checks suppression is in (0, 1] and amplification is a finite
// value of at least 1.
func (p Profile) Validate() error {
	if math.IsNaN(p.Suppression) || p.Suppression <= 0 || p.Suppression > 1 {
		return fmt.Errorf("suppression factor must be in (0, 1], got %g", p.Suppression)
	}
	if math.IsNaN(p.Amplification) || math.IsInf(p.Amplification, 0) || p.Amplification < 1 {
		return fmt.Errorf("amplification factor must be >= 1, got %g", p.Amplification)
	}
	return nil
}

// IsTaboo reports whether word is suppressed by p.
func (p Profile) IsTaboo(word string) bool {
	return inSet(p.Taboo, word)
}

// IsVirtue reports whether word is amplified by p.
func (p Profile) IsVirtue(word string) bool {
	return inSet(p.Virtue, word)
}

func inSet(set map[string]struct{}, word string) bool {
	if len(set) == 0 {
		return false
	}
	if _, ok := set[word]; ok {
		return true
	}
	_, ok := set[vocab.Normalize(word)]
	return ok
}

// Apply returns the biased copy of base for word. The input is never
// modified. A word in both sets is suppressed first, then amplified.
func Apply(p Profile, word string, base []float64) []float64 {
	out := vecmath.Clone(base)
	if p.IsTaboo(word) {
		vecmath.Scale(out, p.Suppression)
	}
	if p.IsVirtue(word) {
		vecmath.Scale(out, p.Amplification)
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	if len(words) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = vocab.Normalize(w); w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}
