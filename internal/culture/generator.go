package culture

import (
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/headwinds/internal/vocab"
)

// GeneratorConfig controls random profile generation.
type GeneratorConfig struct {
	// MinTaboo and MaxTaboo bound the taboo set size (inclusive). Default: 5..10.
	MinTaboo int
	MaxTaboo int

	// MinVirtue and MaxVirtue bound the virtue set size (inclusive). Default: 5..10.
	MinVirtue int
	MaxVirtue int

	// Suppression is the taboo scale factor. Default: 0.3.
	Suppression float64

	// Amplification is the virtue scale factor. Default: 2.0.
	Amplification float64
}

// DefaultGeneratorConfig returns the default generator settings.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinTaboo:      5,
		MaxTaboo:      10,
		MinVirtue:     5,
		MaxVirtue:     10,
		Suppression:   DefaultSuppression,
		Amplification: DefaultAmplification,
	}
}

// Validate checks the size bounds and factors.
func (c GeneratorConfig) Validate() error {
	if c.MinTaboo < 0 || c.MaxTaboo < c.MinTaboo {
		return fmt.Errorf("taboo size range [%d, %d] is invalid", c.MinTaboo, c.MaxTaboo)
	}
	if c.MinVirtue < 0 || c.MaxVirtue < c.MinVirtue {
		return fmt.Errorf("virtue size range [%d, %d] is invalid", c.MinVirtue, c.MaxVirtue)
	}
	return Profile{Suppression: c.Suppression, Amplification: c.Amplification}.Validate()
}

// Generator draws random profiles from a vocabulary. It is not safe for
// concurrent use.
type Generator struct {
	cfg   GeneratorConfig
	words []string
	rng   *rand.Rand
}

// NewGenerator returns a Generator over v seeded with seed.
func NewGenerator(v *vocab.Vocabulary, cfg GeneratorConfig, seed uint64) *Generator {
	return &Generator{
		cfg:   cfg,
		words: v.Words(),
		rng:   rand.New(rand.NewPCG(seed, 0x6375_6c74)),
	}
}

// Next draws one profile. Taboo and virtue sets are sampled independently,
// so they may overlap. Set sizes are capped at the vocabulary size.
func (g *Generator) Next() Profile {
	taboo := g.sample(g.between(g.cfg.MinTaboo, g.cfg.MaxTaboo))
	virtue := g.sample(g.between(g.cfg.MinVirtue, g.cfg.MaxVirtue))
	return NewProfile(taboo, virtue, g.cfg.Suppression, g.cfg.Amplification)
}

// Profiles draws n profiles in order.
func (g *Generator) Profiles(n int) []Profile {
	out := make([]Profile, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

// sample returns k distinct words chosen uniformly without replacement.
func (g *Generator) sample(k int) []string {
	k = min(k, len(g.words))
	perm := g.rng.Perm(len(g.words))
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = g.words[perm[i]]
	}
	return out
}
