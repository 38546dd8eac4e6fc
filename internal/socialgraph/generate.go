package socialgraph

import (
	"fmt"
	"math/rand/v2"
)

// GenerateConfig controls random graph construction.
type GenerateConfig struct {
	// MinFollowing is the fewest agents each agent follows. Default: 1.
	MinFollowing int

	// MaxFollowing is the most agents each agent follows; 0 means n-1.
	MaxFollowing int
}

// DefaultGenerateConfig returns the default generator settings.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{MinFollowing: 1}
}

// Validate checks the following bounds.
func (c GenerateConfig) Validate() error {
	if c.MinFollowing < 0 {
		return fmt.Errorf("min following must be >= 0, got %d", c.MinFollowing)
	}
	if c.MaxFollowing < 0 || (c.MaxFollowing > 0 && c.MaxFollowing < c.MinFollowing) {
		return fmt.Errorf("max following %d is invalid for min following %d", c.MaxFollowing, c.MinFollowing)
	}
	return nil
}

// Generate builds a graph over agents 0..n-1 in which every agent follows a
// uniformly drawn number of distinct other agents, chosen uniformly without
// replacement. Bounds are clamped to n-1. The result depends only on n, cfg
// and seed.
func Generate(n int, cfg GenerateConfig, seed uint64) (*Directed, error) {
	if n < 0 {
		return nil, fmt.Errorf("agent count must be >= 0, got %d", n)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := WithNodes(n)
	if n < 2 {
		return g, nil
	}

	hi := n - 1
	if cfg.MaxFollowing > 0 {
		hi = min(cfg.MaxFollowing, n-1)
	}
	lo := min(cfg.MinFollowing, hi)

	rng := rand.New(rand.NewPCG(seed, 0x6772_6170))
	others := make([]int, 0, n-1)
	for follower := 0; follower < n; follower++ {
		k := lo + rng.IntN(hi-lo+1)

		others = others[:0]
		for id := 0; id < n; id++ {
			if id != follower {
				others = append(others, id)
			}
		}
		rng.Shuffle(len(others), func(i, j int) {
			others[i], others[j] = others[j], others[i]
		})
		for _, followee := range others[:k] {
			if err := g.AddEdge(follower, followee); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
