package socialgraph

import "math"

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// DampingFactor (d) is the probability of following an edge vs. teleporting.
	// Standard value: 0.85.
	DampingFactor float64

	// MaxIterations is the maximum number of power iteration steps. Default: 100.
	MaxIterations int

	// Tolerance is the convergence threshold. Default: 1e-6.
	Tolerance float64
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// PageRank scores each agent's reach in the follow graph. Rank flows from a
// follower to the agents it follows, so widely followed agents whose own
// followers are themselves followed score highest. Scores are normalized
// to [0, 1] by the maximum.
//
// Algorithm: Standard power iteration
//  1. Initialize all nodes with score = 1/N
//  2. For each iteration:
//     PR(v) = (1-d)/N + d * (sum(PR(u)/following(u)) for all followers u of v
//     + dangling/N), where dangling is the rank of agents following no one
//  3. Converge when max change < Tolerance
//  4. Normalize to [0, 1] range
func PageRank(g *Directed, config PageRankConfig) map[int]float64 {
	nodes := g.Nodes()
	n := len(nodes)
	scores := make(map[int]float64, n)
	if n == 0 {
		return scores
	}

	outDegree := make(map[int]int, n)
	for _, id := range nodes {
		outDegree[id] = len(g.following[id])
	}

	d := config.DampingFactor
	nf := float64(n)
	for _, id := range nodes {
		scores[id] = 1.0 / nf
	}

	for iter := 0; iter < config.MaxIterations; iter++ {
		dangling := 0.0
		for _, id := range nodes {
			if outDegree[id] == 0 {
				dangling += scores[id]
			}
		}

		newScores := make(map[int]float64, n)
		maxDelta := 0.0
		for _, v := range nodes {
			sum := 0.0
			for _, u := range g.FollowersOf(v) {
				sum += scores[u] / float64(outDegree[u])
			}

			newScore := (1.0-d)/nf + d*(sum+dangling/nf)
			newScores[v] = newScore

			if delta := math.Abs(newScore - scores[v]); delta > maxDelta {
				maxDelta = delta
			}
		}

		scores = newScores
		if maxDelta < config.Tolerance {
			break
		}
	}

	maxScore := 0.0
	for _, score := range scores {
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore > 0 {
		for id, score := range scores {
			scores[id] = score / maxScore
		}
	}
	return scores
}
