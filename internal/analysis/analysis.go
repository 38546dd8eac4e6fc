// Package analysis summarizes a finished simulation: how strong each word
// ended up across the population, how often words were posted, and how far
// the agents' vectors drifted from the base embeddings.
package analysis

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/embeddings"
	"github.com/nvandessel/headwinds/internal/vecmath"
	"github.com/nvandessel/headwinds/internal/vocab"
)

// WordStrength describes the distribution of one word's embedding strength
// across agents.
type WordStrength struct {
	Word   string  `json:"word"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes per-word strength statistics over agents, sorted by
// mean strength descending, then by word. It returns nil for an empty
// population.
func Summarize(agents []*agent.Agent, v *vocab.Vocabulary) ([]WordStrength, error) {
	if len(agents) == 0 {
		return nil, nil
	}

	out := make([]WordStrength, 0, v.Len())
	samples := make([]float64, len(agents))
	for _, w := range v.Words() {
		for i, a := range agents {
			samples[i] = a.EmbeddingStrength(w)
		}
		ws, err := describe(w, samples)
		if err != nil {
			return nil, fmt.Errorf("summarize %q: %w", w, err)
		}
		out = append(out, ws)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Word < out[j].Word
	})
	return out, nil
}

func describe(word string, samples []float64) (WordStrength, error) {
	data := stats.Float64Data(samples)
	ws := WordStrength{Word: word}
	var err error
	if ws.Mean, err = data.Mean(); err != nil {
		return ws, err
	}
	if ws.Median, err = data.Median(); err != nil {
		return ws, err
	}
	if ws.StdDev, err = data.StandardDeviation(); err != nil {
		return ws, err
	}
	if ws.Min, err = data.Min(); err != nil {
		return ws, err
	}
	if ws.Max, err = data.Max(); err != nil {
		return ws, err
	}
	return ws, nil
}

// WordCount is a word with its number of appearances in posted content.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordUsage counts content words across msgs, most used first, ties by word.
func WordUsage(msgs []agent.Message) []WordCount {
	counts := make(map[string]int)
	for _, m := range msgs {
		for _, w := range m.Content {
			counts[w]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// PostsPerStep returns the number of messages posted in each of steps steps.
// Messages with an out-of-range step are ignored.
func PostsPerStep(msgs []agent.Message, steps int) []int {
	out := make([]int, max(steps, 0))
	for _, m := range msgs {
		if m.Step >= 0 && m.Step < len(out) {
			out[m.Step]++
		}
	}
	return out
}

// WordDrift is the mean cosine similarity between the agents' current vector
// for a word and the shared base vector.
type WordDrift struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// Drift reports, for each vocabulary word, how closely the population's
// vectors still point the way the base vector does. Lower similarity means
// more drift. Results follow vocabulary order.
func Drift(agents []*agent.Agent, store embeddings.Store) ([]WordDrift, error) {
	if len(agents) == 0 {
		return nil, nil
	}

	v := store.Vocabulary()
	out := make([]WordDrift, 0, v.Len())
	sims := make([]float64, len(agents))
	for _, w := range v.Words() {
		base := store.Lookup(w)
		for i, a := range agents {
			cur, _ := a.Embedding(w)
			sims[i] = vecmath.CosineSimilarity(cur, base)
		}
		mean, err := stats.Mean(sims)
		if err != nil {
			return nil, fmt.Errorf("drift %q: %w", w, err)
		}
		out = append(out, WordDrift{Word: w, Similarity: mean})
	}
	return out, nil
}
