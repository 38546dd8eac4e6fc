// Package agent implements a single simulated agent: a private, mutable
// embedding table derived from the shared base vectors, a timeline of
// received messages, and the send/receive/update rules that evolve the
// table over time.
//
// An Agent is not safe for concurrent use. The simulation driver guarantees
// that each agent is touched by at most one goroutine at a time.
package agent

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/nvandessel/headwinds/internal/culture"
	"github.com/nvandessel/headwinds/internal/embeddings"
	"github.com/nvandessel/headwinds/internal/vecmath"
	"github.com/nvandessel/headwinds/internal/vocab"
)

const (
	// RecentWindow is how many of the latest timeline entries feed message
	// composition.
	RecentWindow = 10

	// WordsPerMessage is the number of content words in a composed message.
	WordsPerMessage = 5
)

// Params holds the per-agent dynamics.
type Params struct {
	// DecayRate shrinks the whole table by (1 - DecayRate) on every update.
	// Range: [0, 1). Default: 0.01.
	DecayRate float64

	// ReinforcementRate is added to every component of each used word's
	// vector on every update. Not normalized or clamped. Default: 0.05.
	ReinforcementRate float64

	// TimelineRetention caps the stored timeline; 0 keeps every message.
	// When set it must be at least RecentWindow.
	TimelineRetention int

	// Seed feeds the agent's private random source, combined with its ID.
	Seed uint64
}

// DefaultParams returns the default dynamics.
func DefaultParams() Params {
	return Params{
		DecayRate:         0.01,
		ReinforcementRate: 0.05,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.DecayRate < 0 || p.DecayRate >= 1 || math.IsNaN(p.DecayRate) {
		return fmt.Errorf("decay rate must be in [0, 1), got %g", p.DecayRate)
	}
	if p.ReinforcementRate < 0 || math.IsNaN(p.ReinforcementRate) {
		return fmt.Errorf("reinforcement rate must be >= 0, got %g", p.ReinforcementRate)
	}
	if p.TimelineRetention < 0 || (p.TimelineRetention > 0 && p.TimelineRetention < RecentWindow) {
		return fmt.Errorf("timeline retention must be 0 or >= %d, got %d", RecentWindow, p.TimelineRetention)
	}
	return nil
}

// Agent is one member of the simulated population.
type Agent struct {
	id      int
	vocab   *vocab.Vocabulary
	dim     int
	table   []float64 // row-major, vocab.Len() rows of dim
	profile culture.Profile
	params  Params

	timeline *Timeline
	used     map[string]struct{}
	rng      *rand.Rand
}

// New builds an agent whose table holds one row per word of the store's
// vocabulary, each the cultural transform of the base vector. The transform
// is applied here and never again.
func New(id int, store embeddings.Store, profile culture.Profile, params Params) (*Agent, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}

	v := store.Vocabulary()
	dim := store.Dim()
	a := &Agent{
		id:       id,
		vocab:    v,
		dim:      dim,
		table:    make([]float64, v.Len()*dim),
		profile:  profile,
		params:   params,
		timeline: NewTimeline(params.TimelineRetention),
		used:     make(map[string]struct{}),
		rng:      rand.New(rand.NewPCG(params.Seed, uint64(id))),
	}
	for i, w := range v.Words() {
		copy(a.row(i), culture.Apply(profile, w, store.Lookup(w)))
	}
	return a, nil
}

// ID returns the agent identifier.
func (a *Agent) ID() int { return a.id }

// Dim returns the embedding dimension.
func (a *Agent) Dim() int { return a.dim }

// Rows returns the number of table rows, one per vocabulary word.
func (a *Agent) Rows() int { return len(a.table) / max(a.dim, 1) }

// Vocabulary returns the agent's vocabulary.
func (a *Agent) Vocabulary() *vocab.Vocabulary { return a.vocab }

// Profile returns the cultural profile the table was built with.
func (a *Agent) Profile() culture.Profile { return a.profile }

// Params returns the agent's dynamics.
func (a *Agent) Params() Params { return a.params }

func (a *Agent) row(i int) []float64 {
	return a.table[i*a.dim : (i+1)*a.dim : (i+1)*a.dim]
}

// Embedding returns a copy of the agent's current vector for word.
func (a *Agent) Embedding(word string) ([]float64, bool) {
	i, ok := a.vocab.Index(word)
	if !ok {
		return nil, false
	}
	return vecmath.Clone(a.row(i)), true
}

// EmbeddingStrength returns the Euclidean norm of the agent's vector for
// word, or 0 if the word is unknown.
func (a *Agent) EmbeddingStrength(word string) float64 {
	i, ok := a.vocab.Index(word)
	if !ok {
		return 0
	}
	return vecmath.Norm(a.row(i))
}

// Send composes a message from the agent's recent timeline. It reads the
// table but does not modify it. The returned message has Step 0; the
// driver stamps the step before publishing.
func (a *Agent) Send(messageID int64) Message {
	words := a.composeWords()

	vec := vecmath.Zeros(a.dim)
	for _, w := range words {
		if i, ok := a.vocab.Index(w); ok {
			vecmath.AddInto(vec, a.row(i))
		}
	}

	return Message{
		ID:      messageID,
		Sender:  a.id,
		Content: words,
		Vector:  vec,
	}
}

// composeWords picks the content of the next message: the most frequent
// known words over the recent window, or a uniform random sample when the
// window holds none. Ties keep first-appearance order within the window,
// oldest message first.
func (a *Agent) composeWords() []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range a.timeline.Recent(RecentWindow) {
		for _, raw := range m.Content {
			w, ok := a.vocab.Canonical(raw)
			if !ok {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	if len(order) == 0 {
		return a.randomWords(WordsPerMessage)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > WordsPerMessage {
		order = order[:WordsPerMessage]
	}
	return order
}

// randomWords samples min(k, V) distinct vocabulary words.
func (a *Agent) randomWords(k int) []string {
	n := a.vocab.Len()
	k = min(k, n)
	perm := a.rng.Perm(n)
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = a.vocab.Word(perm[i])
	}
	return out
}

// Receive appends msgs to the timeline in the given order, then updates the
// table once per message.
func (a *Agent) Receive(msgs ...Message) {
	a.timeline.Append(msgs...)
	for _, m := range msgs {
		a.UpdateEmbeddings(m.Content)
	}
}

// UpdateEmbeddings decays the whole table, then adds the reinforcement rate
// to every component of each known word in used. Decay happens even when
// used is empty. A word repeated within one call is reinforced once; unknown
// words are skipped. Every word in used is recorded as used.
func (a *Agent) UpdateEmbeddings(used []string) {
	vecmath.Scale(a.table, 1-a.params.DecayRate)

	seen := make(map[int]struct{}, len(used))
	for _, w := range used {
		i, ok := a.vocab.Index(w)
		if !ok {
			if w = vocab.Normalize(w); w != "" {
				a.used[w] = struct{}{}
			}
			continue
		}
		a.used[a.vocab.Word(i)] = struct{}{}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		vecmath.AddScalar(a.row(i), a.params.ReinforcementRate)
	}
}

// UsedWords returns every word seen by UpdateEmbeddings, sorted.
func (a *Agent) UsedWords() []string {
	out := make([]string, 0, len(a.used))
	for w := range a.used {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Timeline returns a copy of the retained received messages, oldest first.
func (a *Agent) Timeline() []Message { return a.timeline.All() }

// TimelineLen returns the number of retained received messages.
func (a *Agent) TimelineLen() int { return a.timeline.Len() }

// ReceivedCount returns the number of messages ever received.
func (a *Agent) ReceivedCount() int { return a.timeline.Total() }
