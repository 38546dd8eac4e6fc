package analysis

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/culture"
	"github.com/nvandessel/headwinds/internal/embeddings"
	"github.com/nvandessel/headwinds/internal/vocab"
)

func newStore(t *testing.T) *embeddings.Table {
	t.Helper()
	v, err := vocab.New([]string{"love", "hate", "hope"})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	tbl, err := embeddings.NewTable(2, map[string][]float64{
		"love": {3, 4},
		"hate": {1, 0},
		"hope": {0, 2},
	}, v)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func newAgent(t *testing.T, id int, store embeddings.Store, p culture.Profile) *agent.Agent {
	t.Helper()
	a, err := agent.New(id, store, p, agent.DefaultParams())
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	return a
}

func TestSummarize(t *testing.T) {
	store := newStore(t)
	neutral := newAgent(t, 0, store, culture.Neutral())
	// Amplifies love to (6, 8): strength 10.
	fan := newAgent(t, 1, store, culture.NewProfile(nil, []string{"love"}, 0.3, 2.0))

	got, err := Summarize([]*agent.Agent{neutral, fan}, store.Vocabulary())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d words, want 3", len(got))
	}

	love := got[0]
	if love.Word != "love" {
		t.Fatalf("strongest word = %q, want love", love.Word)
	}
	if love.Mean != 7.5 || love.Min != 5 || love.Max != 10 || love.Median != 7.5 {
		t.Errorf("love stats = %+v", love)
	}
	if math.Abs(love.StdDev-2.5) > 1e-9 {
		t.Errorf("love stddev = %g, want 2.5", love.StdDev)
	}

	// hope (2) sorts ahead of hate (1).
	if got[1].Word != "hope" || got[2].Word != "hate" {
		t.Errorf("order = %s, %s; want hope, hate", got[1].Word, got[2].Word)
	}
}

func TestSummarize_Empty(t *testing.T) {
	got, err := Summarize(nil, newStore(t).Vocabulary())
	if err != nil || got != nil {
		t.Errorf("Summarize(nil) = %v, %v; want nil, nil", got, err)
	}
}

func TestWordUsage(t *testing.T) {
	msgs := []agent.Message{
		{ID: 1, Content: []string{"love", "hope"}},
		{ID: 2, Content: []string{"hate", "love"}},
		{ID: 3, Content: []string{"love", "hate"}},
	}
	want := []WordCount{
		{Word: "love", Count: 3},
		{Word: "hate", Count: 2},
		{Word: "hope", Count: 1},
	}
	if diff := cmp.Diff(want, WordUsage(msgs)); diff != "" {
		t.Errorf("WordUsage mismatch (-want +got):\n%s", diff)
	}
}

func TestPostsPerStep(t *testing.T) {
	msgs := []agent.Message{
		{ID: 1, Step: 0},
		{ID: 2, Step: 0},
		{ID: 3, Step: 2},
		{ID: 4, Step: 9},
	}
	if diff := cmp.Diff([]int{2, 0, 1}, PostsPerStep(msgs, 3)); diff != "" {
		t.Errorf("PostsPerStep mismatch (-want +got):\n%s", diff)
	}
}

func TestDrift(t *testing.T) {
	store := newStore(t)
	a := newAgent(t, 0, store, culture.Neutral())

	before, err := Drift([]*agent.Agent{a}, store)
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	for _, d := range before {
		if math.Abs(d.Similarity-1) > 1e-9 {
			t.Errorf("fresh agent %q similarity = %g, want 1", d.Word, d.Similarity)
		}
	}

	// Flat reinforcement bends "hate" (1, 0) toward the diagonal.
	for i := 0; i < 50; i++ {
		a.UpdateEmbeddings([]string{"hate"})
	}
	after, err := Drift([]*agent.Agent{a}, store)
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	for _, d := range after {
		if d.Word == "hate" && d.Similarity >= 0.99 {
			t.Errorf("hate similarity = %g, expected drift below 0.99", d.Similarity)
		}
	}
}
