package embeddings

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/headwinds/internal/vocab"
)

func mustVocab(t *testing.T, words ...string) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New(words)
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	return v
}

func TestNewTable_RestrictsToAvailableWords(t *testing.T) {
	want := mustVocab(t, "love", "hate", "peace")
	table, err := NewTable(2, map[string][]float64{
		"love":  {1, 0},
		"peace": {0.5, 0.5},
		"war":   {9, 9},
	}, want)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	if table.Size() != 2 {
		t.Errorf("Size() = %d, want 2", table.Size())
	}
	if diff := cmp.Diff([]string{"love", "peace"}, table.Vocabulary().Words()); diff != "" {
		t.Errorf("Vocabulary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 0}, table.Lookup("love")); diff != "" {
		t.Errorf("Lookup(love) mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTable_NormalizesKeys(t *testing.T) {
	tests := []struct {
		name    string
		vectors map[string][]float64
		want    []float64
	}{
		{"title case key", map[string][]float64{"Love": {1, 0}}, []float64{1, 0}},
		{"normal form wins", map[string][]float64{"LOVE": {9, 9}, "love": {1, 0}, "Love": {8, 8}}, []float64{1, 0}},
		{"smallest key wins", map[string][]float64{"lovE": {2, 2}, "LOVE": {1, 0}}, []float64{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable(2, tt.vectors, mustVocab(t, "love"))
			if err != nil {
				t.Fatalf("NewTable() error = %v", err)
			}
			for _, w := range []string{"love", "Love", "LOVE"} {
				if diff := cmp.Diff(tt.want, table.Lookup(w)); diff != "" {
					t.Errorf("Lookup(%q) mismatch (-want +got):\n%s", w, diff)
				}
			}
			if !table.Vocabulary().Contains("Love") {
				t.Error("Contains(Love) = false, want true")
			}
		})
	}
}

func TestLookup_UnknownIsZero(t *testing.T) {
	table, err := NewTable(3, map[string][]float64{"love": {1, 2, 3}}, mustVocab(t, "love"))
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	for _, w := range []string{"hate", "", "war"} {
		got := table.Lookup(w)
		if diff := cmp.Diff([]float64{0, 0, 0}, got); diff != "" {
			t.Errorf("Lookup(%q) mismatch (-want +got):\n%s", w, diff)
		}
	}
}

func TestNewTable_CopiesInput(t *testing.T) {
	src := []float64{1, 1}
	table, err := NewTable(2, map[string][]float64{"love": src}, mustVocab(t, "love"))
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	src[0] = 42
	if got := table.Lookup("love")[0]; got != 1 {
		t.Errorf("table aliases caller's vector: got %v", got)
	}
}

func TestNewTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		vectors map[string][]float64
		wantErr error
	}{
		{"no configured word present", 2, map[string][]float64{"war": {1, 1}}, ErrNoVocabulary},
		{"wrong dimension", 2, map[string][]float64{"love": {1, 1, 1}}, ErrDimension},
		{"non-positive dimension", 0, map[string][]float64{"love": {}}, ErrDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.dim, tt.vectors, mustVocab(t, "love"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
