package socialgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDirected_FollowersAndFollowing(t *testing.T) {
	g := WithNodes(4)
	edges := [][2]int{{0, 1}, {2, 1}, {3, 1}, {1, 0}, {2, 1}}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", e[0], e[1], err)
		}
	}

	if diff := cmp.Diff([]int{0, 2, 3}, g.FollowersOf(1)); diff != "" {
		t.Errorf("FollowersOf(1) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, g.FollowersOf(0)); diff != "" {
		t.Errorf("FollowersOf(0) mismatch (-want +got):\n%s", diff)
	}
	if got := g.FollowersOf(2); len(got) != 0 {
		t.Errorf("FollowersOf(2) = %v, want none", got)
	}
	if diff := cmp.Diff([]int{1}, g.Following(2)); diff != "" {
		t.Errorf("Following(2) mismatch (-want +got):\n%s", diff)
	}
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4 (duplicate ignored)", g.EdgeCount())
	}
	if !g.HasEdge(0, 1) || g.HasEdge(1, 2) {
		t.Error("HasEdge reports wrong direction")
	}
}

func TestDirected_RejectsSelfLoop(t *testing.T) {
	g := NewDirected()
	if err := g.AddEdge(3, 3); err == nil {
		t.Error("AddEdge(3, 3) error = nil, want error")
	}
}

func TestDirected_NodesSortedAndImplicit(t *testing.T) {
	g := NewDirected()
	g.AddNode(5)
	_ = g.AddEdge(9, 2)
	g.AddNode(5)

	if diff := cmp.Diff([]int{2, 5, 9}, g.Nodes()); diff != "" {
		t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", g.NodeCount())
	}
}

func TestDirected_Edges(t *testing.T) {
	g := NewDirected()
	_ = g.AddEdge(2, 0)
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(0, 1)

	want := []Edge{{0, 1}, {0, 2}, {2, 0}}
	if diff := cmp.Diff(want, g.Edges()); diff != "" {
		t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate(t *testing.T) {
	const n = 30
	g, err := Generate(n, DefaultGenerateConfig(), 7)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if g.NodeCount() != n {
		t.Fatalf("NodeCount() = %d, want %d", g.NodeCount(), n)
	}
	for _, id := range g.Nodes() {
		k := len(g.Following(id))
		if k < 1 || k > n-1 {
			t.Errorf("agent %d follows %d agents, want [1, %d]", id, k, n-1)
		}
		if g.HasEdge(id, id) {
			t.Errorf("agent %d follows itself", id)
		}
	}

	again, _ := Generate(n, DefaultGenerateConfig(), 7)
	if diff := cmp.Diff(g.Edges(), again.Edges()); diff != "" {
		t.Errorf("same seed produced different graphs (-first +second):\n%s", diff)
	}
}

func TestGenerate_Bounds(t *testing.T) {
	g, err := Generate(10, GenerateConfig{MinFollowing: 2, MaxFollowing: 3}, 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, id := range g.Nodes() {
		if k := len(g.Following(id)); k < 2 || k > 3 {
			t.Errorf("agent %d follows %d, want [2, 3]", id, k)
		}
	}

	// Bounds larger than the population are clamped.
	g, err = Generate(3, GenerateConfig{MinFollowing: 5, MaxFollowing: 9}, 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if g.EdgeCount() != 6 {
		t.Errorf("EdgeCount() = %d, want complete graph of 6", g.EdgeCount())
	}
}

func TestGenerate_Degenerate(t *testing.T) {
	for _, n := range []int{0, 1} {
		g, err := Generate(n, DefaultGenerateConfig(), 1)
		if err != nil {
			t.Fatalf("Generate(%d) error = %v", n, err)
		}
		if g.NodeCount() != n || g.EdgeCount() != 0 {
			t.Errorf("Generate(%d): %d nodes, %d edges", n, g.NodeCount(), g.EdgeCount())
		}
	}

	if _, err := Generate(-1, DefaultGenerateConfig(), 1); err == nil {
		t.Error("Generate(-1) error = nil, want error")
	}
	if _, err := Generate(5, GenerateConfig{MinFollowing: 3, MaxFollowing: 2}, 1); err == nil {
		t.Error("Generate with max < min error = nil, want error")
	}
}
