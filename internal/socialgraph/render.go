package socialgraph

import (
	"fmt"
	"strings"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// RenderDOT produces a Graphviz DOT representation of the follow graph.
// Edges point from follower to followee. When scores is non-nil, node
// fill intensity tracks the score (e.g. PageRank).
func RenderDOT(g *Directed, scores map[int]float64) string {
	var b strings.Builder
	b.WriteString("digraph headwinds {\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [arrowsize=0.5];\n\n")

	for _, id := range g.Nodes() {
		color := "lightblue"
		if s, ok := scores[id]; ok {
			color = fmt.Sprintf("0.58 %.3f 1.0", 0.1+0.9*s)
			fmt.Fprintf(&b, "  %d [fillcolor=%q, tooltip=\"rank=%.3f\"];\n", id, color, s)
			continue
		}
		fmt.Fprintf(&b, "  %d [fillcolor=%q];\n", id, color)
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %d -> %d;\n", e.Follower, e.Followee)
	}

	b.WriteString("}\n")
	return b.String()
}

// JSONNode is one node of the JSON graph form.
type JSONNode struct {
	ID        int      `json:"id"`
	Followers int      `json:"followers"`
	Following int      `json:"following"`
	Rank      *float64 `json:"rank,omitempty"`
}

// JSONGraph is the JSON graph form.
type JSONGraph struct {
	Nodes     []JSONNode `json:"nodes"`
	Edges     []Edge     `json:"edges"`
	NodeCount int        `json:"node_count"`
	EdgeCount int        `json:"edge_count"`
}

// RenderJSON produces a JSON-ready graph with per-node degree counts and,
// when scores is non-nil, ranks.
func RenderJSON(g *Directed, scores map[int]float64) JSONGraph {
	nodes := g.Nodes()
	out := JSONGraph{
		Nodes:     make([]JSONNode, 0, len(nodes)),
		Edges:     g.Edges(),
		NodeCount: len(nodes),
		EdgeCount: g.EdgeCount(),
	}
	for _, id := range nodes {
		n := JSONNode{
			ID:        id,
			Followers: len(g.followers[id]),
			Following: len(g.following[id]),
		}
		if s, ok := scores[id]; ok {
			n.Rank = &s
		}
		out.Nodes = append(out.Nodes, n)
	}
	return out
}
