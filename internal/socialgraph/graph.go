// Package socialgraph models who follows whom.
//
// An edge A→B means "A follows B": A receives B's broadcasts. Delivery for a
// sender S therefore targets FollowersOf(S), the nodes with an edge into S.
package socialgraph

import (
	"fmt"
	"sort"
)

// Graph is the read-only topology the simulation driver consumes.
type Graph interface {
	// Nodes returns every agent identifier in ascending order.
	Nodes() []int

	// FollowersOf returns the nodes with an edge into id, in ascending order.
	FollowersOf(id int) []int
}

// Directed is an adjacency-set Graph. Build it with AddNode/AddEdge before
// the simulation starts; it is safe for concurrent readers once built.
type Directed struct {
	nodes     map[int]struct{}
	following map[int]map[int]struct{} // follower -> followees
	followers map[int]map[int]struct{} // followee -> followers
	edges     int
}

// NewDirected returns an empty graph.
func NewDirected() *Directed {
	return &Directed{
		nodes:     make(map[int]struct{}),
		following: make(map[int]map[int]struct{}),
		followers: make(map[int]map[int]struct{}),
	}
}

// WithNodes returns a graph holding nodes 0..n-1 and no edges.
func WithNodes(n int) *Directed {
	g := NewDirected()
	for i := 0; i < n; i++ {
		g.AddNode(i)
	}
	return g
}

// AddNode adds id. Adding an existing node is a no-op.
func (g *Directed) AddNode(id int) {
	g.nodes[id] = struct{}{}
}

// AddEdge records that follower follows followee, adding either node if
// missing. Self-loops are rejected; duplicate edges are ignored.
func (g *Directed) AddEdge(follower, followee int) error {
	if follower == followee {
		return fmt.Errorf("agent %d cannot follow itself", follower)
	}
	g.AddNode(follower)
	g.AddNode(followee)

	out := g.following[follower]
	if out == nil {
		out = make(map[int]struct{})
		g.following[follower] = out
	}
	if _, dup := out[followee]; dup {
		return nil
	}
	out[followee] = struct{}{}

	in := g.followers[followee]
	if in == nil {
		in = make(map[int]struct{})
		g.followers[followee] = in
	}
	in[follower] = struct{}{}
	g.edges++
	return nil
}

// Nodes implements Graph.
func (g *Directed) Nodes() []int {
	return sortedKeys(g.nodes)
}

// FollowersOf implements Graph.
func (g *Directed) FollowersOf(id int) []int {
	return sortedKeys(g.followers[id])
}

// Following returns the nodes id follows, in ascending order.
func (g *Directed) Following(id int) []int {
	return sortedKeys(g.following[id])
}

// HasEdge reports whether follower follows followee.
func (g *Directed) HasEdge(follower, followee int) bool {
	_, ok := g.following[follower][followee]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Directed) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of follow edges.
func (g *Directed) EdgeCount() int { return g.edges }

// Edge is one follow relation.
type Edge struct {
	Follower int `json:"follower"`
	Followee int `json:"followee"`
}

// Edges returns every edge ordered by follower, then followee.
func (g *Directed) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, follower := range sortedKeys(g.following) {
		for _, followee := range sortedKeys(g.following[follower]) {
			out = append(out, Edge{Follower: follower, Followee: followee})
		}
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
