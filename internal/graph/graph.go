// Package graph holds the in-memory knowledge graph populated by extractors.
//
// A Graph is created empty at the start of a scan, mutated file by file, and then
// handed read-only to exporters. It is not safe for concurrent mutation; callers
// that parallelize work must funnel every write through a single goroutine.
package graph

import (
	"iter"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Graph stores nodes by id plus outgoing and incoming edge sets per node
type Graph struct {
	nodes map[string]Node
	out   map[string]map[edgeKey]Edge
	in    map[string]map[edgeKey]Edge
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		out:   make(map[string]map[edgeKey]Edge),
		in:    make(map[string]map[edgeKey]Edge),
	}
}

// UpsertNode stores n under its id, replacing any previous node.
// Existing adjacency entries are preserved.
func (g *Graph) UpsertNode(n Node) Node {
	g.nodes[n.ID] = n
	if _, ok := g.out[n.ID]; !ok {
		g.out[n.ID] = make(map[edgeKey]Edge)
	}
	if _, ok := g.in[n.ID]; !ok {
		g.in[n.ID] = make(map[edgeKey]Edge)
	}
	return n
}

// EnsureNode returns the node stored under id, creating it if absent.
// The first writer wins: name, kind and meta of an existing node are never changed.
func (g *Graph) EnsureNode(id, name string, kind NodeKind, meta Meta) Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	return g.UpsertNode(Node{ID: id, Name: name, Kind: kind, Meta: meta})
}

// Node looks up a node by id
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether id is stored
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge inserts e into both adjacency indexes.
// Both endpoints must already exist; otherwise a *MissingNodeError is returned and
// the graph is left unchanged. Adding an equal edge twice stores it once.
func (g *Graph) AddEdge(e Edge) (Edge, error) {
	if !g.HasNode(e.Source) {
		return Edge{}, &MissingNodeError{Edge: e, ID: e.Source}
	}
	if !g.HasNode(e.Target) {
		return Edge{}, &MissingNodeError{Edge: e, ID: e.Target}
	}
	k := e.key()
	g.out[e.Source][k] = e
	g.in[e.Target][k] = e
	return e, nil
}

// Connect builds an edge and adds it
func (g *Graph) Connect(source, target string, kind EdgeKind, meta Meta) (Edge, error) {
	return g.AddEdge(Edge{Source: source, Target: target, Kind: kind, Meta: meta})
}

// Nodes iterates over all nodes in no particular order
func (g *Graph) Nodes() iter.Seq[Node] {
	return maps.Values(g.nodes)
}

// Edges iterates over all edges in no particular order
func (g *Graph) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, set := range g.out {
			for _, e := range set {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// NodeCount returns the number of stored nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of stored edges
func (g *Graph) EdgeCount() int {
	count := 0
	for _, set := range g.out {
		count += len(set)
	}
	return count
}

// Successors returns the nodes one hop away along outgoing edges.
// When kinds are given only edges of those kinds are followed.
func (g *Graph) Successors(id string, kinds ...EdgeKind) []Node {
	return g.neighbors(g.out[id], func(e Edge) string { return e.Target }, kinds)
}

// Predecessors returns the nodes one hop away along incoming edges.
// When kinds are given only edges of those kinds are followed.
func (g *Graph) Predecessors(id string, kinds ...EdgeKind) []Node {
	return g.neighbors(g.in[id], func(e Edge) string { return e.Source }, kinds)
}

// neighbors collects distinct endpoints, skipping ids that were never inserted
func (g *Graph) neighbors(set map[edgeKey]Edge, endpoint func(Edge) string, kinds []EdgeKind) []Node {
	seen := make(map[string]Node)
	for _, e := range set {
		if len(kinds) > 0 && !slices.Contains(kinds, e.Kind) {
			continue
		}
		id := endpoint(e)
		if n, ok := g.nodes[id]; ok {
			seen[id] = n
		}
	}
	result := slices.Collect(maps.Values(seen))
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// OutEdges returns the outgoing edges of id in canonical order
func (g *Graph) OutEdges(id string) []Edge {
	edges := slices.Collect(maps.Values(g.out[id]))
	sortEdges(edges)
	return edges
}

// InEdges returns the incoming edges of id in canonical order
func (g *Graph) InEdges(id string) []Edge {
	edges := slices.Collect(maps.Values(g.in[id]))
	sortEdges(edges)
	return edges
}

// Subgraph projects a new graph holding the given ids that exist here and every
// edge whose endpoints are both in that set.
func (g *Graph) Subgraph(ids []string) *Graph {
	sub := New()
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			sub.UpsertNode(n)
		}
	}
	for id := range sub.nodes {
		for k, e := range g.out[id] {
			if sub.HasNode(e.Target) {
				sub.out[e.Source][k] = e
				sub.in[e.Target][k] = e
			}
		}
	}
	return sub
}

// NodeRecord is the serialization form of a Node
type NodeRecord struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Kind string            `json:"kind"`
	Meta map[string]string `json:"meta"`
}

// EdgeRecord is the serialization form of an Edge
type EdgeRecord struct {
	Source string            `json:"source"`
	Target string            `json:"target"`
	Kind   string            `json:"kind"`
	Meta   map[string]string `json:"meta"`
}

// Document is the language-neutral representation of a graph
type Document struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// SortedNodes returns all nodes ordered by id
func (g *Graph) SortedNodes() []Node {
	nodes := slices.Collect(maps.Values(g.nodes))
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// SortedEdges returns all edges in canonical order
func (g *Graph) SortedEdges() []Edge {
	edges := slices.Collect(g.Edges())
	sortEdges(edges)
	return edges
}

// Snapshot produces the canonical document: nodes sorted by id, edges sorted by
// source, target, kind and metadata. Equal graphs always yield equal documents.
func (g *Graph) Snapshot() Document {
	nodes := g.SortedNodes()
	edges := g.SortedEdges()

	doc := Document{
		Nodes: make([]NodeRecord, 0, len(nodes)),
		Edges: make([]EdgeRecord, 0, len(edges)),
	}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, n.Record())
	}
	for _, e := range edges {
		doc.Edges = append(doc.Edges, e.Record())
	}
	return doc
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Target, b.Target); c != 0 {
			return c < 0
		}
		if a.Kind != b.Kind {
			return a.Kind.String() < b.Kind.String()
		}
		return a.Meta.String() < b.Meta.String()
	})
}
