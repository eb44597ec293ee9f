// Package knowledgegraph answers subgraph, path, neighbour and triplet-relevance queries over a
// medical entity graph that is built offline and loaded once at startup.
package knowledgegraph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultWeight        = 1.0
	defaultType          = "unknown"
	defaultRelationship  = "related"
	graphSnapshotVersion = 1
)

type Node struct {
	ID         string   `msgpack:"id" json:"id"`
	Label      string   `msgpack:"label,omitempty" json:"label"`
	Type       string   `msgpack:"type,omitempty" json:"type"`
	Confidence *float64 `msgpack:"confidence,omitempty" json:"confidence"`
}

// Edge is undirected. A nil Weight reads as DefaultWeight.
type Edge struct {
	Source       string   `msgpack:"source" json:"source"`
	Target       string   `msgpack:"target" json:"target"`
	Relationship string   `msgpack:"relationship,omitempty" json:"relationship"`
	Weight       *float64 `msgpack:"weight,omitempty" json:"weight"`
}

func (e Edge) EffectiveWeight() float64 {
	if e.Weight == nil {
		return DefaultWeight
	}
	return *e.Weight
}

// Graph is an undirected simple graph. Iteration follows insertion order so query output is
// reproducible for a given snapshot.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     []Edge
	adj       map[string]map[string]int // node -> neighbour -> index into edges
	adjOrder  map[string][]string
}

func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		adj:      make(map[string]map[string]int),
		adjOrder: make(map[string][]string),
	}
}

// AddNode inserts a node or replaces its attributes.
func (g *Graph) AddNode(n Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		*existing = n
		return
	}
	node := n
	g.nodes[n.ID] = &node
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.adj[n.ID] = make(map[string]int)
}

// AddEdge connects two nodes, creating bare nodes as needed. A repeated pair replaces the
// existing edge's attributes.
func (g *Graph) AddEdge(e Edge) {
	for _, id := range []string{e.Source, e.Target} {
		if _, ok := g.nodes[id]; !ok {
			g.AddNode(Node{ID: id})
		}
	}
	if i, ok := g.adj[e.Source][e.Target]; ok {
		e.Source, e.Target = g.edges[i].Source, g.edges[i].Target
		g.edges[i] = e
		return
	}

	g.edges = append(g.edges, e)
	i := len(g.edges) - 1
	g.link(e.Source, e.Target, i)
	if e.Source != e.Target {
		g.link(e.Target, e.Source, i)
	}
}

func (g *Graph) link(from, to string, i int) {
	g.adj[from][to] = i
	g.adjOrder[from] = append(g.adjOrder[from], to)
}

func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Edge returns the edge between a and b in either direction.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	i, ok := g.adj[a][b]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

func (g *Graph) NodeCount() int { return len(g.nodeOrder) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Density follows the undirected simple-graph definition 2E / N(N-1).
func (g *Graph) Density() float64 {
	n := float64(len(g.nodeOrder))
	if n <= 1 {
		return 0
	}
	return 2 * float64(len(g.edges)) / (n * (n - 1))
}

// Connected reports whether every node is reachable from the first one. An empty graph is not connected.
func (g *Graph) Connected() bool {
	if len(g.nodeOrder) == 0 {
		return false
	}
	return len(g.bfs(g.nodeOrder[0], -1)) == len(g.nodeOrder)
}

// bfs returns hop distances from start. A negative cutoff means unbounded.
func (g *Graph) bfs(start string, cutoff int) map[string]int {
	dist := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cutoff >= 0 && dist[cur] >= cutoff {
			continue
		}
		for _, next := range g.adjOrder[cur] {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

type graphSnapshot struct {
	Version int    `msgpack:"version"`
	Nodes   []Node `msgpack:"nodes"`
	Edges   []Edge `msgpack:"edges"`
}

// Save writes the graph as a msgpack snapshot.
func (g *Graph) Save(path string) error {
	snap := graphSnapshot{Version: graphSnapshotVersion, Edges: g.edges}
	for _, id := range g.nodeOrder {
		snap.Nodes = append(snap.Nodes, *g.nodes[id])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap graphSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode graph snapshot: %w", err)
	}
	if snap.Version != graphSnapshotVersion {
		return nil, fmt.Errorf("unsupported graph snapshot version %d", snap.Version)
	}

	g := NewGraph()
	for _, n := range snap.Nodes {
		g.AddNode(n)
	}
	for _, e := range snap.Edges {
		g.AddEdge(e)
	}
	return g, nil
}
