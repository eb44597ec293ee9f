package knowledgegraph

import (
	"sort"
	"strings"

	"medrag-be/internal/pkg/logger"
)

type Subgraph struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// NodeView and EdgeView are nodes and edges with defaults filled in.
type NodeView struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
}

type EdgeView struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Relationship string  `json:"relationship"`
	Weight       float64 `json:"weight"`
}

type Neighbor struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	Type         string  `json:"type"`
	Relationship string  `json:"relationship"`
	Weight       float64 `json:"weight"`
}

// PairWeight is reported only for pairs joined by a direct edge.
type PairWeight struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

type Stats struct {
	Status    string  `json:"status"`
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	Triplets  int     `json:"triplets"`
	Diseases  int     `json:"diseases"`
	Density   float64 `json:"density"`
	Connected bool    `json:"isConnected"`
}

// Engine is read-only after construction and safe for concurrent use.
type Engine struct {
	graph    *Graph
	triplets []Triplet
	ontology map[string]map[string]interface{}
	logger   logger.ILogger
}

// NewEngine accepts nil for any artifact; the matching queries then return empty results.
func NewEngine(graph *Graph, triplets []Triplet, ontology map[string]map[string]interface{}, log logger.ILogger) *Engine {
	if graph != nil && graph.NodeCount() == 0 {
		graph = nil
	}
	return &Engine{graph: graph, triplets: triplets, ontology: ontology, logger: log}
}

func (e *Engine) Ready() bool {
	return e.graph != nil
}

// Subgraph returns the node-induced subgraph over every node within radius hops of a seed.
// Seeds missing from the graph are skipped.
func (e *Engine) Subgraph(nodeIDs []string, radius int) Subgraph {
	out := Subgraph{Nodes: []NodeView{}, Edges: []EdgeView{}}
	if e.graph == nil {
		return out
	}
	if radius < 0 {
		radius = 0
	}

	included := make(map[string]bool)
	for _, id := range nodeIDs {
		if !e.graph.Has(id) {
			continue
		}
		for reached := range e.graph.bfs(id, radius) {
			included[reached] = true
		}
	}

	for _, id := range e.graph.nodeOrder {
		if included[id] {
			out.Nodes = append(out.Nodes, e.nodeView(id))
		}
	}
	for _, edge := range e.graph.edges {
		if included[edge.Source] && included[edge.Target] {
			out.Edges = append(out.Edges, edgeView(edge))
		}
	}
	return out
}

// RelevantTriplets scores every triplet against the symptoms and returns the topK best,
// keeping source order among equal scores.
func (e *Engine) RelevantTriplets(symptoms []string, topK int) []ScoredTriplet {
	scored := []ScoredTriplet{}
	if len(e.triplets) == 0 || topK <= 0 {
		return scored
	}

	lowered := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			lowered = append(lowered, s)
		}
	}

	for _, t := range e.triplets {
		if score := relevance(t, lowered); score > 0 {
			scored = append(scored, ScoredTriplet{Triplet: t, RelevanceScore: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func relevance(t Triplet, symptoms []string) float64 {
	subject := strings.ToLower(t.Subject)
	predicate := strings.ToLower(t.Predicate)
	object := strings.ToLower(t.Object)

	var score float64
	for _, s := range symptoms {
		if strings.Contains(subject, s) || strings.Contains(object, s) {
			score += 1
		}
		if strings.Contains(predicate, s) {
			score += 0.5
		}
	}
	return score
}

// ShortestPath returns the fewest-hop path from source to target, or false when none exists.
func (e *Engine) ShortestPath(source, target string) ([]string, bool) {
	if e.graph == nil || !e.graph.Has(source) || !e.graph.Has(target) {
		return nil, false
	}
	if source == target {
		return []string{source}, true
	}

	prev := map[string]string{source: source}
	queue := []string{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range e.graph.adjOrder[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == target {
				return walkBack(prev, source, target), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func walkBack(prev map[string]string, source, target string) []string {
	path := []string{target}
	for cur := target; cur != source; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Neighbors returns direct neighbours by descending edge weight.
func (e *Engine) Neighbors(node string, maxNeighbors int) []Neighbor {
	out := []Neighbor{}
	if e.graph == nil || !e.graph.Has(node) {
		return out
	}

	for _, id := range e.graph.adjOrder[node] {
		edge, _ := e.graph.Edge(node, id)
		view := e.nodeView(id)
		out = append(out, Neighbor{
			ID:           id,
			Label:        view.Label,
			Type:         view.Type,
			Relationship: orDefault(edge.Relationship, defaultRelationship),
			Weight:       edge.EffectiveWeight(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if maxNeighbors >= 0 && len(out) > maxNeighbors {
		out = out[:maxNeighbors]
	}
	return out
}

// EdgeWeights reports the weight of every unordered pair in nodes that shares a direct edge.
func (e *Engine) EdgeWeights(nodes []string) []PairWeight {
	out := []PairWeight{}
	if e.graph == nil {
		return out
	}
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			if edge, ok := e.graph.Edge(a, b); ok {
				out = append(out, PairWeight{Source: a, Target: b, Weight: edge.EffectiveWeight()})
			}
		}
	}
	return out
}

// DiseaseInfo looks a disease up in the ontology, exact name first, then case-insensitively.
func (e *Engine) DiseaseInfo(name string) (map[string]interface{}, bool) {
	if len(e.ontology) == 0 {
		return nil, false
	}
	if info, ok := e.ontology[name]; ok {
		return info, true
	}

	lower := strings.ToLower(name)
	keys := make([]string, 0, len(e.ontology))
	for k := range e.ontology {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.ToLower(k) == lower {
			return e.ontology[k], true
		}
	}
	return nil, false
}

func (e *Engine) Stats() Stats {
	if e.graph == nil {
		return Stats{Status: "not_initialized", Triplets: len(e.triplets), Diseases: len(e.ontology)}
	}
	return Stats{
		Status:    "initialized",
		Nodes:     e.graph.NodeCount(),
		Edges:     e.graph.EdgeCount(),
		Triplets:  len(e.triplets),
		Diseases:  len(e.ontology),
		Density:   e.graph.Density(),
		Connected: e.graph.Connected(),
	}
}

func (e *Engine) nodeView(id string) NodeView {
	n, _ := e.graph.Node(id)
	return NodeView{
		ID:         id,
		Label:      orDefault(n.Label, id),
		Type:       orDefault(n.Type, defaultType),
		Confidence: n.Confidence,
	}
}

func edgeView(e Edge) EdgeView {
	return EdgeView{
		Source:       e.Source,
		Target:       e.Target,
		Relationship: orDefault(e.Relationship, defaultRelationship),
		Weight:       e.EffectiveWeight(),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
