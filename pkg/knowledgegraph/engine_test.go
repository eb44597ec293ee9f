package knowledgegraph

import (
	"path/filepath"
	"testing"

	"medrag-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weight(w float64) *float64 { return &w }

// fever - pneumonia - cough - bronchitis, plus an isolated rash node
func sampleGraph() *Graph {
	g := NewGraph()
	g.AddNode(Node{ID: "fever", Label: "Fever", Type: "symptom"})
	g.AddNode(Node{ID: "pneumonia", Label: "Pneumonia", Type: "disease"})
	g.AddNode(Node{ID: "cough", Type: "symptom"})
	g.AddNode(Node{ID: "bronchitis", Type: "disease"})
	g.AddNode(Node{ID: "rash"})
	g.AddEdge(Edge{Source: "fever", Target: "pneumonia", Relationship: "symptom_of", Weight: weight(0.9)})
	g.AddEdge(Edge{Source: "pneumonia", Target: "cough", Relationship: "causes"})
	g.AddEdge(Edge{Source: "cough", Target: "bronchitis", Weight: weight(0.4)})
	return g
}

func sampleEngine(triplets []Triplet) *Engine {
	ontology := map[string]map[string]interface{}{
		"Pneumonia": {"icd10": "J18.9"},
	}
	return NewEngine(sampleGraph(), triplets, ontology, logger.NewNopLogger())
}

func nodeIDs(s Subgraph) []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestSubgraph(t *testing.T) {
	tests := []struct {
		name      string
		seeds     []string
		radius    int
		wantNodes []string
		wantEdges int
	}{
		{"radius zero keeps only seeds", []string{"fever", "pneumonia", "bronchitis"}, 0, []string{"fever", "pneumonia", "bronchitis"}, 1},
		{"radius one", []string{"fever"}, 1, []string{"fever", "pneumonia"}, 1},
		{"radius two", []string{"fever"}, 2, []string{"fever", "pneumonia", "cough"}, 2},
		{"missing seeds skipped", []string{"ghost", "rash"}, 3, []string{"rash"}, 0},
		{"no seeds present", []string{"ghost"}, 2, []string{}, 0},
	}

	engine := sampleEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := engine.Subgraph(tt.seeds, tt.radius)
			assert.ElementsMatch(t, tt.wantNodes, nodeIDs(sub))
			assert.Len(t, sub.Edges, tt.wantEdges)
		})
	}
}

func TestSubgraphIsNodeInduced(t *testing.T) {
	sub := sampleEngine(nil).Subgraph([]string{"fever", "cough"}, 0)

	assert.ElementsMatch(t, []string{"fever", "cough"}, nodeIDs(sub))
	assert.Empty(t, sub.Edges)
}

func TestSubgraphDefaults(t *testing.T) {
	sub := sampleEngine(nil).Subgraph([]string{"pneumonia", "cough"}, 0)
	require.Len(t, sub.Nodes, 2)
	require.Len(t, sub.Edges, 1)

	assert.Equal(t, "cough", sub.Nodes[1].Label)
	assert.Equal(t, "symptom", sub.Nodes[1].Type)
	assert.Equal(t, 1.0, sub.Edges[0].Weight)
	assert.Equal(t, "causes", sub.Edges[0].Relationship)
}

func TestRelevantTriplets(t *testing.T) {
	triplets := []Triplet{
		{Subject: "Influenza", Predicate: "presents with", Object: "Fever"},
		{Subject: "fever and cough", Predicate: "causes", Object: "fatigue"},
		{Subject: "Asthma", Predicate: "triggered by", Object: "allergens"},
		{Subject: "Pneumonia", Predicate: "presents with", Object: "cough"},
		{Subject: "Rash", Predicate: "cough-associated", Object: "measles"},
	}
	engine := sampleEngine(triplets)

	got := engine.RelevantTriplets([]string{"Fever", "cough"}, 10)
	require.Len(t, got, 4)

	assert.Equal(t, "fever and cough", got[0].Subject)
	assert.Equal(t, 2.0, got[0].RelevanceScore)

	// ties keep source order
	assert.Equal(t, "Influenza", got[1].Subject)
	assert.Equal(t, 1.0, got[1].RelevanceScore)
	assert.Equal(t, "Pneumonia", got[2].Subject)
	assert.Equal(t, 1.0, got[2].RelevanceScore)

	assert.Equal(t, "Rash", got[3].Subject)
	assert.Equal(t, 0.5, got[3].RelevanceScore)

	assert.Len(t, engine.RelevantTriplets([]string{"fever", "cough"}, 2), 2)
	assert.Empty(t, engine.RelevantTriplets([]string{"headache"}, 5))
	assert.Empty(t, engine.RelevantTriplets([]string{" "}, 5))
}

func TestShortestPath(t *testing.T) {
	engine := sampleEngine(nil)

	path, ok := engine.ShortestPath("fever", "bronchitis")
	require.True(t, ok)
	assert.Equal(t, []string{"fever", "pneumonia", "cough", "bronchitis"}, path)

	path, ok = engine.ShortestPath("fever", "fever")
	require.True(t, ok)
	assert.Equal(t, []string{"fever"}, path)

	_, ok = engine.ShortestPath("fever", "rash")
	assert.False(t, ok)

	_, ok = engine.ShortestPath("fever", "ghost")
	assert.False(t, ok)
}

func TestNeighbors(t *testing.T) {
	engine := sampleEngine(nil)

	got := engine.Neighbors("cough", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "pneumonia", got[0].ID)
	assert.Equal(t, 1.0, got[0].Weight)
	assert.Equal(t, "bronchitis", got[1].ID)
	assert.Equal(t, 0.4, got[1].Weight)
	assert.Equal(t, "related", got[1].Relationship)

	assert.Len(t, engine.Neighbors("cough", 1), 1)
	assert.Empty(t, engine.Neighbors("ghost", 5))
}

func TestEdgeWeightsOmitsUnrelatedPairs(t *testing.T) {
	got := sampleEngine(nil).EdgeWeights([]string{"fever", "pneumonia", "rash", "cough"})

	assert.Equal(t, []PairWeight{
		{Source: "fever", Target: "pneumonia", Weight: 0.9},
		{Source: "pneumonia", Target: "cough", Weight: 1.0},
	}, got)
}

func TestDiseaseInfo(t *testing.T) {
	engine := sampleEngine(nil)

	info, ok := engine.DiseaseInfo("Pneumonia")
	require.True(t, ok)
	assert.Equal(t, "J18.9", info["icd10"])

	_, ok = engine.DiseaseInfo("pneumonia")
	assert.True(t, ok)

	_, ok = engine.DiseaseInfo("Measles")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	stats := sampleEngine([]Triplet{{Subject: "a", Predicate: "b", Object: "c"}}).Stats()

	assert.Equal(t, "initialized", stats.Status)
	assert.Equal(t, 5, stats.Nodes)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 1, stats.Triplets)
	assert.Equal(t, 1, stats.Diseases)
	assert.InDelta(t, 0.3, stats.Density, 1e-9)
	assert.False(t, stats.Connected)
}

func TestEngineWithoutGraph(t *testing.T) {
	engine := NewEngine(nil, nil, nil, logger.NewNopLogger())

	assert.False(t, engine.Ready())
	assert.Empty(t, engine.Subgraph([]string{"fever"}, 2).Nodes)
	_, ok := engine.ShortestPath("a", "b")
	assert.False(t, ok)
	assert.Equal(t, "not_initialized", engine.Stats().Status)
}

func TestGraphSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.msgpack")
	require.NoError(t, sampleGraph().Save(path))

	g, err := LoadGraph(path)
	require.NoError(t, err)
	assert.Equal(t, 5, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())

	edge, ok := g.Edge("pneumonia", "fever")
	require.True(t, ok)
	assert.Equal(t, 0.9, edge.EffectiveWeight())
}
