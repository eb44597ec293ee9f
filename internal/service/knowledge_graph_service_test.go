package service

import (
	"context"
	"testing"

	"medrag-be/internal/dto"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/knowledgegraph"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraphEngine(t *testing.T) *knowledgegraph.Engine {
	t.Helper()
	w := 0.8
	g := knowledgegraph.NewGraph()
	g.AddNode(knowledgegraph.Node{ID: "fever", Type: "symptom"})
	g.AddNode(knowledgegraph.Node{ID: "cough", Type: "symptom"})
	g.AddNode(knowledgegraph.Node{ID: "Pneumonia", Type: "disease"})
	g.AddNode(knowledgegraph.Node{ID: "Asthma", Type: "disease"})
	g.AddEdge(knowledgegraph.Edge{Source: "fever", Target: "Pneumonia", Relationship: "symptom_of", Weight: &w})
	g.AddEdge(knowledgegraph.Edge{Source: "cough", Target: "Pneumonia", Relationship: "symptom_of"})
	g.AddEdge(knowledgegraph.Edge{Source: "fever", Target: "cough", Relationship: "co_occurs"})

	triplets := []knowledgegraph.Triplet{
		{Subject: "Pneumonia", Predicate: "causes", Object: "fever"},
		{Subject: "Pneumonia", Predicate: "causes", Object: "cough"},
		{Subject: "Asthma", Predicate: "triggered_by", Object: "allergens"},
	}
	ontology := map[string]map[string]interface{}{"Pneumonia": {"icd10": "J18.9"}}
	return knowledgegraph.NewEngine(g, triplets, ontology, newFixture(t).log)
}

func TestKnowledgeGraphQueries(t *testing.T) {
	f := newFixture(t)
	svc := NewKnowledgeGraphService(f.uow, sampleGraphEngine(t))
	ctx := context.Background()

	t.Run("explore", func(t *testing.T) {
		res, err := svc.Explore(ctx, "fever", 0)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Radius)
		assert.Len(t, res.Neighbors, 2)
		assert.Equal(t, "cough", res.Neighbors[0].ID)

		_, err = svc.Explore(ctx, "fever", 4)
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("path", func(t *testing.T) {
		res, err := svc.Path(ctx, "fever", "cough")
		require.NoError(t, err)
		assert.Equal(t, []string{"fever", "cough"}, res.Path)
		assert.Equal(t, 1, res.PathLength)
		require.NotNil(t, res.Subgraph)

		res, err = svc.Path(ctx, "fever", "Asthma")
		require.NoError(t, err)
		assert.Nil(t, res.Path)
		assert.Equal(t, "No path found between nodes", res.Message)
	})

	t.Run("disease", func(t *testing.T) {
		res, err := svc.Disease(ctx, "pneumonia")
		require.NoError(t, err)
		assert.Equal(t, "J18.9", res.Info["icd10"])

		_, err = svc.Disease(ctx, "Gout")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("symptom relations", func(t *testing.T) {
		res, err := svc.SymptomRelations(ctx, "cough", 0)
		require.NoError(t, err)
		assert.Len(t, res.Triplets, 1)
		assert.NotEmpty(t, res.Subgraph.Nodes)

		_, err = svc.SymptomRelations(ctx, "cough", 51)
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("analyze", func(t *testing.T) {
		res, err := svc.Analyze(ctx, &dto.AnalyzeSymptomsRequest{Symptoms: []string{"fever", "cough"}})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Analysis.TotalTriplets)
		assert.Equal(t, 1, res.Analysis.ConnectedSymptoms)
		assert.InDelta(t, 1.0, res.Analysis.AvgRelevanceScore, 1e-9)
		require.Len(t, res.EdgeWeights, 1)
		assert.Equal(t, 1.0, res.EdgeWeights[0].Weight)
	})

	t.Run("stats", func(t *testing.T) {
		stats := svc.Stats(ctx)
		assert.Equal(t, "initialized", stats.Status)
		assert.Equal(t, 4, stats.Nodes)
		assert.Equal(t, 1, stats.Diseases)
	})
}

func TestSessionGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewKnowledgeGraphService(f.uow, sampleGraphEngine(t))

	_, err := svc.SessionGraph(ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	started, err := f.diagnosisService().Start(ctx, &dto.StartDiagnosisRequest{Symptoms: []string{"fever"}})
	require.NoError(t, err)

	res, err := svc.SessionGraph(ctx, started.SessionId)
	require.NoError(t, err)
	assert.Len(t, res.Nodes, 3)
	assert.Len(t, res.Edges, 3)
}

func TestKnowledgeGraphNotInitialized(t *testing.T) {
	f := newFixture(t)
	svc := NewKnowledgeGraphService(f.uow, knowledgegraph.NewEngine(nil, nil, nil, f.log))
	ctx := context.Background()

	_, err := svc.Explore(ctx, "fever", 1)
	assert.True(t, apperror.Is(err, apperror.KindEngineUnavailable))
	_, err = svc.Path(ctx, "a", "b")
	assert.True(t, apperror.Is(err, apperror.KindEngineUnavailable))
	assert.Equal(t, "not_initialized", svc.Stats(ctx).Status)
}
