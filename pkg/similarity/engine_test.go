package similarity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f fixedEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}
func (f fixedEmbedder) Dimension() int { return len(f.vec) }
func (f fixedEmbedder) Name() string   { return "fixed" }

func newTestIndex(t *testing.T) *vectorindex.FlatIndex {
	t.Helper()
	idx := vectorindex.NewFlatIndex(2, vectorindex.MetricL2)
	require.NoError(t, idx.Add(0, []float32{1, 0}))
	require.NoError(t, idx.Add(1, []float32{0, 1}))
	require.NoError(t, idx.Add(2, []float32{0.8, 0.6}))
	return idx
}

func TestSearchRanksAndJoinsMetadata(t *testing.T) {
	metadata := map[string]CaseMetadata{
		"0": {Diagnosis: "Pneumonia", Symptoms: []string{"fever", "cough"}, Summary: "CXR infiltrate", Outcome: "Recovered"},
	}
	engine := NewEngine(newTestIndex(t), metadata, logger.NewNopLogger(),
		WithEmbedder(fixedEmbedder{vec: []float32{2, 0}}))

	matches := engine.Search(context.Background(), "fever, cough", 5)
	require.Len(t, matches, 3)

	assert.Equal(t, "0", matches[0].CaseID)
	assert.Equal(t, 1, matches[0].Rank)
	assert.InDelta(t, 100.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "Pneumonia", matches[0].Diagnosis)

	assert.Equal(t, "2", matches[1].CaseID)
	assert.Equal(t, 2, matches[1].Rank)
	assert.InDelta(t, 60.0, matches[1].Similarity, 1e-4)
	assert.Equal(t, unknownLabel, matches[1].Diagnosis)
	assert.Equal(t, []string{}, matches[1].Symptoms)
	assert.Equal(t, missingSummary, matches[1].Summary)
	assert.Equal(t, unknownLabel, matches[1].Outcome)

	// distance 2 would give a negative score
	assert.Equal(t, 0.0, matches[2].Similarity)
	assert.Equal(t, 3, matches[2].Rank)
}

func TestSearchIsIdempotentWithRandomFallback(t *testing.T) {
	engine := NewEngine(newTestIndex(t), nil, logger.NewNopLogger())

	first := engine.Search(context.Background(), "chest pain", 2)
	second := engine.Search(context.Background(), "chest pain", 2)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestSearchWithoutIndexReturnsEmpty(t *testing.T) {
	engine := NewEngine(nil, nil, logger.NewNopLogger())

	assert.False(t, engine.Ready())
	assert.Empty(t, engine.Search(context.Background(), "fever", 5))
	assert.Equal(t, "not_initialized", engine.Stats().Status)
}

func TestSearchEmbedderFailureReturnsEmpty(t *testing.T) {
	engine := NewEngine(newTestIndex(t), nil, logger.NewNopLogger(),
		WithEmbedder(fixedEmbedder{err: errors.New("model offline")}))

	assert.Empty(t, engine.Search(context.Background(), "fever", 5))
}

func TestSearchCustomSimilarityFunc(t *testing.T) {
	engine := NewEngine(newTestIndex(t), nil, logger.NewNopLogger(),
		WithEmbedder(fixedEmbedder{vec: []float32{1, 0}}),
		WithSimilarityFunc(func(d float32) float64 { return 1 / (1 + float64(d)) }))

	matches := engine.Search(context.Background(), "q", 1)
	require.Len(t, matches, 1)
	assert.InDelta(t, 100.0, matches[0].Similarity, 1e-6)
}

func TestStatsAndEmbeddingLookup(t *testing.T) {
	engine := NewEngine(newTestIndex(t), map[string]CaseMetadata{"1": {Diagnosis: "Asthma"}}, logger.NewNopLogger(),
		WithEmbeddings([][]float32{{1, 0}, {0, 1}}))

	stats := engine.Stats()
	assert.Equal(t, "initialized", stats.Status)
	assert.Equal(t, 3, stats.TotalVectors)
	assert.Equal(t, 2, stats.Dimension)
	assert.Equal(t, "FlatIndexl2", stats.IndexType)
	assert.Equal(t, 1, stats.CasesLoaded)
	assert.Equal(t, 2, stats.EmbeddingsLoaded)

	vec, ok := engine.Embedding("1")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1}, vec)
	_, ok = engine.Embedding("7")
	assert.False(t, ok)

	info, ok := engine.CaseDetails("1")
	require.True(t, ok)
	assert.Equal(t, "Asthma", info.Diagnosis)
}

func TestLoadMetadataKeepsExtraFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_metadata.json")
	raw := `{"0": {"diagnosis": "Migraine", "symptoms": ["headache"], "age": 34}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	metadata, err := LoadMetadata(path)
	require.NoError(t, err)
	require.Contains(t, metadata, "0")
	assert.Equal(t, "Migraine", metadata["0"].Diagnosis)
	assert.Equal(t, float64(34), metadata["0"].Extra["age"])
}
