package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, metric Metric) *FlatIndex {
	t.Helper()
	idx := NewFlatIndex(2, metric)
	require.NoError(t, idx.Add(0, []float32{1, 0}))
	require.NoError(t, idx.Add(1, []float32{0, 1}))
	require.NoError(t, idx.Add(2, []float32{0.8, 0.6}))
	return idx
}

func TestFlatIndexSearchOrdering(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		want   []int64
	}{
		{"l2 ascending", MetricL2, []int64{0, 2, 1}},
		{"ip descending", MetricInnerProduct, []int64{0, 2, 1}},
		{"cosine ascending", MetricCosine, []int64{0, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := buildIndex(t, tt.metric).Search(context.Background(), []float32{1, 0}, 3)
			require.NoError(t, err)

			ids := make([]int64, len(hits))
			for i, h := range hits {
				ids[i] = h.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFlatIndexPadsWithNoMatch(t *testing.T) {
	hits, err := buildIndex(t, MetricL2).Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	assert.Equal(t, NoMatch, hits[3].ID)
	assert.Equal(t, NoMatch, hits[4].ID)
}

func TestFlatIndexDimensionMismatch(t *testing.T) {
	_, err := buildIndex(t, MetricL2).Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndexSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.msgpack")
	idx := buildIndex(t, MetricInnerProduct)
	require.NoError(t, idx.Save(path))

	loaded, err := LoadFlatIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Size())
	assert.Equal(t, 2, loaded.Dimension())
	assert.Equal(t, MetricInnerProduct, loaded.Metric())

	want, _ := idx.Search(context.Background(), []float32{0.6, 0.8}, 3)
	got, err := loaded.Search(context.Background(), []float32{0.6, 0.8}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.msgpack")
	matrix := [][]float32{{1, 2}, {3, 4}}
	require.NoError(t, SaveEmbeddings(path, matrix))

	got, err := LoadEmbeddings(path)
	require.NoError(t, err)
	assert.Equal(t, matrix, got)
}

func TestSimilarityFor(t *testing.T) {
	assert.InDelta(t, 0.75, SimilarityFor(MetricL2)(0.25), 1e-9)
	assert.InDelta(t, 0.75, SimilarityFor(MetricCosine)(0.25), 1e-9)
	assert.InDelta(t, 0.25, SimilarityFor(MetricInnerProduct)(0.25), 1e-9)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, m)

	_, err = ParseMetric("hamming")
	assert.Error(t, err)
}
