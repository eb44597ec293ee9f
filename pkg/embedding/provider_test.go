package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, Normalize(zero))
}

func TestRandomProviderIsSeededByText(t *testing.T) {
	p := NewRandomProvider(16)
	ctx := context.Background()

	a, err := p.Generate(ctx, "fever, cough")
	require.NoError(t, err)
	b, err := p.Generate(ctx, "fever, cough")
	require.NoError(t, err)
	c, err := p.Generate(ctx, "chest pain")
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestOllamaProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"fever"}, req.Input)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": [][]float64{{1, 2, 2}}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "all-minilm", 3)
	vec, err := p.Generate(context.Background(), "fever")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 2}, vec)

	var norm float64
	for _, v := range Normalize(vec) {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestOllamaProviderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": [][]float64{{1, 2}}})
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "m", 3).Generate(context.Background(), "x")
	assert.Error(t, err)
}

func TestOllamaProviderModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nomic\" not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "nomic", 0).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOpenAIProviderNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", srv.URL, "m", 0).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestOpenAIProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", srv.URL, "text-embedding-3-small", 0).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestNewEmbeddingProvider(t *testing.T) {
	p, err := NewEmbeddingProvider("", "", "", "", 8)
	require.NoError(t, err)
	assert.Equal(t, "random", p.Name())
	assert.Equal(t, 8, p.Dimension())

	_, err = NewEmbeddingProvider("gemini", "", "", "", 8)
	assert.Error(t, err)
}
