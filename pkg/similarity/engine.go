// Package similarity finds prior cases whose embedding is close to a free-text query.
package similarity

import (
	"context"
	"strconv"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/embedding"
	"medrag-be/pkg/vectorindex"
)

const (
	unknownLabel   = "Unknown"
	missingSummary = "No summary available"
)

// CaseMatch is one ranked search hit. Similarity is on a 0-100 scale.
type CaseMatch struct {
	CaseID     string   `json:"caseId"`
	Similarity float64  `json:"similarity"`
	Distance   float64  `json:"distance"`
	Rank       int      `json:"rank"`
	Diagnosis  string   `json:"diagnosis"`
	Symptoms   []string `json:"symptoms"`
	Summary    string   `json:"summary"`
	Outcome    string   `json:"outcome"`
}

type Stats struct {
	Status           string `json:"status"`
	TotalVectors     int    `json:"totalVectors,omitempty"`
	Dimension        int    `json:"dimension,omitempty"`
	IndexType        string `json:"indexType,omitempty"`
	CasesLoaded      int    `json:"casesLoaded"`
	EmbeddingsLoaded int    `json:"embeddingsLoaded"`
	Embedder         string `json:"embedder,omitempty"`
}

// Engine is safe for concurrent use: everything it holds is read-only after construction.
type Engine struct {
	index      vectorindex.Index
	embeddings [][]float32
	metadata   map[string]CaseMetadata
	embedder   embedding.EmbeddingProvider
	similarity vectorindex.SimilarityFunc
	logger     logger.ILogger
}

type Option func(*Engine)

// WithEmbedder sets the query embedder. Without one, queries use the hash-seeded random provider.
func WithEmbedder(p embedding.EmbeddingProvider) Option {
	return func(e *Engine) { e.embedder = p }
}

func WithEmbeddings(matrix [][]float32) Option {
	return func(e *Engine) { e.embeddings = matrix }
}

// WithSimilarityFunc overrides the metric's default distance conversion.
func WithSimilarityFunc(fn vectorindex.SimilarityFunc) Option {
	return func(e *Engine) { e.similarity = fn }
}

// NewEngine builds an engine. A nil index leaves the engine uninitialized; searches then return nothing.
func NewEngine(index vectorindex.Index, metadata map[string]CaseMetadata, log logger.ILogger, opts ...Option) *Engine {
	e := &Engine{
		index:    index,
		metadata: metadata,
		logger:   log,
	}
	if e.metadata == nil {
		e.metadata = map[string]CaseMetadata{}
	}
	for _, opt := range opts {
		opt(e)
	}
	if index != nil {
		if e.similarity == nil {
			e.similarity = vectorindex.SimilarityFor(index.Metric())
		}
		if e.embedder == nil {
			log.Warn("SEARCH", "No embedding model configured, using seeded random embeddings", nil)
			e.embedder = embedding.NewRandomProvider(index.Dimension())
		}
	}
	return e
}

func (e *Engine) Ready() bool {
	return e.index != nil
}

// Search returns up to topK cases ordered by closeness. Failures are logged and yield an empty list.
func (e *Engine) Search(ctx context.Context, queryText string, topK int) []CaseMatch {
	if e.index == nil {
		e.logger.Error("SEARCH", "Vector index not available", nil)
		return []CaseMatch{}
	}

	vec, err := e.embedder.Generate(ctx, queryText)
	if err != nil {
		e.logger.Error("SEARCH", "Failed to generate query embedding", map[string]interface{}{"error": err.Error()})
		return []CaseMatch{}
	}
	vec = embedding.Normalize(vec)

	hits, err := e.index.Search(ctx, vec, topK)
	if err != nil {
		e.logger.Error("SEARCH", "Vector search failed", map[string]interface{}{"error": err.Error()})
		return []CaseMatch{}
	}

	matches := make([]CaseMatch, 0, len(hits))
	for _, hit := range hits {
		if hit.ID == vectorindex.NoMatch {
			continue
		}
		caseID := strconv.FormatInt(hit.ID, 10)
		info := e.metadata[caseID]

		matches = append(matches, CaseMatch{
			CaseID:     caseID,
			Similarity: toScore(e.similarity(hit.Distance)),
			Distance:   float64(hit.Distance),
			Rank:       len(matches) + 1,
			Diagnosis:  orDefault(info.Diagnosis, unknownLabel),
			Symptoms:   orEmptyList(info.Symptoms),
			Summary:    orDefault(info.Summary, missingSummary),
			Outcome:    orDefault(info.Outcome, unknownLabel),
		})
	}

	e.logger.Info("SEARCH", "Similar cases found", map[string]interface{}{"count": len(matches), "top_k": topK})
	return matches
}

// CaseDetails returns the stored metadata for a case id.
func (e *Engine) CaseDetails(caseID string) (CaseMetadata, bool) {
	info, ok := e.metadata[caseID]
	return info, ok
}

// Embedding returns the raw stored vector for a case, if the embeddings matrix was loaded.
func (e *Engine) Embedding(caseID string) ([]float32, bool) {
	i, err := strconv.Atoi(caseID)
	if err != nil || i < 0 || i >= len(e.embeddings) {
		return nil, false
	}
	return e.embeddings[i], true
}

func (e *Engine) Stats() Stats {
	if e.index == nil {
		return Stats{Status: "not_initialized", CasesLoaded: len(e.metadata)}
	}
	return Stats{
		Status:           "initialized",
		TotalVectors:     e.index.Size(),
		Dimension:        e.index.Dimension(),
		IndexType:        e.index.Type(),
		CasesLoaded:      len(e.metadata),
		EmbeddingsLoaded: len(e.embeddings),
		Embedder:         e.embedder.Name(),
	}
}

func toScore(fraction float64) float64 {
	score := fraction * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orEmptyList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
