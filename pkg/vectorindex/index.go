// Package vectorindex holds the nearest-neighbour indexes the similarity engine queries.
//
// Two backends exist: a flat (exact, brute-force) index loaded from a msgpack snapshot
// built offline, and a pgvector-backed index reading the case_embeddings table.
// Both return exactly k hits, padding with NoMatch when fewer vectors exist, so callers
// see the same shape regardless of backend.
package vectorindex

import (
	"context"
	"fmt"
)

// NoMatch marks an empty result slot.
const NoMatch int64 = -1

type Metric string

const (
	MetricL2           Metric = "l2"     // squared euclidean, ascending
	MetricInnerProduct Metric = "ip"     // inner product, descending
	MetricCosine       Metric = "cosine" // 1 - cosine similarity, ascending
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricL2, MetricInnerProduct, MetricCosine:
		return Metric(s), nil
	case "":
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unsupported index metric: %s", s)
	}
}

// Hit is one result slot: the stored case index and the metric's native distance.
type Hit struct {
	ID       int64
	Distance float32
}

type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Size() int
	Dimension() int
	Metric() Metric
	Type() string
}

// SimilarityFunc maps a native distance to a similarity fraction.
type SimilarityFunc func(distance float32) float64

// SimilarityFor returns the distance-to-similarity conversion for a metric.
//
// l2 and cosine use 1 - d. For l2 this is only meaningful on normalised vectors with
// small distances; it is kept because the stored cases were indexed that way.
// Inner product scores are already similarities.
func SimilarityFor(metric Metric) SimilarityFunc {
	switch metric {
	case MetricInnerProduct:
		return func(d float32) float64 { return float64(d) }
	default:
		return func(d float32) float64 { return 1 - float64(d) }
	}
}
