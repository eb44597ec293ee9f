package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// RandomProvider is the degraded mode used when no embedding model is configured.
// Vectors are pseudo-random but seeded from the text, so the same query always maps
// to the same vector and search stays reproducible.
type RandomProvider struct {
	Dims int
}

func NewRandomProvider(dimension int) *RandomProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &RandomProvider{Dims: dimension}
}

func (p *RandomProvider) Name() string   { return "random" }
func (p *RandomProvider) Dimension() int { return p.Dims }

func (p *RandomProvider) Generate(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	values := make([]float32, p.Dims)
	for i := range values {
		values[i] = rng.Float32()
	}
	return values, nil
}
