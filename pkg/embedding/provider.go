package embedding

import "context"

// EmbeddingProvider turns free text into a fixed-dimension vector.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
}
