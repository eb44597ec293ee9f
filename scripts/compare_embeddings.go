//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"medrag-be/internal/config"
	"medrag-be/pkg/embedding"
)

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Println("--- Initializing Providers ---")
	configured, err := embedding.NewEmbeddingProvider(cfg.Ai.EmbeddingProvider, cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel, cfg.Ai.EmbeddingApiKey, cfg.Ai.EmbeddingDimension)
	if err != nil {
		log.Fatalf("embedding provider: %v", err)
	}
	baseline := embedding.NewRandomProvider(cfg.Ai.EmbeddingDimension)

	text1 := "Fever, productive cough and shortness of breath for five days"
	text2 := "Febrile patient with wet cough and dyspnea since last week"
	text3 := "Unilateral throbbing headache with sensitivity to light"

	generate := func(p embedding.EmbeddingProvider) [][]float32 {
		out := make([][]float32, 0, 3)
		for i, t := range []string{text1, text2, text3} {
			v, err := p.Generate(ctx, t)
			if err != nil {
				log.Printf("Error %s (Text %d): %v", p.Name(), i+1, err)
				return nil
			}
			out = append(out, v)
		}
		fmt.Printf("[%s] Dimensions: %d\n", p.Name(), len(out[0]))
		return out
	}

	fmt.Println("\n--- Generating Embeddings ---")
	results := map[string][][]float32{
		configured.Name(): generate(configured),
		baseline.Name():   generate(baseline),
	}

	fmt.Println("\n--- Semantic Similarity Comparison ---")
	fmt.Println("(similar pair should score above the unrelated pair)")
	for name, v := range results {
		if v == nil {
			continue
		}
		fmt.Printf("\n[%s]\n", name)
		fmt.Printf("  similar:   %.4f\n", cosineSimilarity(v[0], v[1]))
		fmt.Printf("  unrelated: %.4f\n", cosineSimilarity(v[0], v[2]))
	}
}
