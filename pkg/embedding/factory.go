package embedding

import "fmt"

// NewEmbeddingProvider picks one implementation by name. It is called once at startup.
func NewEmbeddingProvider(providerType, baseURL, model, apiKey string, dimension int) (EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(baseURL, model, dimension), nil
	case "openai":
		return NewOpenAIProvider(apiKey, baseURL, model, dimension), nil
	case "random", "":
		return NewRandomProvider(dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
