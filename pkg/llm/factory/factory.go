package factory

import (
	"fmt"
	"log"
	"strings"

	"medrag-be/pkg/llm"
	"medrag-be/pkg/llm/mock"
	"medrag-be/pkg/llm/ollama"
	"medrag-be/pkg/llm/openai"
)

// NewLLMProvider selects the reasoning backend once at startup. Hosted backends without an
// API key degrade to the mock backend.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	providerType = strings.ToLower(providerType)

	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "perplexity", "openai", "hf":
		if apiKey == "" {
			log.Printf("[WARN] No API key for LLM provider %s, using mock backend", providerType)
			return mock.NewProvider(0), nil
		}
		if baseURL == "" {
			baseURL = defaultBaseURL(providerType)
		}
		return openai.NewProvider(providerType, apiKey, baseURL, modelName), nil
	case "mock", "":
		return mock.NewProvider(0), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

func defaultBaseURL(providerType string) string {
	switch providerType {
	case "perplexity":
		return openai.PerplexityBaseURL
	case "hf":
		return openai.HuggingFaceBaseURL
	default:
		return openai.OpenAIBaseURL
	}
}
