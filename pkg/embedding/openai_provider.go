package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// OpenAIProvider talks to any OpenAI-compatible /embeddings endpoint.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIProvider(apiKey, baseURL, model string, dimension int) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dims:    dimension,
		client:  newHTTPClient(),
	}
}

func (p *OpenAIProvider) Name() string   { return "openai:" + p.model }
func (p *OpenAIProvider) Dimension() int { return p.dims }

func (p *OpenAIProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	var result embeddingResponse
	status, err := postJSON(ctx, p.client, p.baseURL+"/embeddings", p.apiKey,
		embeddingRequest{Model: p.model, Input: []string{text}}, &result)
	if err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("embedding api error: %s", result.Error.Message)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("embedding api error: status %d", status)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embedding api returned no data")
	}

	vec := result.Data[0].Embedding
	if err := checkDimension(p.Name(), len(vec), p.dims); err != nil {
		return nil, err
	}
	return vec, nil
}
