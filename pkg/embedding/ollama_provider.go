package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "all-minilm"
)

// OllamaProvider embeds through a local Ollama server's /api/embed.
type OllamaProvider struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

type ollamaEmbedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func NewOllamaProvider(baseURL, model string, dimension int) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dims:    dimension,
		client:  newHTTPClient(),
	}
}

func (p *OllamaProvider) Name() string   { return "ollama:" + p.model }
func (p *OllamaProvider) Dimension() int { return p.dims }

func (p *OllamaProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbedResponse
	status, err := postJSON(ctx, p.client, p.baseURL+"/api/embed", "",
		ollamaEmbedRequest{Model: p.model, Input: []string{text}, Truncate: true}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama embed: %s", out.Error)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d", status)
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: no vectors returned")
	}

	vec := out.Embeddings[0]
	if err := checkDimension(p.Name(), len(vec), p.dims); err != nil {
		return nil, err
	}
	return vec, nil
}
