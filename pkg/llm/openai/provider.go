// Package openai talks to any backend exposing the OpenAI chat completions API
// (OpenAI itself, Perplexity, the Hugging Face router).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medrag-be/pkg/llm"
)

const (
	OpenAIBaseURL      = "https://api.openai.com/v1"
	PerplexityBaseURL  = "https://api.perplexity.ai"
	HuggingFaceBaseURL = "https://router.huggingface.co/v1"
)

const (
	requestTimeout   = 120 * time.Second
	maxResponseBytes = 4 << 20
)

type Provider struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client

	retries    int
	retryDelay time.Duration
}

var _ llm.LLMProvider = &Provider{}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string                 `json:"name,omitempty"`
	Schema map[string]interface{} `json:"schema"`
}

type completion struct {
	Choices []struct {
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// APIError is a non-200 reply. Rate limits and overload are retried before it surfaces.
type APIError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Backend, e.StatusCode, e.Body)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// NewProvider builds a client. name only labels the backend; baseURL must include any version prefix.
func NewProvider(name, apiKey, baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return &Provider{
		name:       name,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		client:     &http.Client{Timeout: requestTimeout},
		retries:    2,
		retryDelay: time.Second,
	}
}

func (p *Provider) Name() string {
	return p.name + ":" + p.model
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Resolve(llm.Options{Model: p.model, MaxTokens: 1000, Temperature: 0.1}, options...)
	payload, err := json.Marshal(p.requestFor(history, opts))
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * p.retryDelay):
			}
		}

		text, err := p.post(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.retryable() {
			break
		}
	}
	return "", lastErr
}

func (p *Provider) requestFor(history []llm.Message, opts llm.Options) chatRequest {
	messages := make([]llm.Message, len(history))
	for i, m := range history {
		messages[i] = llm.Message{Role: llm.NormalizeRole(m.Role), Content: m.Content}
	}

	req := chatRequest{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.JSONSchema != nil {
		req.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "response", Schema: opts.JSONSchema},
		}
	}
	return req
}

func (p *Provider) post(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%s read body: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Backend: p.name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out completion
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%s decode reply: %w", p.name, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s api returned error: %s", p.name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return out.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
