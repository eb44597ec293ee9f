// Package llm is the backend-neutral chat interface the reasoning adapter talks to.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NormalizeRole maps the alternate names some callers use for the model's turn.
func NormalizeRole(role string) string {
	switch role {
	case "model", "bot":
		return RoleAssistant
	case "":
		return RoleUser
	}
	return role
}

// Options are per-call overrides. Zero fields keep the backend's defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
	JSONSchema  map[string]interface{}
}

type Option func(*Options)

func WithTemperature(t float64) Option { return func(o *Options) { o.Temperature = t } }
func WithModel(model string) Option    { return func(o *Options) { o.Model = model } }
func WithMaxTokens(n int) Option       { return func(o *Options) { o.MaxTokens = n } }

// WithJSONSchema requests a reply matching schema. Backends without schema support degrade to
// plain JSON mode.
func WithJSONSchema(schema map[string]interface{}) Option {
	return func(o *Options) { o.JSONSchema = schema }
}

// Resolve applies opts over a backend's defaults.
func Resolve(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

type LLMProvider interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
	// Generate is Chat with a single user turn.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
	Name() string
}
