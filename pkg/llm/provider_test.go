package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	defaults := Options{Model: "base", Temperature: 0.7, MaxTokens: 500}

	assert.Equal(t, defaults, Resolve(defaults))

	got := Resolve(defaults, WithModel("override"), WithTemperature(0.1), WithJSONSchema(map[string]interface{}{"type": "object"}))
	assert.Equal(t, "override", got.Model)
	assert.Equal(t, 0.1, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	assert.NotNil(t, got.JSONSchema)
}

func TestNormalizeRole(t *testing.T) {
	tests := map[string]string{
		"model":     RoleAssistant,
		"bot":       RoleAssistant,
		"":          RoleUser,
		"system":    RoleSystem,
		"assistant": RoleAssistant,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRole(in), in)
	}
}
