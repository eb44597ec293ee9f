// Package mock is an offline LLM backend returning canned differential diagnoses.
package mock

import (
	"context"
	"strings"
	"time"

	"medrag-be/pkg/llm"
)

type Provider struct {
	// Delay simulates backend latency.
	Delay time.Duration
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(delay time.Duration) *Provider {
	return &Provider{Delay: delay}
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	var prompt strings.Builder
	for _, m := range history {
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}
	return p.Generate(ctx, prompt.String(), options...)
}

// Generate picks a canned answer from the symptoms mentioned in the prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if strings.Contains(strings.ToLower(prompt), "chest pain") {
		return chestPainResponse, nil
	}
	return defaultResponse, nil
}

const chestPainResponse = `{
  "differential_diagnosis": [
    {"condition": "Gastroesophageal Reflux Disease (GERD)", "confidence": 78.2, "description": "Acid reflux causing chest discomfort, often related to meals", "icd10": "K21.9"},
    {"condition": "Costochondritis", "confidence": 65.4, "description": "Inflammation of cartilage connecting ribs to breastbone", "icd10": "M94.0"},
    {"condition": "Anxiety-related chest pain", "confidence": 45.8, "description": "Non-cardiac chest pain associated with anxiety or stress", "icd10": "F41.9"}
  ],
  "recommended_actions": [
    {"text": "Order ECG to rule out cardiac causes", "priority": "high", "category": "imaging"},
    {"text": "Consider proton pump inhibitor trial", "priority": "medium", "category": "medication"},
    {"text": "Chest X-ray if respiratory symptoms present", "priority": "medium", "category": "imaging"}
  ],
  "follow_up_questions": [
    {"text": "Does the pain worsen with deep breathing or movement?"},
    {"text": "Is the pain related to meals or lying down?"},
    {"text": "Any associated shortness of breath or palpitations?"}
  ]
}`

const defaultResponse = `{
  "differential_diagnosis": [
    {"condition": "Viral upper respiratory infection", "confidence": 72.5, "description": "Common viral infection affecting upper respiratory tract", "icd10": "J06.9"},
    {"condition": "Allergic rhinitis", "confidence": 58.3, "description": "Allergic reaction causing nasal and respiratory symptoms", "icd10": "J30.9"}
  ],
  "recommended_actions": [
    {"text": "Supportive care with rest and fluids", "priority": "medium", "category": "lifestyle"},
    {"text": "Consider antihistamine if allergic component suspected", "priority": "low", "category": "medication"}
  ],
  "follow_up_questions": [
    {"text": "How long have symptoms been present?"},
    {"text": "Any known allergies or triggers?"}
  ]
}`
