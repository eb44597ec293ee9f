package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/llm"

	"github.com/google/uuid"
)

var errEmptyDiagnosis = errors.New("response has no differential diagnosis")

// Adapter wraps an LLM backend and never fails: backend errors produce the fallback payload.
type Adapter struct {
	provider llm.LLMProvider
	logger   logger.ILogger
	newID    func() string
}

func NewAdapter(provider llm.LLMProvider, log logger.ILogger) *Adapter {
	return &Adapter{
		provider: provider,
		logger:   log,
		newID:    func() string { return uuid.NewString() },
	}
}

func (a *Adapter) Backend() string {
	if a.provider == nil {
		return "none"
	}
	return a.provider.Name()
}

// Generate asks the backend for a diagnosis. The bool reports whether the fallback was used.
func (a *Adapter) Generate(ctx context.Context, prompt string) (Payload, bool) {
	payload, err := a.generate(ctx, prompt)
	if err != nil {
		appErr := apperror.ReasoningBackend(err)
		a.logger.Error("REASONING", "Reasoning backend failed, using fallback", map[string]interface{}{
			"backend": a.Backend(),
			"error":   appErr.Error(),
		})
		return a.Fallback(), true
	}
	return payload, false
}

func (a *Adapter) generate(ctx context.Context, prompt string) (Payload, error) {
	if a.provider == nil {
		return Payload{}, errors.New("no reasoning backend configured")
	}

	text, err := a.provider.Generate(ctx, prompt,
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(1000),
		llm.WithJSONSchema(ResponseSchema),
	)
	if err != nil {
		return Payload{}, err
	}

	var raw rawPayload
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return Payload{}, err
	}
	return a.normalize(raw)
}

func (a *Adapter) normalize(raw rawPayload) (Payload, error) {
	out := Payload{
		DifferentialDiagnosis: []Condition{},
		RecommendedActions:    []Action{},
		FollowUpQuestions:     []Question{},
	}

	for _, c := range raw.DifferentialDiagnosis {
		name := strings.TrimSpace(c.Condition)
		if name == "" {
			continue
		}
		out.DifferentialDiagnosis = append(out.DifferentialDiagnosis, Condition{
			Condition:   name,
			Confidence:  clampConfidence(c.Confidence),
			Description: c.Description,
			ICD10:       c.ICD10,
		})
	}
	if len(out.DifferentialDiagnosis) == 0 {
		return Payload{}, errEmptyDiagnosis
	}

	for _, act := range raw.RecommendedActions {
		if strings.TrimSpace(act.Text) == "" {
			continue
		}
		out.RecommendedActions = append(out.RecommendedActions, Action{
			ID:       a.newID(),
			Text:     act.Text,
			Priority: parsePriority(act.Priority),
			Category: parseCategory(act.Category),
		})
	}
	for _, q := range raw.FollowUpQuestions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		out.FollowUpQuestions = append(out.FollowUpQuestions, Question{ID: a.newID(), Text: q.Text})
	}
	return out, nil
}

// Fallback is the fixed answer used whenever the backend cannot produce one.
func (a *Adapter) Fallback() Payload {
	return Payload{
		DifferentialDiagnosis: []Condition{{
			Condition:   "Further evaluation needed",
			Confidence:  50.0,
			Description: "Unable to generate diagnosis due to API error",
			ICD10:       "Z00.00",
		}},
		RecommendedActions: []Action{{
			ID:       a.newID(),
			Text:     "Consult with healthcare provider",
			Priority: PriorityHigh,
			Category: CategoryReferral,
		}},
		FollowUpQuestions: []Question{{
			ID:   a.newID(),
			Text: "Please provide more detailed symptoms",
		}},
	}
}

// extractJSON strips markdown fences and any chatter around the outermost object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func parsePriority(s string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

func parseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryImaging, CategoryLab, CategoryMedication, CategoryReferral, CategoryLifestyle:
		return c
	default:
		return CategoryReferral
	}
}
