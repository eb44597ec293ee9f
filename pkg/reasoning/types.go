// Package reasoning turns retrieved evidence into a prompt, asks the configured LLM backend for a
// differential diagnosis and normalises whatever comes back.
package reasoning

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Category string

const (
	CategoryImaging    Category = "imaging"
	CategoryLab        Category = "lab"
	CategoryMedication Category = "medication"
	CategoryReferral   Category = "referral"
	CategoryLifestyle  Category = "lifestyle"
)

type Vitals struct {
	HR   *int     `json:"hr,omitempty"`
	BP   string   `json:"bp,omitempty"`
	Temp *float64 `json:"temp,omitempty"`
	RR   *int     `json:"rr,omitempty"`
	SpO2 *int     `json:"spo2,omitempty"`
}

func (v *Vitals) Empty() bool {
	return v == nil || (v.HR == nil && v.BP == "" && v.Temp == nil && v.RR == nil && v.SpO2 == nil)
}

// PatientData is the clinical input of one diagnosis request.
type PatientData struct {
	Complaints []string               `json:"complaints"`
	Symptoms   []string               `json:"symptoms"`
	Vitals     *Vitals                `json:"vitals,omitempty"`
	History    map[string]interface{} `json:"history,omitempty"`
}

type Condition struct {
	Condition   string  `json:"condition"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
	ICD10       string  `json:"icd10,omitempty"`
}

type Action struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Category Category `json:"category"`
}

type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Payload is the normalised backend answer.
type Payload struct {
	DifferentialDiagnosis []Condition `json:"differentialDiagnosis"`
	RecommendedActions    []Action    `json:"recommendedActions"`
	FollowUpQuestions     []Question  `json:"followUpQuestions"`
}

// rawPayload is the wire shape the backend is asked to produce.
type rawPayload struct {
	DifferentialDiagnosis []Condition `json:"differential_diagnosis"`
	RecommendedActions    []struct {
		Text     string `json:"text"`
		Priority string `json:"priority"`
		Category string `json:"category"`
	} `json:"recommended_actions"`
	FollowUpQuestions []struct {
		Text string `json:"text"`
	} `json:"follow_up_questions"`
}

// ResponseSchema is sent to backends that support structured output.
var ResponseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"differential_diagnosis": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"condition":   map[string]interface{}{"type": "string"},
					"confidence":  map[string]interface{}{"type": "number"},
					"description": map[string]interface{}{"type": "string"},
					"icd10":       map[string]interface{}{"type": "string"},
				},
				"required": []string{"condition", "confidence", "description"},
			},
		},
		"recommended_actions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text":     map[string]interface{}{"type": "string"},
					"priority": map[string]interface{}{"type": "string"},
					"category": map[string]interface{}{"type": "string"},
				},
				"required": []string{"text", "priority", "category"},
			},
		},
		"follow_up_questions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"text": map[string]interface{}{"type": "string"}},
				"required":   []string{"text"},
			},
		},
	},
	"required": []string{"differential_diagnosis", "recommended_actions", "follow_up_questions"},
}
