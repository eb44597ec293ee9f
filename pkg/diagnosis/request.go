package diagnosis

import (
	"fmt"
	"strings"

	"medrag-be/pkg/apperror"
	"medrag-be/pkg/reasoning"
)

const (
	MinTopK     = 1
	MaxTopK     = 20
	DefaultTopK = 5

	tripletTopK = 10
)

type Request struct {
	PatientID  string                 `json:"patientId,omitempty"`
	Complaints []string               `json:"complaints"`
	Symptoms   []string               `json:"symptoms"`
	Vitals     *reasoning.Vitals      `json:"vitals,omitempty"`
	History    map[string]interface{} `json:"history,omitempty"`
	TopK       int                    `json:"top_k"`
}

// Validate rejects requests before any job state exists.
func (r Request) Validate() error {
	fields := map[string]string{}
	if !hasContent(r.Complaints) && !hasContent(r.Symptoms) {
		fields["complaints"] = "at least one complaint or symptom is required"
	}
	if r.TopK < MinTopK || r.TopK > MaxTopK {
		fields["top_k"] = fmt.Sprintf("must be between %d and %d", MinTopK, MaxTopK)
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid diagnosis request", fields)
	}
	return nil
}

// QueryText joins complaints then symptoms for the similarity search.
func (r Request) QueryText() string {
	parts := make([]string, 0, len(r.Complaints)+len(r.Symptoms))
	parts = append(parts, r.Complaints...)
	parts = append(parts, r.Symptoms...)
	return strings.Join(parts, ", ")
}

func (r Request) PatientData() reasoning.PatientData {
	return reasoning.PatientData{
		Complaints: r.Complaints,
		Symptoms:   r.Symptoms,
		Vitals:     r.Vitals,
		History:    r.History,
	}
}

func hasContent(items []string) bool {
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
