package dto

import (
	"time"

	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/reasoning"

	"github.com/google/uuid"
)

type StartDiagnosisRequest struct {
	PatientId  *uuid.UUID             `json:"patientId"`
	Complaints []string               `json:"complaints"`
	Symptoms   []string               `json:"symptoms"`
	Vitals     *reasoning.Vitals      `json:"vitals"`
	History    map[string]interface{} `json:"history"`
	TopK       *int                   `json:"top_k"`
}

type StartDiagnosisResponse struct {
	SessionId uuid.UUID            `json:"sessionId"`
	Status    diagnosis.StatusKind `json:"status"`
}

type ExportDiagnosisRequest struct {
	Format          string   `json:"format" validate:"required,oneof=json pdf hl7 fhir"`
	IncludeActions  *bool    `json:"includeActions"`
	SelectedActions []string `json:"selectedActions"`
}

type ExportDiagnosisResponse struct {
	Format      string            `json:"format"`
	Data        *diagnosis.Result `json:"data,omitempty"`
	DownloadUrl string            `json:"downloadUrl,omitempty"`
}

type FeedbackRequest struct {
	Rating           string `json:"rating" validate:"required,oneof=positive negative"`
	Comments         string `json:"comments" validate:"max=2000"`
	CorrectDiagnosis string `json:"correctDiagnosis" validate:"max=200"`
}

type FeedbackResponse struct {
	FeedbackId uuid.UUID `json:"feedbackId"`
}

type DiagnosisSummaryResponse struct {
	SessionId    uuid.UUID  `json:"sessionId"`
	Status       string     `json:"status"`
	PatientId    *uuid.UUID `json:"patientId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	Summary      string     `json:"summary"`
	TopDiagnosis *string    `json:"topDiagnosis"`
	Confidence   *float64   `json:"confidence"`
}
