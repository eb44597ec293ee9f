package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePatientRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	DateOfBirth string   `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Diagnosis   string   `json:"diagnosis"`
	Medications []string `json:"medications"`
	FileId      *string  `json:"fileId"`
}

type UpdatePatientRequest struct {
	Id          uuid.UUID
	Name        string   `json:"name" validate:"required,max=200"`
	DateOfBirth string   `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Diagnosis   string   `json:"diagnosis"`
	Medications []string `json:"medications"`
	FileId      *string  `json:"fileId"`
}

type ListPatientsRequest struct {
	Skip   int    `query:"skip" validate:"min=0"`
	Limit  int    `query:"limit" validate:"min=0,max=500"`
	Search string `query:"search"`
}

type PatientResponse struct {
	PatientId   uuid.UUID  `json:"patientId"`
	Name        string     `json:"name"`
	DateOfBirth string     `json:"dob,omitempty"`
	Diagnosis   string     `json:"diagnosis"`
	Medications []string   `json:"medications"`
	FileId      *string    `json:"fileId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type ListPatientsResponse struct {
	Patients []*PatientResponse `json:"patients"`
	Total    int64              `json:"total"`
	Skip     int                `json:"skip"`
	Limit    int                `json:"limit"`
}

type PatientSessionsRequest struct {
	PatientId uuid.UUID
	Status    string `query:"status" validate:"omitempty,oneof=processing completed error"`
}

type PatientSessionResponse struct {
	SessionId     uuid.UUID  `json:"sessionId"`
	Status        string     `json:"status"`
	TopDiagnosis  *string    `json:"topDiagnosis"`
	Confidence    *float64   `json:"confidence"`
	FallbackUsed  bool       `json:"fallbackUsed"`
	FeedbackCount int64      `json:"feedbackCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

type PatientSessionsResponse struct {
	PatientId uuid.UUID                 `json:"patientId"`
	Sessions  []*PatientSessionResponse `json:"sessions"`
}
