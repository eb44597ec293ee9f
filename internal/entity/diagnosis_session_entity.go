package entity

import (
	"time"

	"medrag-be/pkg/reasoning"

	"github.com/google/uuid"
)

type DiagnosisSessionStatus string

const (
	DiagnosisSessionProcessing DiagnosisSessionStatus = "processing"
	DiagnosisSessionCompleted  DiagnosisSessionStatus = "completed"
	DiagnosisSessionError      DiagnosisSessionStatus = "error"
)

// DiagnosisSession is the durable record of a diagnosis request and its outcome summary.
// The full result lives in the result store.
type DiagnosisSession struct {
	Id            uuid.UUID
	PatientId     *uuid.UUID
	Complaints    []string
	Symptoms      []string
	Vitals        *reasoning.Vitals
	History       map[string]interface{}
	TopK          int
	Status        DiagnosisSessionStatus
	TopCondition  string
	TopConfidence float64
	FallbackUsed  bool
	ErrorMessage  string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
