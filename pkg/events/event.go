// Package events defines the lifecycle events put on the message bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	DiagnosisStarted   = "DIAGNOSIS_STARTED"
	DiagnosisCompleted = "DIAGNOSIS_COMPLETED"
	DiagnosisFailed    = "DIAGNOSIS_FAILED"
	PatientCreated     = "PATIENT_CREATED"
	FeedbackSubmitted  = "FEEDBACK_SUBMITTED"
)

type Event interface {
	// EventID is unique per event and lets the bus drop duplicate publishes.
	EventID() string
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	ID         string
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventID() string                 { return e.ID }
func (e BaseEvent) EventType() string               { return e.Type }
func (e BaseEvent) Payload() map[string]interface{} { return e.Data }
func (e BaseEvent) Timestamp() time.Time            { return e.OccurredAt }

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
