// Package notify turns domain changes into bus events.
package notify

import (
	"context"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/diagnosis"
	pkgEvents "medrag-be/pkg/events"
	pktNats "medrag-be/pkg/nats"

	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Publisher abstracts lifecycle event publishing.
type Publisher interface {
	diagnosis.Observer
	PublishPatientCreated(ctx context.Context, patientId uuid.UUID, name string)
	PublishFeedbackSubmitted(ctx context.Context, feedbackId uuid.UUID, sessionId, rating, correctDiagnosis string)
}

type bus interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// NatsPublisher implements Publisher using NATS. With no connection every call is a no-op.
type NatsPublisher struct {
	publisher bus
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Bus, logger logger.ILogger) *NatsPublisher {
	p := &NatsPublisher{logger: logger}
	if publisher != nil {
		p.publisher = publisher
	}
	return p
}

func (p *NatsPublisher) JobAccepted(sessionID string, req diagnosis.Request) {
	p.publishAsync(pkgEvents.New(pkgEvents.DiagnosisStarted, map[string]interface{}{
		"session_id":  sessionID,
		"patient_id":  req.PatientID,
		"complaints":  req.Complaints,
		"symptoms":    req.Symptoms,
		"top_k":       req.TopK,
		"entity_type": "diagnosis_session",
		"entity_id":   sessionID,
	}))
}

// JobProgress is not published; progress goes to the websocket hub.
func (p *NatsPublisher) JobProgress(status diagnosis.Status) {}

func (p *NatsPublisher) JobFinished(sessionID string, entry diagnosis.Entry) {
	data := map[string]interface{}{
		"session_id":  sessionID,
		"entity_type": "diagnosis_session",
		"entity_id":   sessionID,
		"finished_at": entry.FinishedAt,
	}

	if entry.Status == diagnosis.StatusError {
		data["phase"] = entry.Phase
		data["error"] = entry.Error
		p.publishAsync(pkgEvents.New(pkgEvents.DiagnosisFailed, data))
		return
	}

	if top, ok := entry.Result.TopCondition(); ok {
		data["top_condition"] = top.Condition
		data["top_confidence"] = top.Confidence
	}
	data["fallback_used"] = entry.Result.FallbackUsed
	data["duration_sec"] = entry.Result.Session.DurationSec
	p.publishAsync(pkgEvents.New(pkgEvents.DiagnosisCompleted, data))
}

// PublishPatientCreated emits PATIENT_CREATED.
func (p *NatsPublisher) PublishPatientCreated(ctx context.Context, patientId uuid.UUID, name string) {
	p.publish(ctx, pkgEvents.New(pkgEvents.PatientCreated, map[string]interface{}{
		"patient_id":  patientId.String(),
		"name":        name,
		"entity_type": "patient",
		"entity_id":   patientId.String(),
	}))
}

// PublishFeedbackSubmitted emits FEEDBACK_SUBMITTED.
func (p *NatsPublisher) PublishFeedbackSubmitted(ctx context.Context, feedbackId uuid.UUID, sessionId, rating, correctDiagnosis string) {
	p.publish(ctx, pkgEvents.New(pkgEvents.FeedbackSubmitted, map[string]interface{}{
		"feedback_id":       feedbackId.String(),
		"session_id":        sessionId,
		"rating":            rating,
		"correct_diagnosis": correctDiagnosis,
		"entity_type":       "feedback",
		"entity_id":         feedbackId.String(),
	}))
}

// publishAsync is used from worker goroutines, which must not wait on the bus.
func (p *NatsPublisher) publishAsync(evt pkgEvents.BaseEvent) {
	if p.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		p.publish(ctx, evt)
	}()
}

func (p *NatsPublisher) publish(ctx context.Context, evt pkgEvents.BaseEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+evt.Type+" event", map[string]interface{}{"error": err.Error()})
	}
}
