package nats

import (
	"testing"
	"time"

	"medrag-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	in := events.BaseEvent{
		ID:         "evt-1",
		Type:       events.DiagnosisCompleted,
		Data:       map[string]interface{}{"session_id": "s1", "top_condition": "Migraine"},
		OccurredAt: at,
	}

	raw, err := encode(in)
	require.NoError(t, err)
	out, err := decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", out.EventID())
	assert.Equal(t, events.DiagnosisCompleted, out.EventType())
	assert.Equal(t, "s1", out.Payload()["session_id"])
	assert.True(t, at.Equal(out.Timestamp()))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "medrag.events.PATIENT_CREATED", Subject(events.PatientCreated))
	assert.Equal(t, "medrag.events.>", Subject(">"))
}
