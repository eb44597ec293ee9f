package nats

import (
	"context"
	"errors"
	"testing"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/events"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMsg struct {
	jetstream.Msg
	data    []byte
	outcome string
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return "medrag.events.TEST" }
func (m *fakeMsg) Ack() error      { m.outcome = "ack"; return nil }
func (m *fakeMsg) Nak() error      { m.outcome = "nak"; return nil }
func (m *fakeMsg) Term() error     { m.outcome = "term"; return nil }

func TestBusDispatch(t *testing.T) {
	valid, err := encode(events.New(events.PatientCreated, map[string]interface{}{"patient_id": "p1"}))
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		handler EventHandler
		want    string
	}{
		{"handled", valid, func(context.Context, events.Event) error { return nil }, "ack"},
		{"handler error", valid, func(context.Context, events.Event) error { return errors.New("db down") }, "nak"},
		{"undecodable", []byte("{"), func(context.Context, events.Event) error {
			t.Fatal("handler must not run")
			return nil
		}, "term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bus{logger: logger.NewNopLogger()}
			msg := &fakeMsg{data: tt.data}
			b.dispatch(msg, tt.handler)
			assert.Equal(t, tt.want, msg.outcome)
		})
	}
}
