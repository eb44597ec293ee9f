package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	maxDeliver = 5
	ackWait    = 30 * time.Second
)

// EventHandler processes one event. A returned error makes the bus redeliver it.
type EventHandler func(ctx context.Context, event events.Event) error

// Bus publishes lifecycle events to JetStream and runs durable consumers over one connection.
type Bus struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

// NewBus connects and makes sure the event stream exists. A stream setup failure is logged
// only, since the stream may exist already with another config.
func NewBus(url string, log logger.ILogger) (*Bus, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ensureStream(ctx, js); err != nil {
		log.Warn("NATS", "Could not ensure event stream", map[string]interface{}{"stream": StreamName, "error": err.Error()})
	}

	return &Bus{nc: nc, js: js, logger: log}, nil
}

func (b *Bus) Publish(ctx context.Context, event events.Event) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	subject := Subject(event.EventType())
	var opts []jetstream.PublishOpt
	if id := event.EventID(); id != "" {
		opts = append(opts, jetstream.WithMsgID(id))
	}
	if _, err := b.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches handler to a durable consumer filtered by pattern (an event type, or ">"
// for all). Events published while the process was down are still delivered.
func (b *Bus) Subscribe(ctx context.Context, pattern, durable string, handler EventHandler) error {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: Subject(pattern),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) { b.dispatch(msg, handler) })
	if err != nil {
		return fmt.Errorf("consume %s: %w", durable, err)
	}

	b.mu.Lock()
	b.consumes = append(b.consumes, cc)
	b.mu.Unlock()

	b.logger.Info("NATS", "Consumer started", map[string]interface{}{"subject": Subject(pattern), "durable": durable})
	return nil
}

func (b *Bus) dispatch(msg jetstream.Msg, handler EventHandler) {
	event, err := decode(msg.Data())
	if err != nil {
		// poison message
		b.logger.Error("NATS", "Undecodable event dropped", map[string]interface{}{"subject": msg.Subject(), "error": err.Error()})
		_ = msg.Term()
		return
	}

	if err := handler(context.Background(), event); err != nil {
		b.logger.Warn("NATS", "Handler failed, event will be redelivered", map[string]interface{}{
			"subject": msg.Subject(), "event_id": event.EventID(), "error": err.Error(),
		})
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Close stops consumers and drains the connection.
func (b *Bus) Close() {
	b.mu.Lock()
	for _, cc := range b.consumes {
		cc.Stop()
	}
	b.consumes = nil
	b.mu.Unlock()

	if b.nc != nil {
		_ = b.nc.Drain()
	}
}
