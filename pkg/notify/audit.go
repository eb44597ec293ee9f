package notify

import (
	"context"

	"medrag-be/internal/pkg/logger"
	pkgEvents "medrag-be/pkg/events"
	pktNats "medrag-be/pkg/nats"
)

const auditDurable = "medrag-audit"

type subscriber interface {
	Subscribe(ctx context.Context, pattern, durable string, handler pktNats.EventHandler) error
}

// AuditLog writes every bus event to the audit logger.
type AuditLog struct {
	subscriber subscriber
	logger     logger.ILogger
}

func NewAuditLog(bus *pktNats.Bus, logger logger.ILogger) *AuditLog {
	a := &AuditLog{logger: logger}
	if bus != nil {
		a.subscriber = bus
	}
	return a
}

// Start subscribes to all events. Without a subscriber it does nothing.
func (a *AuditLog) Start(ctx context.Context) error {
	if a.subscriber == nil {
		return nil
	}
	return a.subscriber.Subscribe(ctx, ">", auditDurable, a.Handle)
}

func (a *AuditLog) Handle(ctx context.Context, event pkgEvents.Event) error {
	fields := map[string]interface{}{
		"type":        event.EventType(),
		"occurred_at": event.Timestamp(),
	}
	for k, v := range event.Payload() {
		fields[k] = v
	}

	if event.EventType() == pkgEvents.DiagnosisFailed {
		a.logger.Warn("AUDIT", "Diagnosis failed", fields)
		return nil
	}
	a.logger.Info("AUDIT", "Event received", fields)
	return nil
}
