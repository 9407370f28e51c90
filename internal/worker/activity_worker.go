package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/asset-desk/internal/events"
	"github.com/spec-kit/asset-desk/internal/observability"
)

// ActivityWorker records ticket activity: every event is logged and counted.
type ActivityWorker struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// StartActivityWorker subscribes the worker to every ticket event.
func StartActivityWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ActivityWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ActivityWorker{logger: logger.Named("activity"), metrics: metrics}
	if dispatcher == nil {
		return w
	}
	for _, eventType := range events.AllTicketEvents {
		dispatcher.Subscribe(eventType, w.handle)
	}
	return w
}

func (w *ActivityWorker) handle(_ context.Context, event events.Event) error {
	w.metrics.RecordTicketEvent(string(event.Type))

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID),
		zap.Time("at", event.Timestamp),
	}
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		fields = append(fields,
			zap.String("supplier_id", payload.SupplierID),
			zap.Int("sla_hours", payload.SLAHours))
	case events.TicketStatusChangedPayload:
		fields = append(fields,
			zap.String("from", string(payload.OldStatus)),
			zap.String("to", string(payload.NewStatus)),
			zap.Bool("audit_applied", payload.AuditApplied))
		if !payload.AuditApplied {
			w.logger.Warn("status change without audit entry", fields...)
			return nil
		}
	case events.TicketUpdatedPayload:
		fields = append(fields, zap.Strings("fields", payload.Fields))
	case events.TicketInteractionAddedPayload:
		fields = append(fields,
			zap.String("interaction_id", payload.InteractionID),
			zap.String("interaction_type", string(payload.Type)))
	case events.TicketDuplicatedPayload:
		fields = append(fields,
			zap.String("source_ticket_id", payload.SourceTicketID),
			zap.Bool("deadline_carried_over", payload.DeadlineCarryOver))
	}
	w.logger.Info("ticket activity", fields...)
	return nil
}
