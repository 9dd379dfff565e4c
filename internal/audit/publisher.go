package audit

import (
	"context"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
)

// AMQPEmitter publishes audit events to the audit fanout exchange.
// Publish failures are logged and dropped; delivery and durability of
// the trail are the downstream sink's problem.
type AMQPEmitter struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewAMQPEmitter creates an emitter on top of a messaging publisher.
func NewAMQPEmitter(publisher *messaging.Publisher, log *logger.Logger) *AMQPEmitter {
	return &AMQPEmitter{
		publisher: publisher,
		logger:    log,
	}
}

func (e *AMQPEmitter) Emit(ctx context.Context, event Event) {
	if err := e.publisher.PublishAudit(ctx, event); err != nil {
		e.logger.Error("audit_emit_failed",
			"Failed to publish audit event",
			"", err, map[string]interface{}{
				"audit_id":    event.ID,
				"action":      event.Action,
				"entity_type": event.EntityType,
				"entity_id":   event.EntityID,
			})
	}
}
