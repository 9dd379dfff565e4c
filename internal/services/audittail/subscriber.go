// Package audittail is a small consumer for the audit fanout: it
// drains the trail queue and prints the events in a human-readable
// form. Real durability of the trail belongs to whatever sink the
// operator binds to the exchange; this one exists for local
// deployments and debugging.
package audittail

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-pos/internal/audit"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
)

// Subscriber consumes audit events from the trail queue.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewSubscriber creates an audit trail subscriber.
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
	}
}

// Start consumes until the context is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Audit tail started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.handleEvent)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Subscriber) handleEvent(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event audit.Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse audit event", requestID, err, nil)
		return fmt.Errorf("failed to parse audit event: %w", err)
	}

	fmt.Printf("[%s] actor %d: %s %s/%d\n",
		event.OccurredAt.Format("2006-01-02 15:04:05"),
		event.ActorID,
		event.Action,
		event.EntityType,
		event.EntityID,
	)

	s.logger.Info("audit_event_received", "Audit event displayed", requestID, map[string]interface{}{
		"audit_id":    event.ID,
		"actor_id":    event.ActorID,
		"action":      event.Action,
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID,
	})
	return nil
}

// Close stops the subscriber.
func (s *Subscriber) Close() error {
	return s.consumer.Close()
}
