package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one structured audit record: who did what to which entity,
// with before/after snapshots. Events describe durable state changes
// only; failed operations never emit.
type Event struct {
	ID         string      `json:"id"`
	ActorID    int64       `json:"actor_id"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   int64       `json:"entity_id"`
	Before     interface{} `json:"before,omitempty"`
	After      interface{} `json:"after,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEvent builds an audit event with a fresh id and timestamp.
func NewEvent(actorID int64, action, entityType string, entityID int64, before, after interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		OccurredAt: time.Now().UTC(),
	}
}

// Emitter delivers audit events to the trail. Emission is best-effort:
// implementations log failures but never surface them, so the business
// transaction that produced the event is never rolled back by a sink
// outage.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Nop discards all events. Useful for tests and hosts without a broker.
type Nop struct{}

func (Nop) Emit(ctx context.Context, event Event) {}

// Recorder captures events in memory so tests can assert on them.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ctx context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
