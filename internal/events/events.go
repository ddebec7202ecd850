package events

import (
	"context"
	"time"

	"github.com/sjperalta/insurance-api/pkg/logger"
)

// Event types published by the services
const (
	PolicyCreated       = "policy.created"
	PolicyCancelled     = "policy.cancelled"
	PolicyTransferred   = "policy.transferred"
	PolicyExpired       = "policy.expired"
	PaymentRecorded     = "payment.recorded"
	PaymentConfirmed    = "payment.confirmed"
	PaymentFailed       = "payment.failed"
	ChequeCreated       = "cheque.created"
	ChequeStatusChanged = "cheque.status_changed"
	ChequeReturned      = "cheque.returned"
	ExpenseCreated      = "expense.created"
)

// Event is a domain fact emitted after a committed mutation
type Event struct {
	Type       string      `json:"type"`
	EntityID   uint        `json:"entity_id"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType string, entityID uint, payload interface{}) Event {
	return Event{Type: eventType, EntityID: entityID, Payload: payload, OccurredAt: time.Now()}
}

// Publisher delivers domain events. Publishing is best effort: callers log
// failures and never roll back a committed mutation because of them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the log when no broker is configured
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	logger.Info("domain event", "type", event.Type, "entity_id", event.EntityID)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
