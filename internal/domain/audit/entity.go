package audit

import (
	"time"
)

// OutboxStatus is the delivery state of an outbox event.
type OutboxStatus string

const (
	StatusPending OutboxStatus = "pending"
	StatusSent    OutboxStatus = "sent"
	StatusFailed  OutboxStatus = "failed"
)

// EventTypeTransition is the event type of a workflow status change.
const EventTypeTransition = "request.transitioned"

// OutboxEvent is an audit event waiting to be relayed. It is written in the
// same transaction as the change it describes.
type OutboxEvent struct {
	ID             string
	AggregateKind  string
	AggregateID    string
	EventType      string
	Payload        []byte
	Status         OutboxStatus
	RetryCount     int
	NextRetryAt    *time.Time
	LastError      *string
	// DeliveredSinks names the sinks that already accepted the event, so a
	// retry only resends to the rest.
	DeliveredSinks []string
	CreatedAt      time.Time
	SentAt         *time.Time
}
