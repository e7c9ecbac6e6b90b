package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

// Recorder writes workflow events to the outbox. It runs inside the
// transition's transaction, so an event exists exactly when the status
// change was committed.
type Recorder struct {
	audit.OutboxRepository
	now func() time.Time
}

func NewRecorder(outboxRepository audit.OutboxRepository) *Recorder {
	return &Recorder{OutboxRepository: outboxRepository, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, event workflow.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow event: %w", err)
	}

	return r.OutboxRepository.Insert(ctx, audit.OutboxEvent{
		ID:            event.ID,
		AggregateKind: string(event.Kind),
		AggregateID:   event.RequestID,
		EventType:     audit.EventTypeTransition,
		Payload:       payload,
		Status:        audit.StatusPending,
		CreatedAt:     r.now(),
	})
}
