package audit

import (
	"context"
	"time"
)

type OutboxRepository interface {
	Insert(ctx context.Context, event OutboxEvent) error
	// ClaimPending locks up to limit events that are due for delivery. The
	// locks are held until the enclosing transaction ends; rows locked by
	// another relay are skipped.
	ClaimPending(ctx context.Context, limit int, now time.Time) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	// MarkFailed schedules a retry and stores the sinks that have accepted
	// the event so far.
	MarkFailed(ctx context.Context, id string, reason string, nextRetryAt time.Time, delivered []string) error
}
