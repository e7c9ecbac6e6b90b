package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
)

type outboxRepositoryImpl struct {
	db *database.DB
}

func NewOutboxRepository(db *database.DB) audit.OutboxRepository {
	return &outboxRepositoryImpl{db: db}
}

func (r *outboxRepositoryImpl) Insert(ctx context.Context, event audit.OutboxEvent) error {
	if len(event.Payload) == 0 {
		return audit.ErrEmptyPayload
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO outbox_events (
			id, aggregate_kind, aggregate_id, event_type, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := q.Exec(ctx, query,
		event.ID, event.AggregateKind, event.AggregateID, event.EventType,
		event.Payload, event.Status, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepositoryImpl) ClaimPending(ctx context.Context, limit int, now time.Time) ([]audit.OutboxEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, aggregate_kind, aggregate_id, event_type, payload, status,
			   retry_count, next_retry_at, last_error, delivered_sinks, created_at, sent_at
		FROM outbox_events
		WHERE status IN ('pending', 'failed')
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]audit.OutboxEvent, 0, limit)
	for rows.Next() {
		var e audit.OutboxEvent
		if err := rows.Scan(
			&e.ID, &e.AggregateKind, &e.AggregateID, &e.EventType, &e.Payload, &e.Status,
			&e.RetryCount, &e.NextRetryAt, &e.LastError, &e.DeliveredSinks, &e.CreatedAt, &e.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *outboxRepositoryImpl) MarkSent(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE outbox_events SET
			status = 'sent',
			sent_at = $2,
			last_error = NULL,
			updated_at = NOW()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return audit.ErrOutboxEventNotFound
	}
	return nil
}

func (r *outboxRepositoryImpl) MarkFailed(ctx context.Context, id string, reason string, nextRetryAt time.Time, delivered []string) error {
	q := GetQuerier(ctx, r.db)
	if delivered == nil {
		delivered = []string{}
	}

	tag, err := q.Exec(ctx, `
		UPDATE outbox_events SET
			status = 'failed',
			retry_count = retry_count + 1,
			last_error = LEFT($2, 500),
			next_retry_at = $3,
			delivered_sinks = $4,
			updated_at = NOW()
		WHERE id = $1
	`, id, reason, nextRetryAt, delivered)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return audit.ErrOutboxEventNotFound
	}
	return nil
}
