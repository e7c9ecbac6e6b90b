package audit

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
)

type RelayConfig struct {
	BatchSize    int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Relay moves due outbox events to the sinks. Sinks are tried in order and
// the first failure stops delivery of that event; it is retried later with
// exponential backoff, skipping the sinks that already accepted it.
type Relay struct {
	audit.OutboxRepository
	tx    database.Transactor
	sinks []Sink
	cfg   RelayConfig
	now   func() time.Time
}

func NewRelay(tx database.Transactor, outboxRepository audit.OutboxRepository, cfg RelayConfig, sinks ...Sink) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 15 * time.Second
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		cfg.MaxBackoff = cfg.RetryBackoff
	}
	return &Relay{
		OutboxRepository: outboxRepository,
		tx:               tx,
		sinks:            sinks,
		cfg:              cfg,
		now:              time.Now,
	}
}

func (r *Relay) RelayPending(ctx context.Context) (audit.RelayStats, error) {
	var stats audit.RelayStats

	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := r.now()
		events, err := r.OutboxRepository.ClaimPending(ctx, r.cfg.BatchSize, now)
		if err != nil {
			return fmt.Errorf("failed to claim outbox events: %w", err)
		}
		stats.Claimed = len(events)

		for _, event := range events {
			delivered, sinkErr := r.deliver(ctx, event)
			if sinkErr != nil {
				stats.Failed++
				next := now.Add(r.Backoff(event.RetryCount + 1))
				slog.Error("outbox event delivery failed",
					"outbox_id", event.ID,
					"event_type", event.EventType,
					"aggregate_id", event.AggregateID,
					"retry_count", event.RetryCount+1,
					"delivered_sinks", delivered,
					"next_retry_at", next,
					"error", sinkErr,
				)
				if err := r.OutboxRepository.MarkFailed(ctx, event.ID, sinkErr.Error(), next, delivered); err != nil {
					return fmt.Errorf("failed to mark outbox event failed: %w", err)
				}
				continue
			}

			if err := r.OutboxRepository.MarkSent(ctx, event.ID, now); err != nil {
				return fmt.Errorf("failed to mark outbox event sent: %w", err)
			}
			stats.Sent++
		}
		return nil
	})
	if err != nil {
		return audit.RelayStats{}, err
	}

	if stats.Claimed > 0 {
		slog.Info("outbox relay pass completed",
			"claimed", stats.Claimed,
			"sent", stats.Sent,
			"failed", stats.Failed,
		)
	}
	return stats, nil
}

// deliver returns every sink that holds the event after this attempt.
func (r *Relay) deliver(ctx context.Context, event audit.OutboxEvent) ([]string, error) {
	delivered := slices.Clone(event.DeliveredSinks)
	for _, sink := range r.sinks {
		if slices.Contains(delivered, sink.Name()) {
			continue
		}
		if err := sink.Send(ctx, event); err != nil {
			return delivered, fmt.Errorf("%s: %w", sink.Name(), err)
		}
		delivered = append(delivered, sink.Name())
	}
	return delivered, nil
}

// Backoff returns the delay before attempt number retry, doubling from
// RetryBackoff up to MaxBackoff.
func (r *Relay) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := r.cfg.RetryBackoff
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return d
}
