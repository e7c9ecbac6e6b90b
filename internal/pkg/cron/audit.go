package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/audit"
)

// AuditJobs relays workflow audit events from the outbox.
type AuditJobs struct {
	relay    audit.RelayService
	interval time.Duration
}

func NewAuditJobs(relay audit.RelayService, interval time.Duration) *AuditJobs {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &AuditJobs{relay: relay, interval: interval}
}

func (j *AuditJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("relay_audit_outbox", j.interval, j.RelayOutbox)
}

func (j *AuditJobs) RelayOutbox(ctx context.Context) error {
	_, err := j.relay.RelayPending(ctx)
	return err
}
