package audit

import "context"

// RelayStats summarizes one relay pass.
type RelayStats struct {
	Claimed int
	Sent    int
	Failed  int
}

type RelayService interface {
	RelayPending(ctx context.Context) (RelayStats, error)
}
