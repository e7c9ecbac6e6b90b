package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

type AttendanceService interface {
	IngestPunches(ctx context.Context, req IngestPunchesRequest) (IngestResult, error)
	Recompute(ctx context.Context, req RecomputeRequest) (AttendanceResponse, error)
	Sweep(ctx context.Context, date time.Time) (SweepResult, error)
	Post(ctx context.Context, req PostRequest, actor workflow.Actor) (int64, error)
	List(ctx context.Context, filter AttendanceFilter, actor workflow.Actor) (ListAttendanceResponse, error)
	Feed
}

// Feed receives the day-level effect of approved requests.
type Feed interface {
	ApplyDayAdjustment(ctx context.Context, adj DayAdjustment) error
}
