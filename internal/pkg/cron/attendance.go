package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
)

// AttendanceJobs contains attendance-related cron jobs
type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	loc               *time.Location
	now               func() time.Time
}

func NewAttendanceJobs(attendanceService attendance.AttendanceService, loc *time.Location) *AttendanceJobs {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceJobs{
		attendanceService: attendanceService,
		loc:               loc,
		now:               time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("sweep_previous_day_attendance", 1*time.Hour, j.SweepPreviousDay)
}

// SweepPreviousDay recomputes yesterday's attendance once the night-shift
// tails are in. Only runs during the 02:00 hour, company time.
func (j *AttendanceJobs) SweepPreviousDay(ctx context.Context) error {
	now := j.now().In(j.loc)
	if now.Hour() != 2 {
		return nil
	}

	_, err := j.attendanceService.Sweep(ctx, now.AddDate(0, 0, -1))
	return err
}
