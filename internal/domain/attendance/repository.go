package attendance

import (
	"context"
	"time"
)

// PunchRepository - interface for raw_punches table
type PunchRepository interface {
	// InsertBatch stores punches, ignoring ones already stored, and returns
	// the number actually inserted.
	InsertBatch(ctx context.Context, punches []RawPunch) (int64, error)
	// ListWindow returns the employee's punches with from <= punched_at < to,
	// ordered by punched_at then state.
	ListWindow(ctx context.Context, employeeID string, from, to time.Time) ([]RawPunch, error)
	// ListPunchedEmployees returns the distinct employees with a punch in
	// [from, to).
	ListPunchedEmployees(ctx context.Context, from, to time.Time) ([]string, error)
}

// AttendanceRepository - interface for processed_attendances table
type AttendanceRepository interface {
	// LockDay serializes writers of one employee-day until the transaction ends.
	LockDay(ctx context.Context, day DayRef) error
	GetByEmployeeDate(ctx context.Context, day DayRef) (ProcessedAttendance, error)
	// Upsert writes the computed fields. An existing row is only updated while
	// its version equals record.Version and it is not posted; otherwise
	// ErrVersionConflict or ErrAttendancePosted is returned.
	Upsert(ctx context.Context, record ProcessedAttendance) (ProcessedAttendance, error)
	// ApplyAdjustment adds an approved request's contribution to the day,
	// creating a placeholder row when none exists yet. It reports false when
	// the day is already posted and was left unchanged.
	ApplyAdjustment(ctx context.Context, adj DayAdjustment) (bool, error)
	Post(ctx context.Context, req PostRequest) (int64, error)
	List(ctx context.Context, filter AttendanceFilter) ([]ProcessedAttendance, int64, error)
}
