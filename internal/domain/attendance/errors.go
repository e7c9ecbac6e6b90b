package attendance

import "errors"

// Attendance domain errors
var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrAttendancePosted   = errors.New("attendance record is posted and can no longer change")
	ErrVersionConflict    = errors.New("attendance record was modified concurrently")
)
