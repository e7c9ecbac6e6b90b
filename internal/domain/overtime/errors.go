package overtime

import "errors"

var (
	ErrOvertimeRequestNotFound = errors.New("Overtime request not found")
	ErrVersionConflict         = errors.New("Overtime request was modified concurrently")
)
