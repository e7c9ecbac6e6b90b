package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/adjustment"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var insufficient *leave.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		BadRequest(w, insufficient.Error(), map[string]string{
			"requested": insufficient.Requested.String(),
			"remaining": insufficient.Remaining.String(),
		})
		return
	}

	var conflict *workflow.StateConflictError
	if errors.As(err, &conflict) {
		Conflict(w, conflict.Error())
		return
	}

	var unauthorized *workflow.AuthorizationError
	if errors.As(err, &unauthorized) {
		Forbidden(w, unauthorized.Error())
		return
	}

	switch {
	// Workflow
	case errors.Is(err, workflow.ErrStateConflict):
		Conflict(w, err.Error())
	case errors.Is(err, workflow.ErrUnauthorized):
		Forbidden(w, err.Error())
	case errors.Is(err, workflow.ErrRequestNotFound):
		NotFound(w, "Request not found")

	// Attendance
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrAttendancePosted):
		Conflict(w, "Attendance record is posted")
	case errors.Is(err, attendance.ErrVersionConflict):
		Conflict(w, "Attendance record was modified concurrently")

	// Requests
	case errors.Is(err, overtime.ErrOvertimeRequestNotFound):
		NotFound(w, "Overtime request not found")
	case errors.Is(err, overtime.ErrVersionConflict):
		Conflict(w, "Overtime request was modified concurrently")
	case errors.Is(err, leave.ErrSLVLRequestNotFound):
		NotFound(w, "SLVL request not found")
	case errors.Is(err, adjustment.ErrAdjustmentRequestNotFound):
		NotFound(w, "Adjustment request not found")

	// Ledger
	case errors.Is(err, leave.ErrInsufficientBalance):
		BadRequest(w, "Insufficient leave balance", nil)
	case errors.Is(err, leave.ErrBankNotFound):
		NotFound(w, "Leave bank not found")

	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
