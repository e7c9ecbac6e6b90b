package adjustment

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateAdjustmentRequest struct {
	Kind       string  `json:"kind"`
	EmployeeID string  `json:"employee_id"`
	Date       string  `json:"date"` // YYYY-MM-DD
	Hours      *string `json:"hours,omitempty"`
	TripCount  *int    `json:"trip_count,omitempty"`
	Amount     *string `json:"amount,omitempty"`
	Reason     string  `json:"reason"`

	// Parsed by Validate
	date   time.Time
	hours  decimal.Decimal
	amount decimal.Decimal
}

func (r *CreateAdjustmentRequest) Validate() error {
	var errs validator.ValidationErrors

	kind := workflow.Kind(r.Kind)
	if !IsKind(kind) {
		errs.Add("kind", "kind must be one of: travel_order, offset, retro, official_business")
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	date, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	r.date = date

	r.hours = decimal.Zero
	hoursRequired := kind == workflow.KindTravelOrder || kind == workflow.KindOffset
	switch {
	case r.Hours != nil:
		h, ok := validator.IsValidDecimal(*r.Hours)
		if !ok || !h.IsPositive() || h.GreaterThan(MaxHours) {
			errs.Add("hours", "hours must be greater than 0 and at most 24")
		} else {
			r.hours = h
		}
	case hoursRequired:
		errs.Add("hours", "hours is required for "+r.Kind)
	}

	if r.TripCount != nil {
		if kind != workflow.KindTravelOrder {
			errs.Add("trip_count", "trip_count is only allowed for travel_order")
		} else if *r.TripCount < 0 || *r.TripCount > 20 {
			errs.Add("trip_count", "trip_count must be between 0 and 20")
		}
	}

	r.amount = decimal.Zero
	switch {
	case kind == workflow.KindRetro && r.Amount == nil:
		errs.Add("amount", "amount is required for retro")
	case kind != workflow.KindRetro && r.Amount != nil:
		errs.Add("amount", "amount is only allowed for retro")
	case r.Amount != nil:
		a, ok := validator.IsValidDecimal(*r.Amount)
		if !ok || !a.IsPositive() {
			errs.Add("amount", "amount must be a positive number")
		} else {
			r.amount = a
		}
	}

	if kind == workflow.KindRetro && validator.IsEmpty(r.Reason) {
		errs.Add("reason", "reason is required for retro")
	}
	if len(r.Reason) > 1000 {
		errs.Add("reason", "reason must not exceed 1000 characters")
	}

	return errs.Err()
}

// Parsed returns the validated values. Only meaningful after Validate succeeds.
func (r *CreateAdjustmentRequest) Parsed() (date time.Time, hours, amount decimal.Decimal) {
	return r.date, r.hours, r.amount
}

// Trips defaults a travel order to one trip.
func (r *CreateAdjustmentRequest) Trips() int {
	if workflow.Kind(r.Kind) != workflow.KindTravelOrder {
		return 0
	}
	if r.TripCount == nil {
		return 1
	}
	return *r.TripCount
}

type AdjustmentRequestFilter struct {
	workflow.RequestFilter
	Kind *string `json:"kind,omitempty"`
}

func (f *AdjustmentRequestFilter) Validate() error {
	var errs validator.ValidationErrors
	if err := f.RequestFilter.Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}
	if f.Kind != nil && !IsKind(workflow.Kind(*f.Kind)) {
		errs.Add("kind", "kind must be one of: travel_order, offset, retro, official_business")
	}
	return errs.Err()
}

type AdjustmentRequestResponse struct {
	ID            string            `json:"id"`
	Kind          workflow.Kind     `json:"kind"`
	EmployeeID    string            `json:"employee_id"`
	EmployeeName  *string           `json:"employee_name,omitempty"`
	DepartmentID  string            `json:"department_id"`
	Date          string            `json:"date"`
	Hours         decimal.Decimal   `json:"hours"`
	TripCount     int               `json:"trip_count"`
	Amount        *decimal.Decimal  `json:"amount,omitempty"`
	Reason        string            `json:"reason"`
	Status        workflow.Status   `json:"status"`
	Approval      workflow.Approval `json:"approval"`
	AdminOverride workflow.Approval `json:"admin_override"`
	CreatedBy     string            `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func NewAdjustmentRequestResponse(r AdjustmentRequest) AdjustmentRequestResponse {
	var amount *decimal.Decimal
	if r.Kind == workflow.KindRetro {
		a := r.Amount
		amount = &a
	}
	return AdjustmentRequestResponse{
		ID:            r.ID,
		Kind:          r.Kind,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		DepartmentID:  r.DepartmentID,
		Date:          r.Date.Format("2006-01-02"),
		Hours:         r.Hours,
		TripCount:     r.TripCount,
		Amount:        amount,
		Reason:        r.Reason,
		Status:        r.Status,
		Approval:      r.Approval,
		AdminOverride: r.AdminOverride,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type ListAdjustmentRequestResponse struct {
	workflow.Pagination
	Requests []AdjustmentRequestResponse `json:"requests"`
}
