package overtime

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateOvertimeRequest struct {
	EmployeeID       string `json:"employee_id"`
	Date             string `json:"date"`       // YYYY-MM-DD
	StartTime        string `json:"start_time"` // HH:MM
	EndTime          string `json:"end_time"`   // HH:MM, earlier than start_time means the next day
	DayType          string `json:"day_type"`
	BeyondFirstEight bool   `json:"beyond_first_eight"`
	Reason           string `json:"reason"`

	// Optional explicit values. OvertimeType and RateMultiplier are mutually
	// exclusive.
	TotalHours           *string `json:"total_hours,omitempty"`
	OvertimeType         *string `json:"overtime_type,omitempty"`
	RateMultiplier       *string `json:"rate_multiplier,omitempty"`
	HasNightDifferential *bool   `json:"has_night_differential,omitempty"`

	// Parsed by Validate
	date       time.Time
	start      time.Duration
	end        time.Duration
	totalHours *decimal.Decimal
	multiplier *decimal.Decimal
}

func (r *CreateOvertimeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}

	date, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	r.date = date

	start, startOK := validator.IsValidClock(r.StartTime)
	if !startOK {
		errs.Add("start_time", "start_time must be in HH:MM format")
	}
	end, endOK := validator.IsValidClock(r.EndTime)
	if !endOK {
		errs.Add("end_time", "end_time must be in HH:MM format")
	}
	if startOK && endOK && start == end {
		errs.Add("end_time", "end_time must differ from start_time")
	}
	r.start, r.end = start, end

	if !DayType(r.DayType).IsValid() {
		errs.Add("day_type", "day_type must be one of: regular, rest_day, special_day, scheduled_rest_day, regular_holiday")
	}

	if r.OvertimeType != nil && r.RateMultiplier != nil {
		errs.Add("rate_multiplier", "rate_multiplier cannot be combined with overtime_type")
	}
	if r.OvertimeType != nil {
		switch t := OvertimeType(*r.OvertimeType); {
		case !t.IsValid():
			errs.Add("overtime_type", "overtime_type is not a known category")
		case t == TypeOther:
			errs.Add("overtime_type", "enter rate_multiplier instead of overtime_type for rates outside the table")
		}
	}
	if r.RateMultiplier != nil {
		m, ok := validator.IsValidDecimal(*r.RateMultiplier)
		if !ok || !validator.InRange(m, MinMultiplier, MaxMultiplier) {
			errs.Add("rate_multiplier", "rate_multiplier must be a number between 1.0 and 10.0")
		} else {
			r.multiplier = &m
		}
	}

	if r.TotalHours != nil {
		h, ok := validator.IsValidDecimal(*r.TotalHours)
		switch {
		case !ok || !h.IsPositive():
			errs.Add("total_hours", "total_hours must be a positive number")
		case startOK && endOK && start != end && h.GreaterThan(r.SpanHours()):
			errs.Add("total_hours", "total_hours must not exceed the time between start_time and end_time")
		default:
			r.totalHours = &h
		}
	}

	if len(r.Reason) > 1000 {
		errs.Add("reason", "reason must not exceed 1000 characters")
	}

	return errs.Err()
}

// Window returns the overtime as instants in loc. An end clock at or before
// the start clock rolls into the next day. Only meaningful after Validate
// succeeds.
func (r *CreateOvertimeRequest) Window(loc *time.Location) (date, start, end time.Time) {
	y, m, d := r.date.Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, loc)
	start = date.Add(r.start)
	end = date.Add(r.end)
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return date, start, end
}

// SpanHours is the length of the window in hours, rounded to 2 decimals.
func (r *CreateOvertimeRequest) SpanHours() decimal.Decimal {
	span := r.end - r.start
	if span <= 0 {
		span += 24 * time.Hour
	}
	return decimal.NewFromInt(int64(span / time.Minute)).Div(decimal.NewFromInt(60)).Round(2)
}

// Hours is the requested total, defaulting to the whole window.
func (r *CreateOvertimeRequest) Hours() decimal.Decimal {
	if r.totalHours != nil {
		return *r.totalHours
	}
	return r.SpanHours()
}

// Multiplier returns the explicitly entered multiplier, if any.
func (r *CreateOvertimeRequest) Multiplier() *decimal.Decimal {
	return r.multiplier
}

type UpdateRateRequest struct {
	RateMultiplier string `json:"rate_multiplier"`
	Version        *int   `json:"version,omitempty"`

	multiplier decimal.Decimal
}

func (r *UpdateRateRequest) Validate() error {
	var errs validator.ValidationErrors
	m, ok := validator.IsValidDecimal(r.RateMultiplier)
	if !ok || !validator.InRange(m, MinMultiplier, MaxMultiplier) {
		errs.Add("rate_multiplier", "rate_multiplier must be a number between 1.0 and 10.0")
	}
	r.multiplier = m
	return errs.Err()
}

func (r *UpdateRateRequest) Multiplier() decimal.Decimal {
	return r.multiplier
}

type OvertimeRequestFilter struct {
	workflow.RequestFilter
	OvertimeType *string `json:"overtime_type,omitempty"`
}

func (f *OvertimeRequestFilter) Validate() error {
	var errs validator.ValidationErrors
	if err := f.RequestFilter.Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}
	if f.OvertimeType != nil && !OvertimeType(*f.OvertimeType).IsValid() {
		errs.Add("overtime_type", "overtime_type is not a known category")
	}
	return errs.Err()
}

type OvertimeRequestResponse struct {
	ID                     string            `json:"id"`
	EmployeeID             string            `json:"employee_id"`
	EmployeeName           *string           `json:"employee_name,omitempty"`
	DepartmentID           string            `json:"department_id"`
	Date                   string            `json:"date"`
	StartAt                time.Time         `json:"start_at"`
	EndAt                  time.Time         `json:"end_at"`
	TotalHours             decimal.Decimal   `json:"total_hours"`
	DayType                DayType           `json:"day_type"`
	OvertimeType           OvertimeType      `json:"overtime_type"`
	HasNightDifferential   bool              `json:"has_night_differential"`
	NightDifferentialHours decimal.Decimal   `json:"night_differential_hours"`
	RateMultiplier         decimal.Decimal   `json:"rate_multiplier"`
	RateEdited             bool              `json:"rate_edited"`
	RateEditedBy           *string           `json:"rate_edited_by,omitempty"`
	RateEditedAt           *time.Time        `json:"rate_edited_at,omitempty"`
	Reason                 string            `json:"reason"`
	Status                 workflow.Status   `json:"status"`
	DepartmentApproval     workflow.Approval `json:"department_approval"`
	HRDApproval            workflow.Approval `json:"hrd_approval"`
	AdminOverride          workflow.Approval `json:"admin_override"`
	Version                int               `json:"version"`
	CreatedBy              string            `json:"created_by"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

func NewOvertimeRequestResponse(r OvertimeRequest) OvertimeRequestResponse {
	return OvertimeRequestResponse{
		ID:                     r.ID,
		EmployeeID:             r.EmployeeID,
		EmployeeName:           r.EmployeeName,
		DepartmentID:           r.DepartmentID,
		Date:                   r.Date.Format("2006-01-02"),
		StartAt:                r.StartAt,
		EndAt:                  r.EndAt,
		TotalHours:             r.TotalHours,
		DayType:                r.DayType,
		OvertimeType:           r.OvertimeType,
		HasNightDifferential:   r.HasNightDifferential,
		NightDifferentialHours: r.NightDifferentialHours,
		RateMultiplier:         r.RateMultiplier,
		RateEdited:             r.RateEdited,
		RateEditedBy:           r.RateEditedBy,
		RateEditedAt:           r.RateEditedAt,
		Reason:                 r.Reason,
		Status:                 r.Status,
		DepartmentApproval:     r.DepartmentApproval,
		HRDApproval:            r.HRDApproval,
		AdminOverride:          r.AdminOverride,
		Version:                r.Version,
		CreatedBy:              r.CreatedBy,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

type ListOvertimeRequestResponse struct {
	workflow.Pagination
	Requests []OvertimeRequestResponse `json:"requests"`
}
