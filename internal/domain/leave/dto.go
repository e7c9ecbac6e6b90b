package leave

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateSLVLRequest struct {
	EmployeeID    string  `json:"employee_id"`
	LeaveType     string  `json:"leave_type"`
	StartDate     string  `json:"start_date"` // YYYY-MM-DD
	EndDate       string  `json:"end_date"`   // YYYY-MM-DD
	IsHalfDay     bool    `json:"is_half_day"`
	HalfDayPeriod *string `json:"half_day_period,omitempty"` // am, pm
	PayType       string  `json:"pay_type"`
	BankYear      *int    `json:"bank_year,omitempty"`
	Reason        string  `json:"reason"`

	// Parsed by Validate
	startDate time.Time
	endDate   time.Time
}

func (r *CreateSLVLRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}

	if !LeaveType(r.LeaveType).IsValid() {
		errs.Add("leave_type", "leave_type must be one of: sick, vacation")
	}

	if !PayType(r.PayType).IsValid() {
		errs.Add("pay_type", "pay_type must be one of: with_pay, non_pay")
	}

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
	}
	if startOK && endOK {
		if end.Before(start) {
			errs.Add("end_date", "end_date must not be before start_date")
		}
		r.startDate, r.endDate = start, end
	}

	if r.IsHalfDay {
		if startOK && endOK && !start.Equal(end) {
			errs.Add("is_half_day", "half-day leave must start and end on the same date")
		}
		if r.HalfDayPeriod == nil || !validator.IsInSlice(*r.HalfDayPeriod, []string{string(HalfDayAM), string(HalfDayPM)}) {
			errs.Add("half_day_period", "half_day_period must be one of: am, pm")
		}
	} else if r.HalfDayPeriod != nil {
		errs.Add("half_day_period", "half_day_period is only allowed for half-day leave")
	}

	if startOK && endOK && !end.Before(start) {
		days := r.TotalDays()
		if !validator.InRange(days, MinRequestDays, MaxRequestDays) {
			errs.Add("end_date", "leave must cover between 0.5 and 100 days")
		}
		if r.BankYear != nil {
			year := *r.BankYear
			if year < start.Year()-BankYearWindow || year > end.Year()+BankYearWindow {
				errs.Add("bank_year", fmt.Sprintf("bank_year must be within %d years of the leave dates", BankYearWindow))
			}
		}
	}

	if len(r.Reason) > 1000 {
		errs.Add("reason", "reason must not exceed 1000 characters")
	}

	return errs.Err()
}

// Dates returns the parsed range. Only meaningful after Validate succeeds.
func (r *CreateSLVLRequest) Dates() (time.Time, time.Time) {
	return r.startDate, r.endDate
}

// TotalDays counts calendar days in the range, or 0.5 for a half-day.
func (r *CreateSLVLRequest) TotalDays() decimal.Decimal {
	if r.IsHalfDay {
		return MinRequestDays
	}
	days := int64(r.endDate.Sub(r.startDate).Hours()/24) + 1
	return decimal.NewFromInt(days)
}

// ResolvedBankYear defaults the bank year to the start year.
func (r *CreateSLVLRequest) ResolvedBankYear() int {
	if r.BankYear != nil {
		return *r.BankYear
	}
	return r.startDate.Year()
}

type SLVLRequestFilter struct {
	workflow.RequestFilter
	LeaveType *string `json:"leave_type,omitempty"`
	PayType   *string `json:"pay_type,omitempty"`
}

func (f *SLVLRequestFilter) Validate() error {
	var errs validator.ValidationErrors
	if err := f.RequestFilter.Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}
	if f.LeaveType != nil && !LeaveType(*f.LeaveType).IsValid() {
		errs.Add("leave_type", "leave_type must be one of: sick, vacation")
	}
	if f.PayType != nil && !PayType(*f.PayType).IsValid() {
		errs.Add("pay_type", "pay_type must be one of: with_pay, non_pay")
	}
	return errs.Err()
}

type SLVLRequestResponse struct {
	ID            string            `json:"id"`
	EmployeeID    string            `json:"employee_id"`
	EmployeeName  *string           `json:"employee_name,omitempty"`
	DepartmentID  string            `json:"department_id"`
	LeaveType     LeaveType         `json:"leave_type"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date"`
	TotalDays     decimal.Decimal   `json:"total_days"`
	IsHalfDay     bool              `json:"is_half_day"`
	HalfDayPeriod *HalfDayPeriod    `json:"half_day_period,omitempty"`
	PayType       PayType           `json:"pay_type"`
	BankYear      int               `json:"bank_year"`
	Reason        string            `json:"reason"`
	Status        workflow.Status   `json:"status"`
	Approval      workflow.Approval `json:"approval"`
	AdminOverride workflow.Approval `json:"admin_override"`
	CreatedBy     string            `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func NewSLVLRequestResponse(r SLVLRequest) SLVLRequestResponse {
	return SLVLRequestResponse{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		DepartmentID:  r.DepartmentID,
		LeaveType:     r.LeaveType,
		StartDate:     r.StartDate.Format("2006-01-02"),
		EndDate:       r.EndDate.Format("2006-01-02"),
		TotalDays:     r.TotalDays,
		IsHalfDay:     r.IsHalfDay,
		HalfDayPeriod: r.HalfDayPeriod,
		PayType:       r.PayType,
		BankYear:      r.BankYear,
		Reason:        r.Reason,
		Status:        r.Status,
		Approval:      r.Approval,
		AdminOverride: r.AdminOverride,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type ListSLVLRequestResponse struct {
	workflow.Pagination
	Requests []SLVLRequestResponse `json:"requests"`
}

type AllocateRequest struct {
	EmployeeID string  `json:"employee_id"`
	LeaveType  string  `json:"leave_type"`
	Year       int     `json:"year"`
	Days       string  `json:"days"`
	Notes      *string `json:"notes,omitempty"`

	days decimal.Decimal
}

func (r *AllocateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if !LeaveType(r.LeaveType).IsValid() {
		errs.Add("leave_type", "leave_type must be one of: sick, vacation")
	}
	if r.Year <= 0 {
		errs.Add("year", "year must be a positive integer")
	}
	days, ok := validator.IsValidDecimal(r.Days)
	if !ok {
		errs.Add("days", "days must be a number")
	} else if !days.IsPositive() || days.GreaterThan(MaxAllocation) {
		errs.Add("days", "days must be greater than 0 and at most 100")
	} else {
		r.days = days
	}
	if r.Notes != nil && len(*r.Notes) > 500 {
		errs.Add("notes", "notes must not exceed 500 characters")
	}

	return errs.Err()
}

func (r *AllocateRequest) Key() BankKey {
	return BankKey{EmployeeID: r.EmployeeID, LeaveType: LeaveType(r.LeaveType), Year: r.Year}
}

// Amount returns the parsed days. Only meaningful after Validate succeeds.
func (r *AllocateRequest) Amount() decimal.Decimal {
	return r.days
}

// BalanceQuery selects one bank.
type BalanceQuery struct {
	EmployeeID string `json:"employee_id"`
	LeaveType  string `json:"leave_type"`
	Year       int    `json:"year"`
}

func (q *BalanceQuery) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(q.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if !LeaveType(q.LeaveType).IsValid() {
		errs.Add("leave_type", "leave_type must be one of: sick, vacation")
	}
	if q.Year <= 0 {
		errs.Add("year", "year must be a positive integer")
	}
	return errs.Err()
}

func (q *BalanceQuery) Key() BankKey {
	return BankKey{EmployeeID: q.EmployeeID, LeaveType: LeaveType(q.LeaveType), Year: q.Year}
}

// Debit is a commit of approved leave days against a bank.
type Debit struct {
	Key       BankKey
	Days      decimal.Decimal
	RequestID string
	ActorID   string
}

type BalanceResponse struct {
	EmployeeID    string          `json:"employee_id"`
	LeaveType     LeaveType       `json:"leave_type"`
	Year          int             `json:"year"`
	TotalDays     decimal.Decimal `json:"total_days"`
	UsedDays      decimal.Decimal `json:"used_days"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
}

func NewBalanceResponse(b Bank) BalanceResponse {
	return BalanceResponse{
		EmployeeID:    b.EmployeeID,
		LeaveType:     b.LeaveType,
		Year:          b.Year,
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.RemainingDays,
	}
}

type BankAdjustmentResponse struct {
	ID        string          `json:"id"`
	Kind      AdjustmentKind  `json:"kind"`
	Days      decimal.Decimal `json:"days"`
	RequestID *string         `json:"request_id,omitempty"`
	ActorID   string          `json:"actor_id"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewBankAdjustmentResponse(a BankAdjustment) BankAdjustmentResponse {
	return BankAdjustmentResponse{
		ID:        a.ID,
		Kind:      a.Kind,
		Days:      a.Days,
		RequestID: a.RequestID,
		ActorID:   a.ActorID,
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
}
