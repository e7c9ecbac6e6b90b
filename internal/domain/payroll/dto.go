package payroll

import (
	"cmp"
	"slices"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// MaxPeriodDays bounds one summary.
const MaxPeriodDays = 62

type SummaryQuery struct {
	StartDate   string   `json:"start_date"` // YYYY-MM-DD
	EndDate     string   `json:"end_date"`   // YYYY-MM-DD
	EmployeeIDs []string `json:"employee_ids,omitempty"`

	period Period
}

func (q *SummaryQuery) Validate() error {
	var errs validator.ValidationErrors

	from, fromOK := validator.IsValidDate(q.StartDate)
	if !fromOK {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	}
	to, toOK := validator.IsValidDate(q.EndDate)
	if !toOK {
		errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
	}
	if fromOK && toOK {
		switch {
		case to.Before(from):
			errs.Add("end_date", "end_date must not be before start_date")
		case to.Sub(from).Hours()/24 >= MaxPeriodDays:
			errs.Add("end_date", "period must not exceed 62 days")
		}
	}
	for _, id := range q.EmployeeIDs {
		if !validator.IsValidUUID(id) {
			errs.Add("employee_ids", "employee_ids must contain valid UUIDs")
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	q.period = Period{From: from, To: to, EmployeeIDs: q.EmployeeIDs}
	return nil
}

// Period returns the parsed query. Only meaningful after Validate succeeds.
func (q *SummaryQuery) Period() Period {
	return q.period
}

type OvertimeBucketResponse struct {
	OvertimeType           overtime.OvertimeType `json:"overtime_type"`
	RateMultiplier         decimal.Decimal       `json:"rate_multiplier"`
	Hours                  decimal.Decimal       `json:"hours"`
	NightDifferentialHours decimal.Decimal       `json:"night_differential_hours"`
	Requests               int                   `json:"requests"`
}

type EmployeeSummary struct {
	EmployeeID   string           `json:"employee_id"`
	EmployeeCode *string          `json:"employee_code,omitempty"`
	FullName     *string          `json:"full_name,omitempty"`
	PayType      employee.PayType `json:"pay_type,omitempty"`

	DaysPresent      int             `json:"days_present"`
	HoursWorked      decimal.Decimal `json:"hours_worked"`
	LateMinutes      int             `json:"late_minutes"`
	UndertimeMinutes int             `json:"undertime_minutes"`
	Anomalies        int             `json:"anomalies"`
	UnpostedDays     int             `json:"unposted_days"`

	OvertimeHours   decimal.Decimal          `json:"overtime_hours"`
	OvertimeBuckets []OvertimeBucketResponse `json:"overtime_buckets"`

	WithPayLeaveDays decimal.Decimal `json:"with_pay_leave_days"`
	NonPayLeaveDays  decimal.Decimal `json:"non_pay_leave_days"`

	TravelOrderHours     decimal.Decimal `json:"travel_order_hours"`
	TripCount            int             `json:"trip_count"`
	OffsetHours          decimal.Decimal `json:"offset_hours"`
	OfficialBusinessDays int             `json:"official_business_days"`
	RetroAmount          decimal.Decimal `json:"retro_amount"`
}

func newEmployeeSummary(employeeID string) *EmployeeSummary {
	return &EmployeeSummary{
		EmployeeID:       employeeID,
		HoursWorked:      decimal.Zero,
		OvertimeHours:    decimal.Zero,
		OvertimeBuckets:  []OvertimeBucketResponse{},
		WithPayLeaveDays: decimal.Zero,
		NonPayLeaveDays:  decimal.Zero,
		TravelOrderHours: decimal.Zero,
		OffsetHours:      decimal.Zero,
		RetroAmount:      decimal.Zero,
	}
}

type SummaryResponse struct {
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Employees []EmployeeSummary `json:"employees"`
}

// SummaryBuilder merges the aggregates of one period per employee.
type SummaryBuilder struct {
	byEmployee map[string]*EmployeeSummary
	order      []string
}

func NewSummaryBuilder() *SummaryBuilder {
	return &SummaryBuilder{byEmployee: map[string]*EmployeeSummary{}}
}

func (b *SummaryBuilder) get(employeeID string) *EmployeeSummary {
	s, ok := b.byEmployee[employeeID]
	if !ok {
		s = newEmployeeSummary(employeeID)
		b.byEmployee[employeeID] = s
		b.order = append(b.order, employeeID)
	}
	return s
}

func (b *SummaryBuilder) AddAttendance(totals []AttendanceTotals) {
	for _, t := range totals {
		s := b.get(t.EmployeeID)
		s.DaysPresent = t.DaysPresent
		s.HoursWorked = t.HoursWorked
		s.LateMinutes = t.LateMinutes
		s.UndertimeMinutes = t.UndertimeMinutes
		s.Anomalies = t.Anomalies
		s.UnpostedDays = t.UnpostedDays
	}
}

func (b *SummaryBuilder) AddOvertime(buckets []OvertimeBucket) {
	for _, o := range buckets {
		s := b.get(o.EmployeeID)
		s.OvertimeHours = s.OvertimeHours.Add(o.Hours)
		s.OvertimeBuckets = append(s.OvertimeBuckets, OvertimeBucketResponse{
			OvertimeType:           o.OvertimeType,
			RateMultiplier:         o.RateMultiplier,
			Hours:                  o.Hours,
			NightDifferentialHours: o.NightDifferentialHours,
			Requests:               o.Requests,
		})
	}
}

func (b *SummaryBuilder) AddLeave(totals []LeaveTotals) {
	for _, l := range totals {
		s := b.get(l.EmployeeID)
		s.WithPayLeaveDays = s.WithPayLeaveDays.Add(l.WithPayDays)
		s.NonPayLeaveDays = s.NonPayLeaveDays.Add(l.NonPayDays)
	}
}

func (b *SummaryBuilder) AddAdjustments(totals []AdjustmentTotals) {
	for _, a := range totals {
		s := b.get(a.EmployeeID)
		s.TravelOrderHours = s.TravelOrderHours.Add(a.TravelOrderHours)
		s.TripCount += a.TripCount
		s.OffsetHours = s.OffsetHours.Add(a.OffsetHours)
		s.OfficialBusinessDays += a.OfficialBusinessDays
		s.RetroAmount = s.RetroAmount.Add(a.RetroAmount)
	}
}

// EmployeeIDs lists every employee seen so far.
func (b *SummaryBuilder) EmployeeIDs() []string {
	return append([]string{}, b.order...)
}

// AddEmployees fills in the identity of each summarized employee.
func (b *SummaryBuilder) AddEmployees(employees []employee.Employee) {
	for _, e := range employees {
		s, ok := b.byEmployee[e.ID]
		if !ok {
			continue
		}
		code, name := e.EmployeeCode, e.FullName
		s.EmployeeCode = &code
		s.FullName = &name
		s.PayType = e.PayType
	}
}

// Build returns the summaries ordered by employee code, then id.
func (b *SummaryBuilder) Build() []EmployeeSummary {
	out := make([]EmployeeSummary, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.byEmployee[id])
	}
	sortSummaries(out)
	return out
}

func sortSummaries(s []EmployeeSummary) {
	slices.SortFunc(s, func(a, b EmployeeSummary) int {
		var ac, bc string
		if a.EmployeeCode != nil {
			ac = *a.EmployeeCode
		}
		if b.EmployeeCode != nil {
			bc = *b.EmployeeCode
		}
		return cmp.Or(cmp.Compare(ac, bc), cmp.Compare(a.EmployeeID, b.EmployeeID))
	})
}
