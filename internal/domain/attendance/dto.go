package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// MaxPunchBatch bounds one ingestion call.
const MaxPunchBatch = 5000

type PunchInput struct {
	EmployeeID string `json:"employee_id"`
	DeviceID   string `json:"device_id"`
	PunchedAt  string `json:"punched_at"` // RFC3339
	State      string `json:"punch_state"`
}

type IngestPunchesRequest struct {
	Punches []PunchInput `json:"punches"`

	parsed []RawPunch
}

func (r *IngestPunchesRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Punches) == 0 {
		errs.Add("punches", "punches must not be empty")
	}
	if len(r.Punches) > MaxPunchBatch {
		errs.Add("punches", fmt.Sprintf("punches must not exceed %d entries", MaxPunchBatch))
	}

	parsed := make([]RawPunch, 0, len(r.Punches))
	for i, p := range r.Punches {
		field := fmt.Sprintf("punches[%d]", i)
		if validator.IsEmpty(p.EmployeeID) {
			errs.Add(field+".employee_id", "employee_id is required")
		}
		if validator.IsEmpty(p.DeviceID) {
			errs.Add(field+".device_id", "device_id is required")
		}
		at, ok := validator.IsValidDateTime(p.PunchedAt)
		if !ok {
			errs.Add(field+".punched_at", "punched_at must be an RFC3339 timestamp")
		}
		if !PunchState(p.State).IsValid() {
			errs.Add(field+".punch_state", "punch_state must be one of: in, out, break")
		}
		parsed = append(parsed, RawPunch{
			EmployeeID: p.EmployeeID,
			DeviceID:   p.DeviceID,
			PunchedAt:  at,
			State:      PunchState(p.State),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	r.parsed = parsed
	return nil
}

// Parsed returns the punches. Only meaningful after Validate succeeds.
func (r *IngestPunchesRequest) Parsed() []RawPunch {
	return r.parsed
}

type DaySkip struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

type IngestResult struct {
	Received   int       `json:"received"`
	Inserted   int64     `json:"inserted"`
	Recomputed int       `json:"recomputed"`
	Anomalies  int       `json:"anomalies"`
	Skipped    []DaySkip `json:"skipped"`
}

// SweepResult summarizes a recomputation of every punched employee on one date.
type SweepResult struct {
	Date       string `json:"date"`
	Employees  int    `json:"employees"`
	Recomputed int    `json:"recomputed"`
	Anomalies  int    `json:"anomalies"`
	Posted     int    `json:"posted"`
	Failed     int    `json:"failed"`
}

type RecomputeRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"` // YYYY-MM-DD
}

func (r *RecomputeRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	return errs.Err()
}

// PostRequest freezes every draft record in [StartDate, EndDate] for the given
// employees, or for everyone when EmployeeIDs is empty.
type PostRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`

	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

func (r *PostRequest) Validate() error {
	var errs validator.ValidationErrors
	from, fromOK := validator.IsValidDate(r.StartDate)
	if !fromOK {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	}
	to, toOK := validator.IsValidDate(r.EndDate)
	if !toOK {
		errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
	}
	if fromOK && toOK && to.Before(from) {
		errs.Add("end_date", "end_date must not be before start_date")
	}
	if len(errs) > 0 {
		return errs
	}
	r.From, r.To = from, to
	return nil
}

type AttendanceFilter struct {
	EmployeeID    *string `json:"employee_id,omitempty"`
	StartDate     *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate       *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	OnlyAnomalies bool    `json:"only_anomalies"`

	VisibleDepartments []string `json:"-"`
	OwnEmployeeID      *string  `json:"-"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *AttendanceFilter) Validate() error {
	base := workflow.RequestFilter{
		EmployeeID: f.EmployeeID,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		Page:       f.Page,
		Limit:      f.Limit,
	}
	err := base.Validate()
	f.Page, f.Limit = base.Page, base.Limit
	return err
}

func (f AttendanceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Scope narrows f to what actor may see.
func (f *AttendanceFilter) Scope(actor workflow.Actor) {
	base := workflow.RequestFilter{}
	base.Scope(actor)
	f.VisibleDepartments, f.OwnEmployeeID = base.VisibleDepartments, base.OwnEmployeeID
}

type AttendanceResponse struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	EmployeeName      *string         `json:"employee_name,omitempty"`
	AttendanceDate    string          `json:"attendance_date"`
	TimeIn            *time.Time      `json:"time_in"`
	TimeOut           *time.Time      `json:"time_out"`
	BreakIn           *time.Time      `json:"break_in"`
	BreakOut          *time.Time      `json:"break_out"`
	NextDayTimeout    *time.Time      `json:"next_day_timeout"`
	HoursWorked       decimal.Decimal `json:"hours_worked"`
	LateMinutes       int             `json:"late_minutes"`
	UndertimeMinutes  int             `json:"undertime_minutes"`
	BreakMinutes      int             `json:"break_minutes"`
	IsNightshift      bool            `json:"is_nightshift"`
	IsProcessable     bool            `json:"is_processable"`
	Anomaly           *string         `json:"anomaly"`
	OvertimeHours     decimal.Decimal `json:"overtime_hours"`
	TravelOrderHours  decimal.Decimal `json:"travel_order_hours"`
	OffsetHours       decimal.Decimal `json:"offset_hours"`
	SLVLFraction      decimal.Decimal `json:"slvl_fraction"`
	TripCount         int             `json:"trip_count"`
	HolidayMultiplier decimal.Decimal `json:"holiday_multiplier"`
	IsRestday         bool            `json:"is_restday"`
	IsCT              bool            `json:"is_ct"`
	IsCS              bool            `json:"is_cs"`
	IsOB              bool            `json:"is_ob"`
	PostingStatus     PostingStatus   `json:"posting_status"`
	Version           int             `json:"version"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func NewAttendanceResponse(a ProcessedAttendance) AttendanceResponse {
	var anomaly *string
	if a.Anomaly != AnomalyNone {
		s := string(a.Anomaly)
		anomaly = &s
	}
	return AttendanceResponse{
		ID:                a.ID,
		EmployeeID:        a.EmployeeID,
		EmployeeName:      a.EmployeeName,
		AttendanceDate:    a.AttendanceDate.Format("2006-01-02"),
		TimeIn:            a.TimeIn,
		TimeOut:           a.TimeOut,
		BreakIn:           a.BreakIn,
		BreakOut:          a.BreakOut,
		NextDayTimeout:    a.NextDayTimeout,
		HoursWorked:       a.HoursWorked,
		LateMinutes:       a.LateMinutes,
		UndertimeMinutes:  a.UndertimeMinutes,
		BreakMinutes:      a.BreakMinutes,
		IsNightshift:      a.IsNightshift,
		IsProcessable:     a.IsProcessable,
		Anomaly:           anomaly,
		OvertimeHours:     a.OvertimeHours,
		TravelOrderHours:  a.TravelOrderHours,
		OffsetHours:       a.OffsetHours,
		SLVLFraction:      a.SLVLFraction,
		TripCount:         a.TripCount,
		HolidayMultiplier: a.HolidayMultiplier,
		IsRestday:         a.IsRestday,
		IsCT:              a.IsCT,
		IsCS:              a.IsCS,
		IsOB:              a.IsOB,
		PostingStatus:     a.PostingStatus,
		Version:           a.Version,
		UpdatedAt:         a.UpdatedAt,
	}
}

type ListAttendanceResponse struct {
	workflow.Pagination
	Attendances []AttendanceResponse `json:"attendances"`
}
