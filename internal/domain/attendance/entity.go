package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

type PunchState string

const (
	PunchIn    PunchState = "in"
	PunchOut   PunchState = "out"
	PunchBreak PunchState = "break"
)

func (s PunchState) IsValid() bool {
	return s == PunchIn || s == PunchOut || s == PunchBreak
}

// RawPunch is one device event. Punches are immutable once stored.
type RawPunch struct {
	ID         string
	EmployeeID string
	DeviceID   string
	PunchedAt  time.Time
	State      PunchState
	IngestedAt time.Time
}

type PostingStatus string

const (
	PostingDraft  PostingStatus = "draft"
	PostingPosted PostingStatus = "posted"
)

// Anomaly explains why a day could not be computed. Empty means none.
type Anomaly string

const (
	AnomalyNone                Anomaly = ""
	AnomalyMissingTimeIn       Anomaly = "missing_time_in"
	AnomalyMissingTimeOut      Anomaly = "missing_time_out"
	AnomalyTimeOutBeforeTimeIn Anomaly = "time_out_before_time_in"
)

// ProcessedAttendance is the computed record of one employee-day.
type ProcessedAttendance struct {
	ID             string
	EmployeeID     string
	AttendanceDate time.Time

	TimeIn         *time.Time
	TimeOut        *time.Time
	BreakIn        *time.Time
	BreakOut       *time.Time
	NextDayTimeout *time.Time

	HoursWorked      decimal.Decimal
	LateMinutes      int
	UndertimeMinutes int
	BreakMinutes     int
	NetWorkedMinutes int
	IsNightshift     bool
	IsProcessable    bool
	Anomaly          Anomaly

	// Fed by approved requests
	OvertimeHours     decimal.Decimal
	TravelOrderHours  decimal.Decimal
	OffsetHours       decimal.Decimal
	SLVLFraction      decimal.Decimal
	TripCount         int
	HolidayMultiplier decimal.Decimal
	IsRestday         bool
	IsCT              bool
	IsCS              bool
	IsOB              bool

	PostingStatus PostingStatus
	PunchDigest   string
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Relationships (for responses)
	EmployeeName *string
}

// DayAdjustment is the contribution of an approved request to one day.
// Nil fields are left untouched; numeric fields add to the stored value.
type DayAdjustment struct {
	EmployeeID       string
	Date             time.Time
	OvertimeHours    *decimal.Decimal
	TravelOrderHours *decimal.Decimal
	OffsetHours      *decimal.Decimal
	SLVLFraction     *decimal.Decimal
	TripCount        *int
	IsOB             *bool
}

// DayRef names one employee-day.
type DayRef struct {
	EmployeeID string    `json:"employee_id"`
	Date       time.Time `json:"-"`
}

func (d DayRef) Key() string {
	return d.EmployeeID + ":" + d.Date.Format("2006-01-02")
}
