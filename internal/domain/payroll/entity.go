package payroll

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/shopspring/decimal"
)

// Period selects the days and employees of a summary. Empty EmployeeIDs
// means everyone.
type Period struct {
	From        time.Time
	To          time.Time
	EmployeeIDs []string
}

// AttendanceTotals aggregates processed attendance days.
type AttendanceTotals struct {
	EmployeeID       string
	DaysPresent      int
	HoursWorked      decimal.Decimal
	LateMinutes      int
	UndertimeMinutes int
	Anomalies        int
	UnpostedDays     int
}

// OvertimeBucket aggregates granted overtime paid at one multiplier.
type OvertimeBucket struct {
	EmployeeID             string
	OvertimeType           overtime.OvertimeType
	RateMultiplier         decimal.Decimal
	Hours                  decimal.Decimal
	NightDifferentialHours decimal.Decimal
	Requests               int
}

// LeaveTotals aggregates granted SLVL days that fall inside the period.
type LeaveTotals struct {
	EmployeeID  string
	WithPayDays decimal.Decimal
	NonPayDays  decimal.Decimal
}

// AdjustmentTotals aggregates granted travel order, offset, official business
// and retro requests.
type AdjustmentTotals struct {
	EmployeeID           string
	TravelOrderHours     decimal.Decimal
	TripCount            int
	OffsetHours          decimal.Decimal
	OfficialBusinessDays int
	RetroAmount          decimal.Decimal
}
