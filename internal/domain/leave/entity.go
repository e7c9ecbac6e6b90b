package leave

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// LeaveType is the bank a leave draws from.
type LeaveType string

const (
	LeaveTypeSick     LeaveType = "sick"
	LeaveTypeVacation LeaveType = "vacation"
)

func (t LeaveType) IsValid() bool {
	return t == LeaveTypeSick || t == LeaveTypeVacation
}

type PayType string

const (
	PayTypeWithPay PayType = "with_pay"
	PayTypeNonPay  PayType = "non_pay"
)

func (p PayType) IsValid() bool {
	return p == PayTypeWithPay || p == PayTypeNonPay
}

// BankYearWindow bounds how far a request's bank year may sit from its dates.
const BankYearWindow = 5

type HalfDayPeriod string

const (
	HalfDayAM HalfDayPeriod = "am"
	HalfDayPM HalfDayPeriod = "pm"
)

var (
	MinRequestDays = decimal.RequireFromString("0.5")
	MaxRequestDays = decimal.NewFromInt(100)
	MaxAllocation  = decimal.NewFromInt(100)
)

// SLVLRequest is a sick or vacation leave request.
type SLVLRequest struct {
	ID            string
	EmployeeID    string
	DepartmentID  string
	LeaveType     LeaveType
	StartDate     time.Time
	EndDate       time.Time
	TotalDays     decimal.Decimal
	IsHalfDay     bool
	HalfDayPeriod *HalfDayPeriod
	PayType       PayType
	BankYear      int
	Reason        string

	Status        workflow.Status
	Approval      workflow.Approval
	AdminOverride workflow.Approval

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	EmployeeName *string
}

// DayFraction is the share of a working day each date of the request covers.
func (r SLVLRequest) DayFraction() decimal.Decimal {
	if r.IsHalfDay {
		return MinRequestDays
	}
	return decimal.NewFromInt(1)
}

// Bank is the per-employee, per-type, per-year SLVL balance.
type Bank struct {
	ID            string
	EmployeeID    string
	LeaveType     LeaveType
	Year          int
	TotalDays     decimal.Decimal
	UsedDays      decimal.Decimal
	RemainingDays decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Recalculate keeps RemainingDays equal to TotalDays minus UsedDays.
func (b *Bank) Recalculate() {
	b.RemainingDays = b.TotalDays.Sub(b.UsedDays)
}

// BankKey identifies one bank.
type BankKey struct {
	EmployeeID string
	LeaveType  LeaveType
	Year       int
}

type AdjustmentKind string

const (
	AdjustmentAllocate    AdjustmentKind = "allocate"
	AdjustmentCommit      AdjustmentKind = "commit"
	AdjustmentForceCommit AdjustmentKind = "force_commit"
)

// BankAdjustment is the audit trail of one ledger mutation.
type BankAdjustment struct {
	ID        string
	BankID    string
	Kind      AdjustmentKind
	Days      decimal.Decimal
	RequestID *string
	ActorID   string
	Notes     *string
	CreatedAt time.Time
}
