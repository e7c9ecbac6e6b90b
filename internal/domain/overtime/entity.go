package overtime

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// OvertimeType is the statutory category that decides the pay multiplier.
type OvertimeType string

const (
	TypeRegularWeekday           OvertimeType = "regular_weekday"
	TypeRestDay                  OvertimeType = "rest_day"
	TypeSpecialDay               OvertimeType = "special_day"
	TypeRestDayOvertime          OvertimeType = "rest_day_overtime"
	TypeSpecialDayOvertime       OvertimeType = "special_day_overtime"
	TypeScheduledRestDay         OvertimeType = "scheduled_rest_day"
	TypeScheduledRestDayOvertime OvertimeType = "scheduled_rest_day_overtime"
	TypeRegularHoliday           OvertimeType = "regular_holiday"
	TypeRegularHolidayOvertime   OvertimeType = "regular_holiday_overtime"
	TypeOther                    OvertimeType = "other"
)

func (t OvertimeType) IsValid() bool {
	switch t {
	case TypeRegularWeekday, TypeRestDay, TypeSpecialDay, TypeRestDayOvertime,
		TypeSpecialDayOvertime, TypeScheduledRestDay, TypeScheduledRestDayOvertime,
		TypeRegularHoliday, TypeRegularHolidayOvertime, TypeOther:
		return true
	}
	return false
}

// DayType classifies the calendar day the overtime falls on.
type DayType string

const (
	DayRegular          DayType = "regular"
	DayRestDay          DayType = "rest_day"
	DaySpecialDay       DayType = "special_day"
	DayScheduledRestDay DayType = "scheduled_rest_day"
	DayRegularHoliday   DayType = "regular_holiday"
)

func (d DayType) IsValid() bool {
	switch d {
	case DayRegular, DayRestDay, DaySpecialDay, DayScheduledRestDay, DayRegularHoliday:
		return true
	}
	return false
}

var (
	MinMultiplier = decimal.NewFromInt(1)
	MaxMultiplier = decimal.NewFromInt(10)
)

// OvertimeRequest is an overtime filing. It goes through department and HRD
// approval.
type OvertimeRequest struct {
	ID           string
	EmployeeID   string
	DepartmentID string
	Date         time.Time
	StartAt      time.Time
	EndAt        time.Time
	TotalHours   decimal.Decimal
	DayType      DayType

	OvertimeType           OvertimeType
	HasNightDifferential   bool
	NightDifferentialHours decimal.Decimal
	RateMultiplier         decimal.Decimal
	RateEdited             bool
	RateEditedBy           *string
	RateEditedAt           *time.Time

	Reason string

	Status             workflow.Status
	DepartmentApproval workflow.Approval
	HRDApproval        workflow.Approval
	AdminOverride      workflow.Approval

	Version   int
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	EmployeeName *string
}

// RateUpdate is a manual override of a pending request's multiplier.
type RateUpdate struct {
	RequestID            string
	OvertimeType         OvertimeType
	RateMultiplier       decimal.Decimal
	HasNightDifferential bool
	EditedBy             string
	EditedAt             time.Time
	Version              int
}
