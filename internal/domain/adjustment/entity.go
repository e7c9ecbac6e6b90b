package adjustment

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Kinds are the request kinds filed as attendance adjustments.
var Kinds = []workflow.Kind{
	workflow.KindTravelOrder,
	workflow.KindOffset,
	workflow.KindRetro,
	workflow.KindOfficialBusiness,
}

func IsKind(k workflow.Kind) bool {
	return slices.Contains(Kinds, k)
}

var MaxHours = decimal.NewFromInt(24)

// AdjustmentRequest is a single-approval request that corrects or adds to one
// attendance day.
type AdjustmentRequest struct {
	ID           string
	Kind         workflow.Kind
	EmployeeID   string
	DepartmentID string
	Date         time.Time
	Hours        decimal.Decimal
	TripCount    int
	// Amount is the retro pay being claimed. Zero for other kinds.
	Amount decimal.Decimal
	Reason string

	Status        workflow.Status
	Approval      workflow.Approval
	AdminOverride workflow.Approval

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	EmployeeName *string
}
