package workflow

import (
	"time"
)

// Status is the approval state shared by every request kind.
type Status string

const (
	StatusPending         Status = "pending"
	StatusManagerApproved Status = "manager_approved"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusForceApproved   Status = "force_approved"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusManagerApproved, StatusApproved, StatusRejected, StatusForceApproved:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusForceApproved
}

// IsGranted reports whether s is a final approval.
func (s Status) IsGranted() bool {
	return s == StatusApproved || s == StatusForceApproved
}

// Kind names a request type that runs through the workflow.
type Kind string

const (
	KindOvertime         Kind = "overtime"
	KindSLVL             Kind = "slvl"
	KindTravelOrder      Kind = "travel_order"
	KindOffset           Kind = "offset"
	KindRetro            Kind = "retro"
	KindOfficialBusiness Kind = "official_business"
)

// Role is an approver capability carried by an Actor.
type Role string

const (
	RoleDepartmentManager Role = "department_manager"
	RoleHRDManager        Role = "hrd_manager"
	RoleSuperAdmin        Role = "super_admin"
)

// Subject is the part of a request the engine needs to decide a transition.
type Subject struct {
	ID           string
	Kind         Kind
	EmployeeID   string
	DepartmentID string
	CreatedBy    string
	Status       Status
}

// Approval is one approval slot on a request. All fields are nil until the
// slot is filled.
type Approval struct {
	ApproverID *string    `json:"approver_id"`
	At         *time.Time `json:"at"`
	Remarks    *string    `json:"remarks"`
}

// Stage indexes used by Transition.Stage.
const (
	StageForce = -1
)

// Transition is a planned status change. Stage is the index of the stage that
// decided it, or StageForce for a super-admin override.
type Transition struct {
	RequestID string
	Kind      Kind
	From      Status
	To        Status
	Stage     int
	StageName string
	ActorID   string
	Remarks   string
	At        time.Time
}

func (t Transition) IsForce() bool {
	return t.Stage == StageForce
}

// Event is the audit record written for every applied transition.
type Event struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	RequestID    string    `json:"request_id"`
	EmployeeID   string    `json:"employee_id"`
	DepartmentID string    `json:"department_id"`
	OldStatus    Status    `json:"old_status"`
	NewStatus    Status    `json:"new_status"`
	ActorID      string    `json:"actor_id"`
	Remarks      string    `json:"remarks,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// BulkSuccess is one request that reached its target status.
type BulkSuccess struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// BulkFailure is one request that did not change, with the reason.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BulkResult separates the outcome of a bulk transition per request.
type BulkResult struct {
	Succeeded []BulkSuccess `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}
