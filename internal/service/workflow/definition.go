package workflow

import (
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
)

// Stage is one approval step. A stage accepts its source status (pending for
// the first stage, the previous stage's Reaches otherwise) and moves the
// request to Reaches on approval or to rejected on rejection.
type Stage struct {
	Name                  string
	Approvers             []workflow.Role
	Reaches               workflow.Status
	RejectRequiresRemarks bool
}

// Definition is the ordered approval chain of one request kind.
type Definition struct {
	Kind   workflow.Kind
	Stages []Stage
}

// TwoStage is the department manager then HRD chain used by overtime.
func TwoStage(kind workflow.Kind) Definition {
	return Definition{
		Kind: kind,
		Stages: []Stage{
			{
				Name:                  "department",
				Approvers:             []workflow.Role{workflow.RoleDepartmentManager},
				Reaches:               workflow.StatusManagerApproved,
				RejectRequiresRemarks: true,
			},
			{
				Name:      "hrd",
				Approvers: []workflow.Role{workflow.RoleHRDManager},
				Reaches:   workflow.StatusApproved,
			},
		},
	}
}

// SingleStage is the one-step chain used by leave and attendance adjustments.
func SingleStage(kind workflow.Kind) Definition {
	return Definition{
		Kind: kind,
		Stages: []Stage{
			{
				Name:                  "approver",
				Approvers:             []workflow.Role{workflow.RoleDepartmentManager, workflow.RoleHRDManager},
				Reaches:               workflow.StatusApproved,
				RejectRequiresRemarks: true,
			},
		},
	}
}

// Validate checks that the chain starts at pending, ends at approved and
// never revisits a status.
func (d Definition) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("workflow definition has no kind")
	}
	if len(d.Stages) == 0 {
		return fmt.Errorf("workflow %s has no stages", d.Kind)
	}
	seen := map[workflow.Status]bool{workflow.StatusPending: true}
	for i, s := range d.Stages {
		if len(s.Approvers) == 0 {
			return fmt.Errorf("workflow %s stage %d has no approvers", d.Kind, i)
		}
		if seen[s.Reaches] || !s.Reaches.IsValid() || s.Reaches == workflow.StatusRejected || s.Reaches == workflow.StatusForceApproved {
			return fmt.Errorf("workflow %s stage %d reaches invalid status %s", d.Kind, i, s.Reaches)
		}
		last := i == len(d.Stages)-1
		if last != (s.Reaches == workflow.StatusApproved) {
			return fmt.Errorf("workflow %s must reach approved exactly at its last stage", d.Kind)
		}
		seen[s.Reaches] = true
	}
	return nil
}

// stageFor returns the stage that accepts requests in status from.
func (d Definition) stageFor(from workflow.Status) (int, bool) {
	source := workflow.StatusPending
	for i, s := range d.Stages {
		if from == source {
			return i, true
		}
		source = s.Reaches
	}
	return 0, false
}

// Plan decides the transition of subject to target by actor. Checks run in
// order: target validity, state, authorization, remarks.
func (d Definition) Plan(subject workflow.Subject, target workflow.Status, actor workflow.Actor, remarks string) (workflow.Transition, error) {
	if !target.IsValid() || target == workflow.StatusPending {
		return workflow.Transition{}, validator.ValidationErrors{{
			Field:   "status",
			Message: fmt.Sprintf("%q is not a valid target status", target),
		}}
	}

	conflict := &workflow.StateConflictError{RequestID: subject.ID, Current: subject.Status, Target: target}
	if subject.Status.IsTerminal() {
		return workflow.Transition{}, conflict
	}

	t := workflow.Transition{
		RequestID: subject.ID,
		Kind:      subject.Kind,
		From:      subject.Status,
		To:        target,
		ActorID:   actor.UserID,
		Remarks:   remarks,
	}

	if target == workflow.StatusForceApproved {
		if !actor.IsSuperAdmin {
			return workflow.Transition{}, &workflow.AuthorizationError{
				ActorID:  actor.UserID,
				Required: []workflow.Role{workflow.RoleSuperAdmin},
				Action:   "force approve",
			}
		}
		if validator.IsEmpty(remarks) {
			return workflow.Transition{}, validator.ValidationErrors{{
				Field:   "remarks",
				Message: "remarks are required to force approve",
			}}
		}
		t.Stage = workflow.StageForce
		t.StageName = "force"
		return t, nil
	}

	idx, ok := d.stageFor(subject.Status)
	if !ok {
		return workflow.Transition{}, conflict
	}
	stage := d.Stages[idx]
	if target != workflow.StatusRejected && target != stage.Reaches {
		return workflow.Transition{}, conflict
	}

	allowed := false
	for _, role := range stage.Approvers {
		if actor.Holds(role, subject.DepartmentID) {
			allowed = true
			break
		}
	}
	if !allowed {
		action := "approve"
		if target == workflow.StatusRejected {
			action = "reject"
		}
		return workflow.Transition{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: append(append([]workflow.Role{}, stage.Approvers...), workflow.RoleSuperAdmin),
			Action:   action + " at " + stage.Name + " stage",
		}
	}

	if target == workflow.StatusRejected && stage.RejectRequiresRemarks && validator.IsEmpty(remarks) {
		return workflow.Transition{}, validator.ValidationErrors{{
			Field:   "remarks",
			Message: "remarks are required to reject",
		}}
	}

	t.Stage = idx
	t.StageName = stage.Name
	return t, nil
}
