package workflow

import (
	"context"
	"slices"
)

// Actor is the authenticated principal performing an operation. Role data is
// supplied by the identity provider and treated as an opaque capability set.
type Actor struct {
	UserID              string
	EmployeeID          string
	IsSuperAdmin        bool
	IsHRDManager        bool
	IsDepartmentManager bool
	ManagedDepartments  []string
}

// Manages reports whether the actor is a department manager of departmentID.
func (a Actor) Manages(departmentID string) bool {
	return a.IsDepartmentManager && departmentID != "" && slices.Contains(a.ManagedDepartments, departmentID)
}

// Holds reports whether the actor can act in role for a request owned by
// departmentID. Super admins hold every role.
func (a Actor) Holds(role Role, departmentID string) bool {
	if a.IsSuperAdmin {
		return true
	}
	switch role {
	case RoleDepartmentManager:
		return a.Manages(departmentID)
	case RoleHRDManager:
		return a.IsHRDManager
	}
	return false
}

// CanReview reports whether the actor may see requests of other employees in
// departmentID.
func (a Actor) CanReview(departmentID string) bool {
	return a.IsSuperAdmin || a.IsHRDManager || a.Manages(departmentID)
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
