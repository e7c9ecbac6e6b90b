package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByUserID(ctx context.Context, userID string) (Employee, error)
	ListByIDs(ctx context.Context, ids []string) ([]Employee, error)
}

// DepartmentManagerRepository reads the department manager assignments.
type DepartmentManagerRepository interface {
	ListManagedDepartments(ctx context.Context, userID string) ([]string, error)
}
