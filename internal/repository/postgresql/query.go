package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// arg appends v and returns its placeholder.
func (w *whereBuilder) arg(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) and(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// visible restricts rows to the departments and own employee the caller may
// see. Nil departments and nil own means unrestricted.
func (w *whereBuilder) visible(departmentColumn, employeeColumn string, departments []string, own *string) {
	if departments == nil && own == nil {
		return
	}
	var alts []string
	if len(departments) > 0 {
		alts = append(alts, fmt.Sprintf("%s = ANY(%s::uuid[])", departmentColumn, w.arg(departments)))
	}
	if own != nil && *own != "" {
		alts = append(alts, fmt.Sprintf("%s = %s", employeeColumn, w.arg(*own)))
	}
	if len(alts) == 0 {
		w.and("FALSE")
		return
	}
	w.and("(" + strings.Join(alts, " OR ") + ")")
}

// requestFilter applies the shared request list filter. dateColumn is the
// column compared to the start/end dates.
func (w *whereBuilder) requestFilter(alias, dateColumn string, f workflow.RequestFilter) {
	if f.EmployeeID != nil && *f.EmployeeID != "" {
		w.and(fmt.Sprintf("%s.employee_id = %s", alias, w.arg(*f.EmployeeID)))
	}
	if f.DepartmentID != nil && *f.DepartmentID != "" {
		w.and(fmt.Sprintf("%s.department_id = %s", alias, w.arg(*f.DepartmentID)))
	}
	if f.Status != nil && *f.Status != "" {
		w.and(fmt.Sprintf("%s.status = %s", alias, w.arg(*f.Status)))
	}
	if f.StartDate != nil && *f.StartDate != "" {
		w.and(fmt.Sprintf("%s.%s >= %s::date", alias, dateColumn, w.arg(*f.StartDate)))
	}
	if f.EndDate != nil && *f.EndDate != "" {
		w.and(fmt.Sprintf("%s.%s <= %s::date", alias, dateColumn, w.arg(*f.EndDate)))
	}
	w.visible(alias+".department_id", alias+".employee_id", f.VisibleDepartments, f.OwnEmployeeID)
}

func sortDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

// approvalSlot maps the stage that decided a transition to the column prefix
// of the approval slot it fills.
func approvalSlot(t workflow.Transition) (string, error) {
	if t.IsForce() {
		return "admin_override", nil
	}
	switch t.StageName {
	case "department":
		return "department", nil
	case "hrd":
		return "hrd", nil
	case "approver":
		return "approval", nil
	}
	return "", fmt.Errorf("no approval slot for stage %q", t.StageName)
}

// lockSubject loads and row-locks the workflow subject stored in table.
// kindColumn is a column or a quoted literal naming the kind.
func lockSubject(ctx context.Context, q database.Querier, table, kindColumn, id string) (workflow.Subject, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, employee_id, department_id, created_by, status
		FROM %s
		WHERE id = $1
		FOR UPDATE
	`, kindColumn, table)

	var s workflow.Subject
	err := q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Kind, &s.EmployeeID, &s.DepartmentID, &s.CreatedBy, &s.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workflow.Subject{}, workflow.ErrRequestNotFound
		}
		return workflow.Subject{}, fmt.Errorf("failed to lock %s row: %w", table, err)
	}
	return s, nil
}

// applyTransition compare-and-sets the status of a row in table and fills the
// approval slot of the deciding stage.
func applyTransition(ctx context.Context, q database.Querier, table string, t workflow.Transition) error {
	slot, err := approvalSlot(t)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %[1]s SET
			status = $1,
			%[2]s_by = $2,
			%[2]s_at = $3,
			%[2]s_remarks = NULLIF($4, ''),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $5 AND status = $6
	`, table, slot)

	tag, err := q.Exec(ctx, query, t.To, t.ActorID, t.At, t.Remarks, t.RequestID, t.From)
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", table, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current workflow.Status
	err = q.QueryRow(ctx, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, table), t.RequestID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workflow.ErrRequestNotFound
		}
		return fmt.Errorf("failed to read %s status: %w", table, err)
	}
	return &workflow.StateConflictError{RequestID: t.RequestID, Current: current, Target: t.To}
}
