package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type overtimeRequestRepositoryImpl struct {
	db *database.DB
}

func NewOvertimeRequestRepository(db *database.DB) overtime.OvertimeRequestRepository {
	return &overtimeRequestRepositoryImpl{db: db}
}

const overtimeColumns = `
	ot.id, ot.employee_id, ot.department_id, ot.overtime_date, ot.start_at, ot.end_at, ot.total_hours, ot.day_type,
	ot.overtime_type, ot.has_night_differential, ot.night_differential_hours, ot.rate_multiplier,
	ot.rate_edited, ot.rate_edited_by, ot.rate_edited_at, ot.reason, ot.status,
	ot.department_by, ot.department_at, ot.department_remarks,
	ot.hrd_by, ot.hrd_at, ot.hrd_remarks,
	ot.admin_override_by, ot.admin_override_at, ot.admin_override_remarks,
	ot.version, ot.created_by, ot.created_at, ot.updated_at,
	e.full_name
`

func scanOvertime(row pgx.Row) (overtime.OvertimeRequest, error) {
	var r overtime.OvertimeRequest
	var name string
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.DepartmentID, &r.Date, &r.StartAt, &r.EndAt, &r.TotalHours, &r.DayType,
		&r.OvertimeType, &r.HasNightDifferential, &r.NightDifferentialHours, &r.RateMultiplier,
		&r.RateEdited, &r.RateEditedBy, &r.RateEditedAt, &r.Reason, &r.Status,
		&r.DepartmentApproval.ApproverID, &r.DepartmentApproval.At, &r.DepartmentApproval.Remarks,
		&r.HRDApproval.ApproverID, &r.HRDApproval.At, &r.HRDApproval.Remarks,
		&r.AdminOverride.ApproverID, &r.AdminOverride.At, &r.AdminOverride.Remarks,
		&r.Version, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
		&name,
	)
	r.EmployeeName = &name
	return r, err
}

func (r *overtimeRequestRepositoryImpl) Create(ctx context.Context, req overtime.OvertimeRequest) (overtime.OvertimeRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO overtime_requests (
			id, employee_id, department_id, overtime_date, start_at, end_at, total_hours, day_type,
			overtime_type, has_night_differential, night_differential_hours, rate_multiplier,
			reason, status, version, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4::date, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, 1, $15, NOW(), NOW()
		)
	`

	_, err := q.Exec(ctx, query,
		req.ID, req.EmployeeID, req.DepartmentID, req.Date.Format("2006-01-02"), req.StartAt, req.EndAt, req.TotalHours, req.DayType,
		req.OvertimeType, req.HasNightDifferential, req.NightDifferentialHours, req.RateMultiplier,
		req.Reason, req.Status, req.CreatedBy,
	)
	if err != nil {
		return overtime.OvertimeRequest{}, fmt.Errorf("failed to create overtime request: %w", err)
	}

	return r.GetByID(ctx, req.ID)
}

func (r *overtimeRequestRepositoryImpl) GetByID(ctx context.Context, id string) (overtime.OvertimeRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + overtimeColumns + `
		FROM overtime_requests ot
		JOIN employees e ON e.id = ot.employee_id
		WHERE ot.id = $1
	`

	req, err := scanOvertime(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.OvertimeRequest{}, overtime.ErrOvertimeRequestNotFound
		}
		return overtime.OvertimeRequest{}, fmt.Errorf("failed to get overtime request: %w", err)
	}
	return req, nil
}

func (r *overtimeRequestRepositoryImpl) List(ctx context.Context, filter overtime.OvertimeRequestFilter) ([]overtime.OvertimeRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	var w whereBuilder
	w.requestFilter("ot", "overtime_date", filter.RequestFilter)
	if filter.OvertimeType != nil && *filter.OvertimeType != "" {
		w.and("ot.overtime_type = " + w.arg(*filter.OvertimeType))
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM overtime_requests ot ` + w.String()
	if err := q.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count overtime requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM overtime_requests ot
		JOIN employees e ON e.id = ot.employee_id
		%s
		ORDER BY ot.overtime_date %s, ot.created_at %s
		LIMIT %s OFFSET %s
	`, overtimeColumns, w.String(), sortDirection(filter.SortOrder), sortDirection(filter.SortOrder),
		w.arg(filter.Limit), w.arg(filter.Offset()))

	rows, err := q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list overtime requests: %w", err)
	}
	defer rows.Close()

	var requests []overtime.OvertimeRequest
	for rows.Next() {
		req, err := scanOvertime(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan overtime request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func (r *overtimeRequestRepositoryImpl) UpdateRate(ctx context.Context, update overtime.RateUpdate) (overtime.OvertimeRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE overtime_requests SET
			overtime_type = $1,
			rate_multiplier = $2,
			has_night_differential = $3,
			rate_edited = TRUE,
			rate_edited_by = $4,
			rate_edited_at = $5,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $6 AND status = 'pending' AND version = $7
	`

	tag, err := q.Exec(ctx, query,
		update.OvertimeType, update.RateMultiplier, update.HasNightDifferential,
		update.EditedBy, update.EditedAt,
		update.RequestID, update.Version,
	)
	if err != nil {
		return overtime.OvertimeRequest{}, fmt.Errorf("failed to update overtime rate: %w", err)
	}

	current, err := r.GetByID(ctx, update.RequestID)
	if err != nil {
		return overtime.OvertimeRequest{}, err
	}
	if tag.RowsAffected() == 1 {
		return current, nil
	}
	if current.Status != workflow.StatusPending {
		return overtime.OvertimeRequest{}, &workflow.StateConflictError{
			RequestID: current.ID,
			Current:   current.Status,
			Target:    workflow.StatusPending,
		}
	}
	return overtime.OvertimeRequest{}, overtime.ErrVersionConflict
}

func (r *overtimeRequestRepositoryImpl) LockSubject(ctx context.Context, id string) (workflow.Subject, error) {
	return lockSubject(ctx, GetQuerier(ctx, r.db), "overtime_requests", "'overtime'", id)
}

func (r *overtimeRequestRepositoryImpl) ApplyTransition(ctx context.Context, t workflow.Transition) error {
	return applyTransition(ctx, GetQuerier(ctx, r.db), "overtime_requests", t)
}
