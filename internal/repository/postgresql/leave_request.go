package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type slvlRequestRepositoryImpl struct {
	db *database.DB
}

func NewSLVLRequestRepository(db *database.DB) leave.SLVLRequestRepository {
	return &slvlRequestRepositoryImpl{db: db}
}

const slvlColumns = `
	lr.id, lr.employee_id, lr.department_id, lr.leave_type, lr.start_date, lr.end_date,
	lr.total_days, lr.is_half_day, lr.half_day_period, lr.pay_type, lr.bank_year, lr.reason, lr.status,
	lr.approval_by, lr.approval_at, lr.approval_remarks,
	lr.admin_override_by, lr.admin_override_at, lr.admin_override_remarks,
	lr.created_by, lr.created_at, lr.updated_at,
	e.full_name
`

func scanSLVL(row pgx.Row) (leave.SLVLRequest, error) {
	var r leave.SLVLRequest
	var name string
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.DepartmentID, &r.LeaveType, &r.StartDate, &r.EndDate,
		&r.TotalDays, &r.IsHalfDay, &r.HalfDayPeriod, &r.PayType, &r.BankYear, &r.Reason, &r.Status,
		&r.Approval.ApproverID, &r.Approval.At, &r.Approval.Remarks,
		&r.AdminOverride.ApproverID, &r.AdminOverride.At, &r.AdminOverride.Remarks,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
		&name,
	)
	r.EmployeeName = &name
	return r, err
}

func (r *slvlRequestRepositoryImpl) Create(ctx context.Context, req leave.SLVLRequest) (leave.SLVLRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO slvl_requests (
			id, employee_id, department_id, leave_type, start_date, end_date,
			total_days, is_half_day, half_day_period, pay_type, bank_year, reason,
			status, version, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5::date, $6::date,
			$7, $8, $9, $10, $11, $12,
			$13, 1, $14, NOW(), NOW()
		)
	`

	_, err := q.Exec(ctx, query,
		req.ID, req.EmployeeID, req.DepartmentID, req.LeaveType,
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"),
		req.TotalDays, req.IsHalfDay, req.HalfDayPeriod, req.PayType, req.BankYear, req.Reason,
		req.Status, req.CreatedBy,
	)
	if err != nil {
		return leave.SLVLRequest{}, fmt.Errorf("failed to create SLVL request: %w", err)
	}

	return r.GetByID(ctx, req.ID)
}

func (r *slvlRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.SLVLRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + slvlColumns + `
		FROM slvl_requests lr
		JOIN employees e ON e.id = lr.employee_id
		WHERE lr.id = $1
	`

	req, err := scanSLVL(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.SLVLRequest{}, leave.ErrSLVLRequestNotFound
		}
		return leave.SLVLRequest{}, fmt.Errorf("failed to get SLVL request: %w", err)
	}
	return req, nil
}

func (r *slvlRequestRepositoryImpl) List(ctx context.Context, filter leave.SLVLRequestFilter) ([]leave.SLVLRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	var w whereBuilder
	w.requestFilter("lr", "start_date", filter.RequestFilter)
	if filter.LeaveType != nil && *filter.LeaveType != "" {
		w.and("lr.leave_type = " + w.arg(*filter.LeaveType))
	}
	if filter.PayType != nil && *filter.PayType != "" {
		w.and("lr.pay_type = " + w.arg(*filter.PayType))
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM slvl_requests lr ` + w.String()
	if err := q.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count SLVL requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM slvl_requests lr
		JOIN employees e ON e.id = lr.employee_id
		%s
		ORDER BY lr.start_date %s, lr.created_at %s
		LIMIT %s OFFSET %s
	`, slvlColumns, w.String(), sortDirection(filter.SortOrder), sortDirection(filter.SortOrder),
		w.arg(filter.Limit), w.arg(filter.Offset()))

	rows, err := q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list SLVL requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.SLVLRequest
	for rows.Next() {
		req, err := scanSLVL(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan SLVL request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func (r *slvlRequestRepositoryImpl) LockSubject(ctx context.Context, id string) (workflow.Subject, error) {
	return lockSubject(ctx, GetQuerier(ctx, r.db), "slvl_requests", "'slvl'", id)
}

func (r *slvlRequestRepositoryImpl) ApplyTransition(ctx context.Context, t workflow.Transition) error {
	return applyTransition(ctx, GetQuerier(ctx, r.db), "slvl_requests", t)
}
