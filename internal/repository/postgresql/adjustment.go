package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/adjustment"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type adjustmentRequestRepositoryImpl struct {
	db *database.DB
}

func NewAdjustmentRequestRepository(db *database.DB) adjustment.AdjustmentRequestRepository {
	return &adjustmentRequestRepositoryImpl{db: db}
}

const adjustmentColumns = `
	ar.id, ar.kind, ar.employee_id, ar.department_id, ar.adjustment_date,
	ar.hours, ar.trip_count, ar.amount, ar.reason, ar.status,
	ar.approval_by, ar.approval_at, ar.approval_remarks,
	ar.admin_override_by, ar.admin_override_at, ar.admin_override_remarks,
	ar.created_by, ar.created_at, ar.updated_at,
	e.full_name
`

func scanAdjustment(row pgx.Row) (adjustment.AdjustmentRequest, error) {
	var r adjustment.AdjustmentRequest
	var name string
	err := row.Scan(
		&r.ID, &r.Kind, &r.EmployeeID, &r.DepartmentID, &r.Date,
		&r.Hours, &r.TripCount, &r.Amount, &r.Reason, &r.Status,
		&r.Approval.ApproverID, &r.Approval.At, &r.Approval.Remarks,
		&r.AdminOverride.ApproverID, &r.AdminOverride.At, &r.AdminOverride.Remarks,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
		&name,
	)
	r.EmployeeName = &name
	return r, err
}

func (r *adjustmentRequestRepositoryImpl) Create(ctx context.Context, req adjustment.AdjustmentRequest) (adjustment.AdjustmentRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO adjustment_requests (
			id, kind, employee_id, department_id, adjustment_date,
			hours, trip_count, amount, reason,
			status, version, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5::date,
			$6, $7, $8, $9,
			$10, 1, $11, NOW(), NOW()
		)
	`

	_, err := q.Exec(ctx, query,
		req.ID, req.Kind, req.EmployeeID, req.DepartmentID, req.Date.Format("2006-01-02"),
		req.Hours, req.TripCount, req.Amount, req.Reason,
		req.Status, req.CreatedBy,
	)
	if err != nil {
		return adjustment.AdjustmentRequest{}, fmt.Errorf("failed to create adjustment request: %w", err)
	}

	return r.GetByID(ctx, req.ID)
}

func (r *adjustmentRequestRepositoryImpl) GetByID(ctx context.Context, id string) (adjustment.AdjustmentRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + adjustmentColumns + `
		FROM adjustment_requests ar
		JOIN employees e ON e.id = ar.employee_id
		WHERE ar.id = $1
	`

	req, err := scanAdjustment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return adjustment.AdjustmentRequest{}, adjustment.ErrAdjustmentRequestNotFound
		}
		return adjustment.AdjustmentRequest{}, fmt.Errorf("failed to get adjustment request: %w", err)
	}
	return req, nil
}

func (r *adjustmentRequestRepositoryImpl) List(ctx context.Context, filter adjustment.AdjustmentRequestFilter) ([]adjustment.AdjustmentRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	var w whereBuilder
	w.requestFilter("ar", "adjustment_date", filter.RequestFilter)
	if filter.Kind != nil && *filter.Kind != "" {
		w.and("ar.kind = " + w.arg(*filter.Kind))
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM adjustment_requests ar ` + w.String()
	if err := q.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count adjustment requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM adjustment_requests ar
		JOIN employees e ON e.id = ar.employee_id
		%s
		ORDER BY ar.adjustment_date %s, ar.created_at %s
		LIMIT %s OFFSET %s
	`, adjustmentColumns, w.String(), sortDirection(filter.SortOrder), sortDirection(filter.SortOrder),
		w.arg(filter.Limit), w.arg(filter.Offset()))

	rows, err := q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list adjustment requests: %w", err)
	}
	defer rows.Close()

	var requests []adjustment.AdjustmentRequest
	for rows.Next() {
		req, err := scanAdjustment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan adjustment request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func (r *adjustmentRequestRepositoryImpl) LockSubject(ctx context.Context, id string) (workflow.Subject, error) {
	return lockSubject(ctx, GetQuerier(ctx, r.db), "adjustment_requests", "kind", id)
}

func (r *adjustmentRequestRepositoryImpl) ApplyTransition(ctx context.Context, t workflow.Transition) error {
	return applyTransition(ctx, GetQuerier(ctx, r.db), "adjustment_requests", t)
}
