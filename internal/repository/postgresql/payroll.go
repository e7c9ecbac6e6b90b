package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const grantedStatuses = `('approved', 'force_approved')`

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// periodArgs returns the positional args shared by every aggregate and the
// optional employee filter on column.
func periodArgs(period payroll.Period, column string) ([]interface{}, string) {
	args := []interface{}{period.From, period.To}
	if len(period.EmployeeIDs) == 0 {
		return args, ""
	}
	args = append(args, period.EmployeeIDs)
	return args, fmt.Sprintf(" AND %s = ANY($3::uuid[])", column)
}

func (r *payrollRepository) AttendanceTotals(ctx context.Context, period payroll.Period) ([]payroll.AttendanceTotals, error) {
	q := GetQuerier(ctx, r.db)

	args, employeeFilter := periodArgs(period, "employee_id")
	query := `
		SELECT
			employee_id,
			COUNT(*) FILTER (WHERE is_processable) AS days_present,
			COALESCE(SUM(hours_worked) FILTER (WHERE is_processable), 0) AS hours_worked,
			COALESCE(SUM(late_minutes) FILTER (WHERE is_processable), 0) AS late_minutes,
			COALESCE(SUM(undertime_minutes) FILTER (WHERE is_processable), 0) AS undertime_minutes,
			COUNT(*) FILTER (WHERE anomaly <> '') AS anomalies,
			COUNT(*) FILTER (WHERE posting_status = 'draft') AS unposted_days
		FROM processed_attendances
		WHERE attendance_date BETWEEN $1::date AND $2::date` + employeeFilter + `
		GROUP BY employee_id
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance totals: %w", err)
	}

	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payroll.AttendanceTotals, error) {
		var t payroll.AttendanceTotals
		err := row.Scan(&t.EmployeeID, &t.DaysPresent, &t.HoursWorked, &t.LateMinutes,
			&t.UndertimeMinutes, &t.Anomalies, &t.UnpostedDays)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan attendance totals: %w", err)
	}
	return totals, nil
}

func (r *payrollRepository) OvertimeBuckets(ctx context.Context, period payroll.Period) ([]payroll.OvertimeBucket, error) {
	q := GetQuerier(ctx, r.db)

	args, employeeFilter := periodArgs(period, "employee_id")
	query := `
		SELECT
			employee_id, overtime_type, rate_multiplier,
			SUM(total_hours) AS hours,
			SUM(night_differential_hours) AS night_differential_hours,
			COUNT(*) AS requests
		FROM overtime_requests
		WHERE overtime_date BETWEEN $1::date AND $2::date
			AND status IN ` + grantedStatuses + employeeFilter + `
		GROUP BY employee_id, overtime_type, rate_multiplier
		ORDER BY employee_id, rate_multiplier
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime buckets: %w", err)
	}

	buckets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payroll.OvertimeBucket, error) {
		var b payroll.OvertimeBucket
		err := row.Scan(&b.EmployeeID, &b.OvertimeType, &b.RateMultiplier,
			&b.Hours, &b.NightDifferentialHours, &b.Requests)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan overtime buckets: %w", err)
	}
	return buckets, nil
}

// LeaveTotals counts only the days of each request that fall inside the
// period. A half-day request is 0.5.
func (r *payrollRepository) LeaveTotals(ctx context.Context, period payroll.Period) ([]payroll.LeaveTotals, error) {
	q := GetQuerier(ctx, r.db)

	args, employeeFilter := periodArgs(period, "employee_id")
	query := `
		WITH clipped AS (
			SELECT
				employee_id, pay_type,
				((LEAST(end_date, $2::date) - GREATEST(start_date, $1::date) + 1)
					* CASE WHEN is_half_day THEN 0.5 ELSE 1 END)::numeric AS days
			FROM slvl_requests
			WHERE start_date <= $2::date AND end_date >= $1::date
				AND status IN ` + grantedStatuses + employeeFilter + `
		)
		SELECT
			employee_id,
			COALESCE(SUM(days) FILTER (WHERE pay_type = 'with_pay'), 0) AS with_pay_days,
			COALESCE(SUM(days) FILTER (WHERE pay_type = 'non_pay'), 0) AS non_pay_days
		FROM clipped
		GROUP BY employee_id
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave totals: %w", err)
	}

	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payroll.LeaveTotals, error) {
		var t payroll.LeaveTotals
		err := row.Scan(&t.EmployeeID, &t.WithPayDays, &t.NonPayDays)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan leave totals: %w", err)
	}
	return totals, nil
}

func (r *payrollRepository) AdjustmentTotals(ctx context.Context, period payroll.Period) ([]payroll.AdjustmentTotals, error) {
	q := GetQuerier(ctx, r.db)

	args, employeeFilter := periodArgs(period, "employee_id")
	query := `
		SELECT
			employee_id,
			COALESCE(SUM(hours) FILTER (WHERE kind = 'travel_order'), 0) AS travel_order_hours,
			COALESCE(SUM(trip_count) FILTER (WHERE kind = 'travel_order'), 0) AS trip_count,
			COALESCE(SUM(hours) FILTER (WHERE kind = 'offset'), 0) AS offset_hours,
			COUNT(DISTINCT adjustment_date) FILTER (WHERE kind = 'official_business') AS official_business_days,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'retro'), 0) AS retro_amount
		FROM adjustment_requests
		WHERE adjustment_date BETWEEN $1::date AND $2::date
			AND status IN ` + grantedStatuses + employeeFilter + `
		GROUP BY employee_id
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustment totals: %w", err)
	}

	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payroll.AdjustmentTotals, error) {
		var t payroll.AdjustmentTotals
		err := row.Scan(&t.EmployeeID, &t.TravelOrderHours, &t.TripCount,
			&t.OffsetHours, &t.OfficialBusinessDays, &t.RetroAmount)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan adjustment totals: %w", err)
	}
	return totals, nil
}
