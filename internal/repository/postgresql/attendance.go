package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	pa.id, pa.employee_id, pa.attendance_date,
	pa.time_in, pa.time_out, pa.break_in, pa.break_out, pa.next_day_timeout,
	pa.hours_worked, pa.late_minutes, pa.undertime_minutes, pa.break_minutes, pa.net_worked_minutes,
	pa.is_nightshift, pa.is_processable, pa.anomaly,
	pa.overtime_hours, pa.travel_order_hours, pa.offset_hours, pa.slvl_fraction, pa.trip_count,
	pa.holiday_multiplier, pa.is_restday, pa.is_ct, pa.is_cs, pa.is_ob,
	pa.posting_status, pa.punch_digest, pa.version, pa.created_at, pa.updated_at
`

func attendanceDest(a *attendance.ProcessedAttendance) []interface{} {
	return []interface{}{
		&a.ID, &a.EmployeeID, &a.AttendanceDate,
		&a.TimeIn, &a.TimeOut, &a.BreakIn, &a.BreakOut, &a.NextDayTimeout,
		&a.HoursWorked, &a.LateMinutes, &a.UndertimeMinutes, &a.BreakMinutes, &a.NetWorkedMinutes,
		&a.IsNightshift, &a.IsProcessable, &a.Anomaly,
		&a.OvertimeHours, &a.TravelOrderHours, &a.OffsetHours, &a.SLVLFraction, &a.TripCount,
		&a.HolidayMultiplier, &a.IsRestday, &a.IsCT, &a.IsCS, &a.IsOB,
		&a.PostingStatus, &a.PunchDigest, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	}
}

// LockDay takes an advisory lock so that ingestion, recomputation and fed
// adjustments of one employee-day never interleave.
func (a *attendanceRepository) LockDay(ctx context.Context, day attendance.DayRef) error {
	return lockKey(ctx, GetQuerier(ctx, a.db), "attendance:"+day.Key())
}

func (a *attendanceRepository) GetByEmployeeDate(ctx context.Context, day attendance.DayRef) (attendance.ProcessedAttendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM processed_attendances pa
		WHERE pa.employee_id = $1 AND pa.attendance_date = $2::date
	`

	var att attendance.ProcessedAttendance
	err := q.QueryRow(ctx, query, day.EmployeeID, day.Date.Format("2006-01-02")).Scan(attendanceDest(&att)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.ProcessedAttendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.ProcessedAttendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	return att, nil
}

func (a *attendanceRepository) Upsert(ctx context.Context, record attendance.ProcessedAttendance) (attendance.ProcessedAttendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO processed_attendances AS pa (
			id, employee_id, attendance_date,
			time_in, time_out, break_in, break_out, next_day_timeout,
			hours_worked, late_minutes, undertime_minutes, break_minutes, net_worked_minutes,
			is_nightshift, is_processable, anomaly,
			overtime_hours, travel_order_hours, offset_hours, slvl_fraction, trip_count,
			holiday_multiplier, is_restday, is_ct, is_cs, is_ob,
			posting_status, punch_digest, version, created_at, updated_at
		) VALUES (
			$1, $2, $3::date,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26,
			'draft', $27, 1, NOW(), NOW()
		)
		ON CONFLICT (employee_id, attendance_date) DO UPDATE SET
			time_in = EXCLUDED.time_in,
			time_out = EXCLUDED.time_out,
			break_in = EXCLUDED.break_in,
			break_out = EXCLUDED.break_out,
			next_day_timeout = EXCLUDED.next_day_timeout,
			hours_worked = EXCLUDED.hours_worked,
			late_minutes = EXCLUDED.late_minutes,
			undertime_minutes = EXCLUDED.undertime_minutes,
			break_minutes = EXCLUDED.break_minutes,
			net_worked_minutes = EXCLUDED.net_worked_minutes,
			is_nightshift = EXCLUDED.is_nightshift,
			is_processable = EXCLUDED.is_processable,
			anomaly = EXCLUDED.anomaly,
			punch_digest = EXCLUDED.punch_digest,
			version = pa.version + 1,
			updated_at = NOW()
		WHERE pa.version = $28 AND pa.posting_status = 'draft'
		RETURNING ` + attendanceColumns

	var out attendance.ProcessedAttendance
	err := q.QueryRow(ctx, query,
		record.ID, record.EmployeeID, record.AttendanceDate.Format("2006-01-02"),
		record.TimeIn, record.TimeOut, record.BreakIn, record.BreakOut, record.NextDayTimeout,
		record.HoursWorked, record.LateMinutes, record.UndertimeMinutes, record.BreakMinutes, record.NetWorkedMinutes,
		record.IsNightshift, record.IsProcessable, record.Anomaly,
		record.OvertimeHours, record.TravelOrderHours, record.OffsetHours, record.SLVLFraction, record.TripCount,
		record.HolidayMultiplier, record.IsRestday, record.IsCT, record.IsCS, record.IsOB,
		record.PunchDigest,
		record.Version,
	).Scan(attendanceDest(&out)...)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return attendance.ProcessedAttendance{}, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	// The conflict branch matched no row: the day is posted or was changed
	// since it was read.
	current, err := a.GetByEmployeeDate(ctx, attendance.DayRef{EmployeeID: record.EmployeeID, Date: record.AttendanceDate})
	if err != nil {
		return attendance.ProcessedAttendance{}, err
	}
	if current.PostingStatus == attendance.PostingPosted {
		return attendance.ProcessedAttendance{}, attendance.ErrAttendancePosted
	}
	return attendance.ProcessedAttendance{}, attendance.ErrVersionConflict
}

func (a *attendanceRepository) ApplyAdjustment(ctx context.Context, adj attendance.DayAdjustment) (bool, error) {
	q := GetQuerier(ctx, a.db)

	if err := a.LockDay(ctx, attendance.DayRef{EmployeeID: adj.EmployeeID, Date: adj.Date}); err != nil {
		return false, err
	}

	query := `
		INSERT INTO processed_attendances AS pa (
			id, employee_id, attendance_date,
			overtime_hours, travel_order_hours, offset_hours, slvl_fraction, trip_count, is_ob,
			posting_status, version, created_at, updated_at
		) VALUES (
			$1, $2, $3::date,
			COALESCE($4::numeric, 0), COALESCE($5::numeric, 0), COALESCE($6::numeric, 0),
			COALESCE($7::numeric, 0), COALESCE($8::int, 0), COALESCE($9::boolean, FALSE),
			'draft', 1, NOW(), NOW()
		)
		ON CONFLICT (employee_id, attendance_date) DO UPDATE SET
			overtime_hours = pa.overtime_hours + COALESCE($4::numeric, 0),
			travel_order_hours = pa.travel_order_hours + COALESCE($5::numeric, 0),
			offset_hours = pa.offset_hours + COALESCE($6::numeric, 0),
			slvl_fraction = pa.slvl_fraction + COALESCE($7::numeric, 0),
			trip_count = pa.trip_count + COALESCE($8::int, 0),
			is_ob = COALESCE($9::boolean, pa.is_ob),
			version = pa.version + 1,
			updated_at = NOW()
		WHERE pa.posting_status = 'draft'
	`

	tag, err := q.Exec(ctx, query,
		newID(), adj.EmployeeID, adj.Date.Format("2006-01-02"),
		adj.OvertimeHours, adj.TravelOrderHours, adj.OffsetHours,
		adj.SLVLFraction, adj.TripCount, adj.IsOB,
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply attendance adjustment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (a *attendanceRepository) Post(ctx context.Context, req attendance.PostRequest) (int64, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE processed_attendances SET
			posting_status = 'posted',
			version = version + 1,
			updated_at = NOW()
		WHERE posting_status = 'draft'
		  AND attendance_date BETWEEN $1::date AND $2::date
		  AND (cardinality($3::uuid[]) = 0 OR employee_id = ANY($3::uuid[]))
	`

	employeeIDs := req.EmployeeIDs
	if employeeIDs == nil {
		employeeIDs = []string{}
	}
	tag, err := q.Exec(ctx, query, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), employeeIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to post attendance: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.ProcessedAttendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	var w whereBuilder
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		w.and("pa.employee_id = " + w.arg(*filter.EmployeeID))
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		w.and("pa.attendance_date >= " + w.arg(*filter.StartDate) + "::date")
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		w.and("pa.attendance_date <= " + w.arg(*filter.EndDate) + "::date")
	}
	if filter.OnlyAnomalies {
		w.and("pa.anomaly <> ''")
	}
	w.visible("e.department_id", "pa.employee_id", filter.VisibleDepartments, filter.OwnEmployeeID)

	countQuery := `
		SELECT COUNT(*)
		FROM processed_attendances pa
		JOIN employees e ON e.id = pa.employee_id
		` + w.String()

	var total int64
	if err := q.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, e.full_name
		FROM processed_attendances pa
		JOIN employees e ON e.id = pa.employee_id
		%s
		ORDER BY pa.attendance_date DESC, e.full_name ASC
		LIMIT %s OFFSET %s
	`, attendanceColumns, w.String(), w.arg(filter.Limit), w.arg(filter.Offset()))

	rows, err := q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.ProcessedAttendance
	for rows.Next() {
		var att attendance.ProcessedAttendance
		var name string
		if err := rows.Scan(append(attendanceDest(&att), &name)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		att.EmployeeName = &name
		records = append(records, att)
	}
	return records, total, rows.Err()
}
