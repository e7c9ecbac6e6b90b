package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
)

// punchInsertChunk keeps one INSERT well below the bind parameter limit.
const punchInsertChunk = 1000

type punchRepositoryImpl struct {
	db *database.DB
}

func NewPunchRepository(db *database.DB) attendance.PunchRepository {
	return &punchRepositoryImpl{db: db}
}

func (r *punchRepositoryImpl) InsertBatch(ctx context.Context, punches []attendance.RawPunch) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var inserted int64
	for start := 0; start < len(punches); start += punchInsertChunk {
		end := min(start+punchInsertChunk, len(punches))
		chunk := punches[start:end]

		valueStrings := make([]string, 0, len(chunk))
		valueArgs := make([]interface{}, 0, len(chunk)*6)
		for i, p := range chunk {
			base := i * 6
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d, $%d, $%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
			))
			valueArgs = append(valueArgs, p.ID, p.EmployeeID, p.DeviceID, p.PunchedAt, p.State, p.IngestedAt)
		}

		query := fmt.Sprintf(`
			INSERT INTO raw_punches (id, employee_id, device_id, punched_at, punch_state, ingested_at)
			VALUES %s
			ON CONFLICT (employee_id, punched_at, punch_state) DO NOTHING
		`, strings.Join(valueStrings, ", "))

		tag, err := q.Exec(ctx, query, valueArgs...)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert punches: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (r *punchRepositoryImpl) ListWindow(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.RawPunch, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, device_id, punched_at, punch_state, ingested_at
		FROM raw_punches
		WHERE employee_id = $1 AND punched_at >= $2 AND punched_at < $3
		ORDER BY punched_at, punch_state
	`, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	defer rows.Close()

	var punches []attendance.RawPunch
	for rows.Next() {
		var p attendance.RawPunch
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.DeviceID, &p.PunchedAt, &p.State, &p.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}

func (r *punchRepositoryImpl) ListPunchedEmployees(ctx context.Context, from, to time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT employee_id
		FROM raw_punches
		WHERE punched_at >= $1 AND punched_at < $2
		ORDER BY employee_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list punched employees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
