package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type bankRepositoryImpl struct {
	db *database.DB
}

func NewBankRepository(db *database.DB) leave.BankRepository {
	return &bankRepositoryImpl{db: db}
}

const bankColumns = `
	id, employee_id, leave_type, year,
	total_days, used_days, remaining_days,
	created_at, updated_at
`

func scanBank(row pgx.Row) (leave.Bank, error) {
	var b leave.Bank
	err := row.Scan(
		&b.ID, &b.EmployeeID, &b.LeaveType, &b.Year,
		&b.TotalDays, &b.UsedDays, &b.RemainingDays,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *bankRepositoryImpl) get(ctx context.Context, key leave.BankKey, lock bool) (leave.Bank, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + bankColumns + `
		FROM slvl_banks
		WHERE employee_id = $1 AND leave_type = $2 AND year = $3
	`
	if lock {
		query += ` FOR UPDATE`
	}

	bank, err := scanBank(q.QueryRow(ctx, query, key.EmployeeID, key.LeaveType, key.Year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.Bank{}, leave.ErrBankNotFound
		}
		return leave.Bank{}, fmt.Errorf("failed to get leave bank: %w", err)
	}
	return bank, nil
}

func (r *bankRepositoryImpl) Get(ctx context.Context, key leave.BankKey) (leave.Bank, error) {
	return r.get(ctx, key, false)
}

func (r *bankRepositoryImpl) GetForUpdate(ctx context.Context, key leave.BankKey) (leave.Bank, error) {
	return r.get(ctx, key, true)
}

// LockOrCreate inserts an empty bank when none exists and locks the row.
// Concurrent callers race on the unique key; the loser's insert is a no-op.
func (r *bankRepositoryImpl) LockOrCreate(ctx context.Context, key leave.BankKey) (leave.Bank, error) {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO slvl_banks (id, employee_id, leave_type, year, total_days, used_days, remaining_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (employee_id, leave_type, year) DO NOTHING
	`, newID(), key.EmployeeID, key.LeaveType, key.Year)
	if err != nil {
		return leave.Bank{}, fmt.Errorf("failed to create leave bank: %w", err)
	}
	return r.get(ctx, key, true)
}

func (r *bankRepositoryImpl) UpdateBalance(ctx context.Context, bank leave.Bank) (leave.Bank, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE slvl_banks SET
			total_days = $1,
			used_days = $2,
			remaining_days = $3,
			updated_at = NOW()
		WHERE id = $4
		RETURNING ` + bankColumns

	updated, err := scanBank(q.QueryRow(ctx, query, bank.TotalDays, bank.UsedDays, bank.RemainingDays, bank.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.Bank{}, leave.ErrBankNotFound
		}
		return leave.Bank{}, fmt.Errorf("failed to update leave bank: %w", err)
	}
	return updated, nil
}

func (r *bankRepositoryImpl) AddAdjustment(ctx context.Context, adj leave.BankAdjustment) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO slvl_bank_adjustments (id, bank_id, kind, days, request_id, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, adj.ID, adj.BankID, adj.Kind, adj.Days, adj.RequestID, adj.ActorID, adj.Notes, adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record leave bank adjustment: %w", err)
	}
	return nil
}

func (r *bankRepositoryImpl) ListAdjustments(ctx context.Context, key leave.BankKey) ([]leave.BankAdjustment, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT a.id, a.bank_id, a.kind, a.days, a.request_id, a.actor_id, a.notes, a.created_at
		FROM slvl_bank_adjustments a
		JOIN slvl_banks b ON b.id = a.bank_id
		WHERE b.employee_id = $1 AND b.leave_type = $2 AND b.year = $3
		ORDER BY a.created_at, a.id
	`, key.EmployeeID, key.LeaveType, key.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave bank adjustments: %w", err)
	}
	defer rows.Close()

	adjustments := make([]leave.BankAdjustment, 0)
	for rows.Next() {
		var a leave.BankAdjustment
		if err := rows.Scan(&a.ID, &a.BankID, &a.Kind, &a.Days, &a.RequestID, &a.ActorID, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, a)
	}
	return adjustments, rows.Err()
}
