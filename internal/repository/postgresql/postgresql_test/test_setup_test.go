package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

// TestDatabaseSetup holds a connection to a migrated test database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema. It
// returns nil without error when the variable is unset.
func NewTestDatabase(ctx context.Context) (*TestDatabaseSetup, error) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		return nil, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 5, MinConns: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return setup, nil
}

func (t *TestDatabaseSetup) migrate(ctx context.Context) error {
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations", "0001_timekeeping.sql")

	schema, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := t.DB.Exec(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// TruncateAllTables empties every timekeeping table.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"outbox_events",
		"adjustment_requests",
		"slvl_requests",
		"slvl_bank_adjustments",
		"slvl_banks",
		"overtime_requests",
		"processed_attendances",
		"raw_punches",
		"department_managers",
		"employees",
		"departments",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// CreateEmployee inserts a department and one employee in it and returns
// their IDs.
func (t *TestDatabaseSetup) CreateEmployee(ctx context.Context, code string) (employeeID, departmentID string, err error) {
	departmentID = uuid.Must(uuid.NewV7()).String()
	employeeID = uuid.Must(uuid.NewV7()).String()

	if _, err = t.DB.Exec(ctx,
		`INSERT INTO departments (id, name) VALUES ($1, $2)`,
		departmentID, "Department "+code,
	); err != nil {
		return "", "", fmt.Errorf("failed to insert department: %w", err)
	}
	if _, err = t.DB.Exec(ctx, `
		INSERT INTO employees (id, user_id, employee_code, full_name, department_id, pay_type, base_rate)
		VALUES ($1, $2, $3, $4, $5, 'monthly', 30000)
	`, employeeID, uuid.Must(uuid.NewV7()).String(), code, "Employee "+code, departmentID); err != nil {
		return "", "", fmt.Errorf("failed to insert employee: %w", err)
	}
	return employeeID, departmentID, nil
}

// Close closes the database connection.
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
