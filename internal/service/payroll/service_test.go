package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayrollRepo struct {
	attendance  []payroll.AttendanceTotals
	overtime    []payroll.OvertimeBucket
	leave       []payroll.LeaveTotals
	adjustments []payroll.AdjustmentTotals
	err         error
}

func (r fakePayrollRepo) AttendanceTotals(context.Context, payroll.Period) ([]payroll.AttendanceTotals, error) {
	return r.attendance, nil
}

func (r fakePayrollRepo) OvertimeBuckets(context.Context, payroll.Period) ([]payroll.OvertimeBucket, error) {
	return r.overtime, r.err
}

func (r fakePayrollRepo) LeaveTotals(context.Context, payroll.Period) ([]payroll.LeaveTotals, error) {
	return r.leave, nil
}

func (r fakePayrollRepo) AdjustmentTotals(context.Context, payroll.Period) ([]payroll.AdjustmentTotals, error) {
	return r.adjustments, nil
}

type fakeEmployeeRepo struct {
	employees []employee.Employee
}

func (r fakeEmployeeRepo) GetByID(context.Context, string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r fakeEmployeeRepo) GetByUserID(context.Context, string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r fakeEmployeeRepo) ListByIDs(context.Context, []string) ([]employee.Employee, error) {
	return r.employees, nil
}

var hrdActor = workflow.Actor{UserID: "u-hrd", IsHRDManager: true}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummaryMergesAggregates(t *testing.T) {
	repo := fakePayrollRepo{
		attendance: []payroll.AttendanceTotals{
			{EmployeeID: "emp-b", DaysPresent: 10, HoursWorked: d("78.5"), LateMinutes: 42, UndertimeMinutes: 90, Anomalies: 1},
			{EmployeeID: "emp-a", DaysPresent: 11, HoursWorked: d("88")},
		},
		overtime: []payroll.OvertimeBucket{
			{EmployeeID: "emp-b", OvertimeType: overtime.TypeRegularWeekday, RateMultiplier: d("1.25"), Hours: d("4"), Requests: 2},
			{EmployeeID: "emp-b", OvertimeType: overtime.TypeRestDay, RateMultiplier: d("1.43"), Hours: d("3.5"), NightDifferentialHours: d("2"), Requests: 1},
		},
		leave: []payroll.LeaveTotals{
			{EmployeeID: "emp-a", WithPayDays: d("1.5"), NonPayDays: d("1")},
		},
		adjustments: []payroll.AdjustmentTotals{
			{EmployeeID: "emp-c", TravelOrderHours: d("6"), TripCount: 2, RetroAmount: d("1500")},
		},
	}
	employees := fakeEmployeeRepo{employees: []employee.Employee{
		{ID: "emp-a", EmployeeCode: "E-001", FullName: "Ana Cruz", PayType: employee.PayTypeMonthly},
		{ID: "emp-b", EmployeeCode: "E-002", FullName: "Ben Reyes", PayType: employee.PayTypeDaily},
		{ID: "emp-c", EmployeeCode: "E-003", FullName: "Cara Lim", PayType: employee.PayTypeHourly},
	}}
	svc := NewPayrollService(repo, employees)

	resp, err := svc.Summary(context.Background(), payroll.SummaryQuery{StartDate: "2025-03-01", EndDate: "2025-03-15"}, hrdActor)
	require.NoError(t, err)
	require.Len(t, resp.Employees, 3)

	a, b, c := resp.Employees[0], resp.Employees[1], resp.Employees[2]
	assert.Equal(t, "emp-a", a.EmployeeID)
	assert.Equal(t, "emp-b", b.EmployeeID)
	assert.Equal(t, "emp-c", c.EmployeeID)

	assert.True(t, a.WithPayLeaveDays.Equal(d("1.5")))
	assert.True(t, a.NonPayLeaveDays.Equal(d("1")))
	assert.True(t, a.OvertimeHours.IsZero())
	assert.Empty(t, a.OvertimeBuckets)

	assert.Equal(t, 42, b.LateMinutes)
	assert.Equal(t, 1, b.Anomalies)
	assert.True(t, b.OvertimeHours.Equal(d("7.5")))
	assert.Len(t, b.OvertimeBuckets, 2)
	require.NotNil(t, b.FullName)
	assert.Equal(t, "Ben Reyes", *b.FullName)

	assert.Equal(t, 0, c.DaysPresent)
	assert.Equal(t, 2, c.TripCount)
	assert.True(t, c.RetroAmount.Equal(d("1500")))
}

func TestSummaryRequiresPayrollRole(t *testing.T) {
	svc := NewPayrollService(fakePayrollRepo{}, fakeEmployeeRepo{})

	_, err := svc.Summary(context.Background(), payroll.SummaryQuery{StartDate: "2025-03-01", EndDate: "2025-03-15"},
		workflow.Actor{UserID: "u-mgr", IsDepartmentManager: true, ManagedDepartments: []string{"dept-1"}})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestSummaryValidation(t *testing.T) {
	svc := NewPayrollService(fakePayrollRepo{}, fakeEmployeeRepo{})

	tests := []struct {
		name  string
		query payroll.SummaryQuery
		field string
	}{
		{"inverted", payroll.SummaryQuery{StartDate: "2025-03-15", EndDate: "2025-03-01"}, "end_date"},
		{"too long", payroll.SummaryQuery{StartDate: "2025-01-01", EndDate: "2025-06-01"}, "end_date"},
		{"bad employee id", payroll.SummaryQuery{StartDate: "2025-03-01", EndDate: "2025-03-15", EmployeeIDs: []string{"nope"}}, "employee_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Summary(context.Background(), tt.query, hrdActor)
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.ToMap(), tt.field)
		})
	}
}

func TestSummaryPropagatesRepositoryError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewPayrollService(fakePayrollRepo{err: boom}, fakeEmployeeRepo{})

	_, err := svc.Summary(context.Background(), payroll.SummaryQuery{StartDate: "2025-03-01", EndDate: "2025-03-15"}, hrdActor)
	assert.ErrorIs(t, err, boom)
}
