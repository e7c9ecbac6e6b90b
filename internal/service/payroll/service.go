package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"golang.org/x/sync/errgroup"
)

type PayrollServiceImpl struct {
	payroll.PayrollRepository
	employee.EmployeeRepository
}

func NewPayrollService(payrollRepository payroll.PayrollRepository, employeeRepository employee.EmployeeRepository) *PayrollServiceImpl {
	return &PayrollServiceImpl{
		PayrollRepository:  payrollRepository,
		EmployeeRepository: employeeRepository,
	}
}

// Summary aggregates one period per employee for payroll. Restricted to HRD
// and super admins.
func (s *PayrollServiceImpl) Summary(ctx context.Context, query payroll.SummaryQuery, actor workflow.Actor) (payroll.SummaryResponse, error) {
	if !actor.IsSuperAdmin && !actor.IsHRDManager {
		return payroll.SummaryResponse{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleHRDManager, workflow.RoleSuperAdmin},
			Action:   "read payroll summaries",
		}
	}
	if err := query.Validate(); err != nil {
		return payroll.SummaryResponse{}, err
	}
	period := query.Period()

	var (
		attendance  []payroll.AttendanceTotals
		overtime    []payroll.OvertimeBucket
		leave       []payroll.LeaveTotals
		adjustments []payroll.AdjustmentTotals
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		attendance, err = s.PayrollRepository.AttendanceTotals(gCtx, period)
		if err != nil {
			return fmt.Errorf("failed to aggregate attendance: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		overtime, err = s.PayrollRepository.OvertimeBuckets(gCtx, period)
		if err != nil {
			return fmt.Errorf("failed to aggregate overtime: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		leave, err = s.PayrollRepository.LeaveTotals(gCtx, period)
		if err != nil {
			return fmt.Errorf("failed to aggregate leave: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		adjustments, err = s.PayrollRepository.AdjustmentTotals(gCtx, period)
		if err != nil {
			return fmt.Errorf("failed to aggregate adjustments: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return payroll.SummaryResponse{}, err
	}

	builder := payroll.NewSummaryBuilder()
	builder.AddAttendance(attendance)
	builder.AddOvertime(overtime)
	builder.AddLeave(leave)
	builder.AddAdjustments(adjustments)

	if ids := builder.EmployeeIDs(); len(ids) > 0 {
		employees, err := s.EmployeeRepository.ListByIDs(ctx, ids)
		if err != nil {
			return payroll.SummaryResponse{}, fmt.Errorf("failed to load employees: %w", err)
		}
		builder.AddEmployees(employees)
	}

	summaries := builder.Build()
	slog.Info("payroll summary built",
		"start_date", query.StartDate,
		"end_date", query.EndDate,
		"employees", len(summaries),
		"actor_id", actor.UserID,
	)

	return payroll.SummaryResponse{
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		Employees: summaries,
	}, nil
}
