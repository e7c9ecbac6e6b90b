package overtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	wfengine "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/workflow"
	"github.com/google/uuid"
)

type OvertimeServiceImpl struct {
	overtime.OvertimeRequestRepository
	employee.EmployeeRepository
	feed   attendance.Feed
	engine *wfengine.Engine
	loc    *time.Location
	now    func() time.Time
}

func NewOvertimeService(
	tx database.Transactor,
	requestRepository overtime.OvertimeRequestRepository,
	employeeRepository employee.EmployeeRepository,
	feed attendance.Feed,
	recorder workflow.Recorder,
	loc *time.Location,
	opts ...wfengine.Option,
) (*OvertimeServiceImpl, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &OvertimeServiceImpl{
		OvertimeRequestRepository: requestRepository,
		EmployeeRepository:        employeeRepository,
		feed:                      feed,
		loc:                       loc,
		now:                       time.Now,
	}

	engine, err := wfengine.NewEngine(requestRepository, tx, recorder,
		[]wfengine.Definition{wfengine.TwoStage(workflow.KindOvertime)}, opts...)
	if err != nil {
		return nil, err
	}
	engine.AddHook(s)
	s.engine = engine

	return s, nil
}

func (s *OvertimeServiceImpl) Create(ctx context.Context, req overtime.CreateOvertimeRequest, actor workflow.Actor) (overtime.OvertimeRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}

	emp, err := s.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return overtime.OvertimeRequestResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if actor.EmployeeID != emp.ID && !actor.CanReview(emp.DepartmentID) {
		return overtime.OvertimeRequestResponse{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleDepartmentManager, workflow.RoleHRDManager},
			Action:   "file overtime for another employee",
		}
	}

	date, start, end := req.Window(s.loc)
	ndHours := NightDifferentialHours(start, end)
	nightDiff := ndHours.IsPositive()
	if req.HasNightDifferential != nil {
		nightDiff = *req.HasNightDifferential
	}

	dayType := overtime.DayType(req.DayType)
	var res Resolution
	switch {
	case req.Multiplier() != nil:
		res = ClassifyMultiplier(*req.Multiplier())
		if res.OvertimeType == overtime.TypeOther {
			res.HasNightDifferential = nightDiff
		}
	case req.OvertimeType != nil:
		t := overtime.OvertimeType(*req.OvertimeType)
		m, _ := Lookup(t, nightDiff)
		res = Resolution{OvertimeType: t, RateMultiplier: m, HasNightDifferential: nightDiff}
	default:
		res = ResolveDay(dayType, req.BeyondFirstEight, nightDiff)
	}

	created, err := s.OvertimeRequestRepository.Create(ctx, overtime.OvertimeRequest{
		ID:                     uuid.Must(uuid.NewV7()).String(),
		EmployeeID:             emp.ID,
		DepartmentID:           emp.DepartmentID,
		Date:                   date,
		StartAt:                start,
		EndAt:                  end,
		TotalHours:             req.Hours(),
		DayType:                dayType,
		OvertimeType:           res.OvertimeType,
		HasNightDifferential:   res.HasNightDifferential,
		NightDifferentialHours: ndHours,
		RateMultiplier:         res.RateMultiplier,
		Reason:                 req.Reason,
		Status:                 workflow.StatusPending,
		CreatedBy:              actor.UserID,
	})
	if err != nil {
		return overtime.OvertimeRequestResponse{}, fmt.Errorf("failed to create overtime request: %w", err)
	}

	slog.Info("overtime request created",
		"request_id", created.ID,
		"employee_id", created.EmployeeID,
		"overtime_type", created.OvertimeType,
		"rate_multiplier", created.RateMultiplier.String(),
		"total_hours", created.TotalHours.String(),
	)
	return overtime.NewOvertimeRequestResponse(created), nil
}

func (s *OvertimeServiceImpl) Get(ctx context.Context, id string, actor workflow.Actor) (overtime.OvertimeRequestResponse, error) {
	req, err := s.OvertimeRequestRepository.GetByID(ctx, id)
	if err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}
	if actor.EmployeeID != req.EmployeeID && !actor.CanReview(req.DepartmentID) {
		return overtime.OvertimeRequestResponse{}, overtime.ErrOvertimeRequestNotFound
	}
	return overtime.NewOvertimeRequestResponse(req), nil
}

func (s *OvertimeServiceImpl) List(ctx context.Context, filter overtime.OvertimeRequestFilter, actor workflow.Actor) (overtime.ListOvertimeRequestResponse, error) {
	if err := filter.Validate(); err != nil {
		return overtime.ListOvertimeRequestResponse{}, err
	}
	filter.Scope(actor)

	requests, total, err := s.OvertimeRequestRepository.List(ctx, filter)
	if err != nil {
		return overtime.ListOvertimeRequestResponse{}, fmt.Errorf("failed to list overtime requests: %w", err)
	}

	responses := make([]overtime.OvertimeRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, overtime.NewOvertimeRequestResponse(r))
	}
	return overtime.ListOvertimeRequestResponse{
		Pagination: workflow.NewPagination(total, filter.Page, filter.Limit),
		Requests:   responses,
	}, nil
}

// UpdateRate overrides the multiplier of a pending request. The creator, the
// department's manager, HRD and super admins may do so.
func (s *OvertimeServiceImpl) UpdateRate(ctx context.Context, id string, req overtime.UpdateRateRequest, actor workflow.Actor) (overtime.OvertimeRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}

	current, err := s.OvertimeRequestRepository.GetByID(ctx, id)
	if err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}
	if actor.EmployeeID != current.EmployeeID && !actor.CanReview(current.DepartmentID) {
		return overtime.OvertimeRequestResponse{}, overtime.ErrOvertimeRequestNotFound
	}

	allowed := actor.UserID == current.CreatedBy ||
		actor.IsSuperAdmin ||
		actor.IsHRDManager ||
		actor.Manages(current.DepartmentID)
	if !allowed {
		return overtime.OvertimeRequestResponse{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleDepartmentManager, workflow.RoleHRDManager, workflow.RoleSuperAdmin},
			Action:   "override the overtime rate",
		}
	}
	if current.Status != workflow.StatusPending {
		return overtime.OvertimeRequestResponse{}, &workflow.StateConflictError{
			RequestID: current.ID,
			Current:   current.Status,
			Target:    workflow.StatusPending,
		}
	}

	res := ClassifyMultiplier(req.Multiplier())
	if res.OvertimeType == overtime.TypeOther {
		res.HasNightDifferential = current.HasNightDifferential
	}
	version := current.Version
	if req.Version != nil {
		version = *req.Version
	}

	updated, err := s.OvertimeRequestRepository.UpdateRate(ctx, overtime.RateUpdate{
		RequestID:            current.ID,
		OvertimeType:         res.OvertimeType,
		RateMultiplier:       res.RateMultiplier,
		HasNightDifferential: res.HasNightDifferential,
		EditedBy:             actor.UserID,
		EditedAt:             s.now(),
		Version:              version,
	})
	if err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}

	slog.Info("overtime rate overridden",
		"request_id", updated.ID,
		"previous_multiplier", current.RateMultiplier.String(),
		"rate_multiplier", updated.RateMultiplier.String(),
		"overtime_type", updated.OvertimeType,
		"actor_id", actor.UserID,
	)
	return overtime.NewOvertimeRequestResponse(updated), nil
}

func (s *OvertimeServiceImpl) Transition(ctx context.Context, id string, req workflow.TransitionRequest, actor workflow.Actor) (overtime.OvertimeRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}
	if _, err := s.engine.Transition(ctx, id, req.Target(), actor, req.Remarks); err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}
	updated, err := s.OvertimeRequestRepository.GetByID(ctx, id)
	if err != nil {
		return overtime.OvertimeRequestResponse{}, err
	}
	return overtime.NewOvertimeRequestResponse(updated), nil
}

func (s *OvertimeServiceImpl) BulkTransition(ctx context.Context, req workflow.BulkTransitionRequest, actor workflow.Actor) (workflow.BulkResult, error) {
	if err := req.Validate(); err != nil {
		return workflow.BulkResult{}, err
	}
	return s.engine.Bulk(ctx, req.IDs, req.Target(), actor, req.Remarks), nil
}

// AfterTransition adds granted overtime to the attendance day.
func (s *OvertimeServiceImpl) AfterTransition(ctx context.Context, subject workflow.Subject, t workflow.Transition) error {
	if !t.To.IsGranted() {
		return nil
	}

	req, err := s.OvertimeRequestRepository.GetByID(ctx, subject.ID)
	if err != nil {
		return fmt.Errorf("failed to load granted overtime request: %w", err)
	}

	hours := req.TotalHours
	if err := s.feed.ApplyDayAdjustment(ctx, attendance.DayAdjustment{
		EmployeeID:    req.EmployeeID,
		Date:          req.Date,
		OvertimeHours: &hours,
	}); err != nil {
		return fmt.Errorf("failed to feed attendance: %w", err)
	}
	return nil
}
