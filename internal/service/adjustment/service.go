package adjustment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/adjustment"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	wfengine "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/workflow"
	"github.com/google/uuid"
)

type AdjustmentServiceImpl struct {
	adjustment.AdjustmentRequestRepository
	employee.EmployeeRepository
	feed   attendance.Feed
	engine *wfengine.Engine
}

func NewAdjustmentService(
	tx database.Transactor,
	requestRepository adjustment.AdjustmentRequestRepository,
	employeeRepository employee.EmployeeRepository,
	feed attendance.Feed,
	recorder workflow.Recorder,
	opts ...wfengine.Option,
) (*AdjustmentServiceImpl, error) {
	s := &AdjustmentServiceImpl{
		AdjustmentRequestRepository: requestRepository,
		EmployeeRepository:          employeeRepository,
		feed:                        feed,
	}

	defs := make([]wfengine.Definition, 0, len(adjustment.Kinds))
	for _, kind := range adjustment.Kinds {
		defs = append(defs, wfengine.SingleStage(kind))
	}
	engine, err := wfengine.NewEngine(requestRepository, tx, recorder, defs, opts...)
	if err != nil {
		return nil, err
	}
	engine.AddHook(s)
	s.engine = engine

	return s, nil
}

func (s *AdjustmentServiceImpl) Create(ctx context.Context, req adjustment.CreateAdjustmentRequest, actor workflow.Actor) (adjustment.AdjustmentRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return adjustment.AdjustmentRequestResponse{}, err
	}

	emp, err := s.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return adjustment.AdjustmentRequestResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if actor.EmployeeID != emp.ID && !actor.CanReview(emp.DepartmentID) {
		return adjustment.AdjustmentRequestResponse{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleDepartmentManager, workflow.RoleHRDManager},
			Action:   "file an adjustment for another employee",
		}
	}

	date, hours, amount := req.Parsed()
	created, err := s.AdjustmentRequestRepository.Create(ctx, adjustment.AdjustmentRequest{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Kind:         workflow.Kind(req.Kind),
		EmployeeID:   emp.ID,
		DepartmentID: emp.DepartmentID,
		Date:         date,
		Hours:        hours,
		TripCount:    req.Trips(),
		Amount:       amount,
		Reason:       req.Reason,
		Status:       workflow.StatusPending,
		CreatedBy:    actor.UserID,
	})
	if err != nil {
		return adjustment.AdjustmentRequestResponse{}, fmt.Errorf("failed to create adjustment request: %w", err)
	}

	slog.Info("adjustment request created",
		"request_id", created.ID,
		"kind", created.Kind,
		"employee_id", created.EmployeeID,
		"date", created.Date.Format("2006-01-02"),
	)
	return adjustment.NewAdjustmentRequestResponse(created), nil
}

func (s *AdjustmentServiceImpl) Get(ctx context.Context, id string, actor workflow.Actor) (adjustment.AdjustmentRequestResponse, error) {
	req, err := s.AdjustmentRequestRepository.GetByID(ctx, id)
	if err != nil {
		return adjustment.AdjustmentRequestResponse{}, err
	}
	if actor.EmployeeID != req.EmployeeID && !actor.CanReview(req.DepartmentID) {
		return adjustment.AdjustmentRequestResponse{}, adjustment.ErrAdjustmentRequestNotFound
	}
	return adjustment.NewAdjustmentRequestResponse(req), nil
}

func (s *AdjustmentServiceImpl) List(ctx context.Context, filter adjustment.AdjustmentRequestFilter, actor workflow.Actor) (adjustment.ListAdjustmentRequestResponse, error) {
	if err := filter.Validate(); err != nil {
		return adjustment.ListAdjustmentRequestResponse{}, err
	}
	filter.Scope(actor)

	requests, total, err := s.AdjustmentRequestRepository.List(ctx, filter)
	if err != nil {
		return adjustment.ListAdjustmentRequestResponse{}, fmt.Errorf("failed to list adjustment requests: %w", err)
	}

	responses := make([]adjustment.AdjustmentRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, adjustment.NewAdjustmentRequestResponse(r))
	}
	return adjustment.ListAdjustmentRequestResponse{
		Pagination: workflow.NewPagination(total, filter.Page, filter.Limit),
		Requests:   responses,
	}, nil
}

func (s *AdjustmentServiceImpl) Transition(ctx context.Context, id string, req workflow.TransitionRequest, actor workflow.Actor) (adjustment.AdjustmentRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return adjustment.AdjustmentRequestResponse{}, err
	}
	if _, err := s.engine.Transition(ctx, id, req.Target(), actor, req.Remarks); err != nil {
		return adjustment.AdjustmentRequestResponse{}, err
	}
	updated, err := s.AdjustmentRequestRepository.GetByID(ctx, id)
	if err != nil {
		return adjustment.AdjustmentRequestResponse{}, err
	}
	return adjustment.NewAdjustmentRequestResponse(updated), nil
}

func (s *AdjustmentServiceImpl) BulkTransition(ctx context.Context, req workflow.BulkTransitionRequest, actor workflow.Actor) (workflow.BulkResult, error) {
	if err := req.Validate(); err != nil {
		return workflow.BulkResult{}, err
	}
	return s.engine.Bulk(ctx, req.IDs, req.Target(), actor, req.Remarks), nil
}

// AfterTransition records a granted adjustment on its attendance day. Retro
// claims are settled by payroll and leave the day untouched.
func (s *AdjustmentServiceImpl) AfterTransition(ctx context.Context, subject workflow.Subject, t workflow.Transition) error {
	if !t.To.IsGranted() {
		return nil
	}

	req, err := s.AdjustmentRequestRepository.GetByID(ctx, subject.ID)
	if err != nil {
		return fmt.Errorf("failed to load granted adjustment request: %w", err)
	}

	adj, ok := dayAdjustment(req)
	if !ok {
		return nil
	}
	if err := s.feed.ApplyDayAdjustment(ctx, adj); err != nil {
		return fmt.Errorf("failed to feed attendance: %w", err)
	}
	return nil
}

func dayAdjustment(req adjustment.AdjustmentRequest) (attendance.DayAdjustment, bool) {
	adj := attendance.DayAdjustment{EmployeeID: req.EmployeeID, Date: req.Date}
	hours := req.Hours

	switch req.Kind {
	case workflow.KindTravelOrder:
		trips := req.TripCount
		adj.TravelOrderHours = &hours
		adj.TripCount = &trips
	case workflow.KindOffset:
		adj.OffsetHours = &hours
	case workflow.KindOfficialBusiness:
		ob := true
		adj.IsOB = &ob
	default:
		return attendance.DayAdjustment{}, false
	}
	return adj, true
}
