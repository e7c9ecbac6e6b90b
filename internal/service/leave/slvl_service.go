package leave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	wfengine "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/workflow"
	"github.com/google/uuid"
)

type SLVLServiceImpl struct {
	leave.SLVLRequestRepository
	employee.EmployeeRepository
	ledger leave.Ledger
	feed   attendance.Feed
	engine *wfengine.Engine
}

func NewSLVLService(
	tx database.Transactor,
	requestRepository leave.SLVLRequestRepository,
	employeeRepository employee.EmployeeRepository,
	ledger leave.Ledger,
	feed attendance.Feed,
	recorder workflow.Recorder,
	opts ...wfengine.Option,
) (*SLVLServiceImpl, error) {
	s := &SLVLServiceImpl{
		SLVLRequestRepository: requestRepository,
		EmployeeRepository:    employeeRepository,
		ledger:                ledger,
		feed:                  feed,
	}

	engine, err := wfengine.NewEngine(requestRepository, tx, recorder,
		[]wfengine.Definition{wfengine.SingleStage(workflow.KindSLVL)}, opts...)
	if err != nil {
		return nil, err
	}
	engine.AddHook(s)
	s.engine = engine

	return s, nil
}

func (s *SLVLServiceImpl) Create(ctx context.Context, req leave.CreateSLVLRequest, actor workflow.Actor) (leave.SLVLRequestResponse, error) {
	if err := req.Validate(); err != nil {
		slog.Info("SLVL request rejected",
			"employee_id", req.EmployeeID,
			"start_date", req.StartDate,
			"bank_year", req.ResolvedBankYear(),
			"error", err,
		)
		return leave.SLVLRequestResponse{}, err
	}

	emp, err := s.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return leave.SLVLRequestResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if actor.EmployeeID != emp.ID && !actor.CanReview(emp.DepartmentID) {
		return leave.SLVLRequestResponse{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleDepartmentManager, workflow.RoleHRDManager},
			Action:   "file leave for another employee",
		}
	}

	days := req.TotalDays()
	key := leave.BankKey{EmployeeID: emp.ID, LeaveType: leave.LeaveType(req.LeaveType), Year: req.ResolvedBankYear()}
	payType := leave.PayType(req.PayType)
	if err := s.ledger.CheckAvailable(ctx, key, days, payType); err != nil {
		return leave.SLVLRequestResponse{}, err
	}

	start, end := req.Dates()
	var period *leave.HalfDayPeriod
	if req.IsHalfDay {
		p := leave.HalfDayPeriod(*req.HalfDayPeriod)
		period = &p
	}

	created, err := s.SLVLRequestRepository.Create(ctx, leave.SLVLRequest{
		ID:            uuid.Must(uuid.NewV7()).String(),
		EmployeeID:    emp.ID,
		DepartmentID:  emp.DepartmentID,
		LeaveType:     key.LeaveType,
		StartDate:     start,
		EndDate:       end,
		TotalDays:     days,
		IsHalfDay:     req.IsHalfDay,
		HalfDayPeriod: period,
		PayType:       payType,
		BankYear:      key.Year,
		Reason:        req.Reason,
		Status:        workflow.StatusPending,
		CreatedBy:     actor.UserID,
	})
	if err != nil {
		return leave.SLVLRequestResponse{}, fmt.Errorf("failed to create SLVL request: %w", err)
	}

	slog.Info("SLVL request created",
		"request_id", created.ID,
		"employee_id", created.EmployeeID,
		"leave_type", created.LeaveType,
		"total_days", created.TotalDays.String(),
		"bank_year", created.BankYear,
	)
	return leave.NewSLVLRequestResponse(created), nil
}

func (s *SLVLServiceImpl) Get(ctx context.Context, id string, actor workflow.Actor) (leave.SLVLRequestResponse, error) {
	req, err := s.SLVLRequestRepository.GetByID(ctx, id)
	if err != nil {
		return leave.SLVLRequestResponse{}, err
	}
	if actor.EmployeeID != req.EmployeeID && !actor.CanReview(req.DepartmentID) {
		return leave.SLVLRequestResponse{}, leave.ErrSLVLRequestNotFound
	}
	return leave.NewSLVLRequestResponse(req), nil
}

func (s *SLVLServiceImpl) List(ctx context.Context, filter leave.SLVLRequestFilter, actor workflow.Actor) (leave.ListSLVLRequestResponse, error) {
	if err := filter.Validate(); err != nil {
		return leave.ListSLVLRequestResponse{}, err
	}
	filter.Scope(actor)

	requests, total, err := s.SLVLRequestRepository.List(ctx, filter)
	if err != nil {
		return leave.ListSLVLRequestResponse{}, fmt.Errorf("failed to list SLVL requests: %w", err)
	}

	responses := make([]leave.SLVLRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, leave.NewSLVLRequestResponse(r))
	}
	return leave.ListSLVLRequestResponse{
		Pagination: workflow.NewPagination(total, filter.Page, filter.Limit),
		Requests:   responses,
	}, nil
}

func (s *SLVLServiceImpl) Transition(ctx context.Context, id string, req workflow.TransitionRequest, actor workflow.Actor) (leave.SLVLRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.SLVLRequestResponse{}, err
	}
	if _, err := s.engine.Transition(ctx, id, req.Target(), actor, req.Remarks); err != nil {
		return leave.SLVLRequestResponse{}, err
	}
	updated, err := s.SLVLRequestRepository.GetByID(ctx, id)
	if err != nil {
		return leave.SLVLRequestResponse{}, err
	}
	return leave.NewSLVLRequestResponse(updated), nil
}

func (s *SLVLServiceImpl) BulkTransition(ctx context.Context, req workflow.BulkTransitionRequest, actor workflow.Actor) (workflow.BulkResult, error) {
	if err := req.Validate(); err != nil {
		return workflow.BulkResult{}, err
	}
	return s.engine.Bulk(ctx, req.IDs, req.Target(), actor, req.Remarks), nil
}

// AfterTransition commits the ledger and feeds attendance once the leave is
// granted. It runs inside the transition's transaction, so a refused debit
// leaves the request pending.
func (s *SLVLServiceImpl) AfterTransition(ctx context.Context, subject workflow.Subject, t workflow.Transition) error {
	if !t.To.IsGranted() {
		return nil
	}

	req, err := s.SLVLRequestRepository.GetByID(ctx, subject.ID)
	if err != nil {
		return fmt.Errorf("failed to load granted SLVL request: %w", err)
	}

	if req.PayType == leave.PayTypeWithPay {
		debit := leave.Debit{
			Key:       leave.BankKey{EmployeeID: req.EmployeeID, LeaveType: req.LeaveType, Year: req.BankYear},
			Days:      req.TotalDays,
			RequestID: req.ID,
			ActorID:   t.ActorID,
		}
		if t.IsForce() {
			_, err = s.ledger.ForceCommit(ctx, debit)
		} else {
			_, err = s.ledger.Commit(ctx, debit)
		}
		if err != nil {
			return fmt.Errorf("failed to commit leave ledger: %w", err)
		}
	}

	fraction := req.DayFraction()
	for day := req.StartDate; !day.After(req.EndDate); day = day.AddDate(0, 0, 1) {
		if err := s.feed.ApplyDayAdjustment(ctx, attendance.DayAdjustment{
			EmployeeID:   req.EmployeeID,
			Date:         day,
			SLVLFraction: &fraction,
		}); err != nil {
			return fmt.Errorf("failed to feed attendance: %w", err)
		}
	}
	return nil
}
