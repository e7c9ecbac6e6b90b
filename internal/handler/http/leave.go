package http

import (
	"net/http"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	CreateRequest(w http.ResponseWriter, r *http.Request)
	ListRequests(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	TransitionRequest(w http.ResponseWriter, r *http.Request)
	BulkTransitionRequests(w http.ResponseWriter, r *http.Request)

	GetBalance(w http.ResponseWriter, r *http.Request)
	Allocate(w http.ResponseWriter, r *http.Request)
	ListBankAdjustments(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	slvlService        leave.SLVLService
	ledger             leave.Ledger
	employeeRepository employee.EmployeeRepository
}

func NewLeaveHandler(slvlService leave.SLVLService, ledger leave.Ledger, employeeRepository employee.EmployeeRepository) LeaveHandler {
	return &LeaveHandlerImpl{
		slvlService:        slvlService,
		ledger:             ledger,
		employeeRepository: employeeRepository,
	}
}

func (l *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req leave.CreateSLVLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := l.slvlService.Create(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "SLVL request created", result)
}

func (l *LeaveHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	filter := leave.SLVLRequestFilter{
		RequestFilter: parseRequestFilter(r),
		LeaveType:     queryString(r, "leave_type"),
		PayType:       queryString(r, "pay_type"),
	}

	result, err := l.slvlService.List(r.Context(), filter, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := l.slvlService.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (l *LeaveHandlerImpl) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req workflow.TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := l.slvlService.Transition(r.Context(), chi.URLParam(r, "id"), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (l *LeaveHandlerImpl) BulkTransitionRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req workflow.BulkTransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := l.slvlService.BulkTransition(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// bankQuery parses and authorizes a bank lookup. Employees see their own
// banks, reviewers those of the departments they review.
func (l *LeaveHandlerImpl) bankQuery(w http.ResponseWriter, r *http.Request) (leave.BankKey, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return leave.BankKey{}, false
	}

	q := leave.BalanceQuery{
		EmployeeID: r.URL.Query().Get("employee_id"),
		LeaveType:  r.URL.Query().Get("leave_type"),
		Year:       queryInt(r, "year"),
	}
	if q.EmployeeID == "" {
		q.EmployeeID = actor.EmployeeID
	}
	if err := q.Validate(); err != nil {
		response.HandleError(w, err)
		return leave.BankKey{}, false
	}

	if q.EmployeeID != actor.EmployeeID {
		emp, err := l.employeeRepository.GetByID(r.Context(), q.EmployeeID)
		if err != nil {
			response.HandleError(w, err)
			return leave.BankKey{}, false
		}
		if !actor.CanReview(emp.DepartmentID) {
			response.HandleError(w, employee.ErrEmployeeNotFound)
			return leave.BankKey{}, false
		}
	}
	return q.Key(), true
}

func (l *LeaveHandlerImpl) GetBalance(w http.ResponseWriter, r *http.Request) {
	key, ok := l.bankQuery(w, r)
	if !ok {
		return
	}

	bank, err := l.ledger.GetBalance(r.Context(), key)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, leave.NewBalanceResponse(bank))
}

func (l *LeaveHandlerImpl) Allocate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req leave.AllocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bank, err := l.ledger.Allocate(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave allocated", leave.NewBalanceResponse(bank))
}

func (l *LeaveHandlerImpl) ListBankAdjustments(w http.ResponseWriter, r *http.Request) {
	key, ok := l.bankQuery(w, r)
	if !ok {
		return
	}

	adjustments, err := l.ledger.ListAdjustments(r.Context(), key)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	responses := make([]leave.BankAdjustmentResponse, 0, len(adjustments))
	for _, a := range adjustments {
		responses = append(responses, leave.NewBankAdjustmentResponse(a))
	}
	response.Success(w, responses)
}
