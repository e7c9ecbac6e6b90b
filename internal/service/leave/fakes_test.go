package leave

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBankRepo struct {
	mu          sync.Mutex
	banks       map[leave.BankKey]leave.Bank
	adjustments []leave.BankAdjustment
}

func newFakeBankRepo() *fakeBankRepo {
	return &fakeBankRepo{banks: map[leave.BankKey]leave.Bank{}}
}

func (r *fakeBankRepo) Get(_ context.Context, key leave.BankKey) (leave.Bank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.banks[key]
	if !ok {
		return leave.Bank{}, leave.ErrBankNotFound
	}
	return b, nil
}

func (r *fakeBankRepo) GetForUpdate(ctx context.Context, key leave.BankKey) (leave.Bank, error) {
	return r.Get(ctx, key)
}

func (r *fakeBankRepo) LockOrCreate(_ context.Context, key leave.BankKey) (leave.Bank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.banks[key]
	if !ok {
		b = leave.Bank{
			ID:            uuid.NewString(),
			EmployeeID:    key.EmployeeID,
			LeaveType:     key.LeaveType,
			Year:          key.Year,
			TotalDays:     decimal.Zero,
			UsedDays:      decimal.Zero,
			RemainingDays: decimal.Zero,
		}
		r.banks[key] = b
	}
	return b, nil
}

func (r *fakeBankRepo) UpdateBalance(_ context.Context, bank leave.Bank) (leave.Bank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := leave.BankKey{EmployeeID: bank.EmployeeID, LeaveType: bank.LeaveType, Year: bank.Year}
	bank.UpdatedAt = time.Now()
	r.banks[key] = bank
	return bank, nil
}

func (r *fakeBankRepo) AddAdjustment(_ context.Context, adj leave.BankAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments = append(r.adjustments, adj)
	return nil
}

func (r *fakeBankRepo) ListAdjustments(_ context.Context, key leave.BankKey) ([]leave.BankAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bank, ok := r.banks[key]
	if !ok {
		return nil, nil
	}
	var out []leave.BankAdjustment
	for _, a := range r.adjustments {
		if a.BankID == bank.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeSLVLRepo struct {
	mu       sync.Mutex
	requests map[string]leave.SLVLRequest
}

func newFakeSLVLRepo() *fakeSLVLRepo {
	return &fakeSLVLRepo{requests: map[string]leave.SLVLRequest{}}
}

func (r *fakeSLVLRepo) Create(_ context.Context, req leave.SLVLRequest) (leave.SLVLRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	r.requests[req.ID] = req
	return req, nil
}

func (r *fakeSLVLRepo) GetByID(_ context.Context, id string) (leave.SLVLRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return leave.SLVLRequest{}, leave.ErrSLVLRequestNotFound
	}
	return req, nil
}

func (r *fakeSLVLRepo) List(_ context.Context, filter leave.SLVLRequestFilter) ([]leave.SLVLRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.SLVLRequest
	for _, req := range r.requests {
		if filter.OwnEmployeeID != nil && *filter.OwnEmployeeID != req.EmployeeID {
			continue
		}
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSLVLRepo) LockSubject(_ context.Context, id string) (workflow.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return workflow.Subject{}, workflow.ErrRequestNotFound
	}
	return workflow.Subject{
		ID:           req.ID,
		Kind:         workflow.KindSLVL,
		EmployeeID:   req.EmployeeID,
		DepartmentID: req.DepartmentID,
		CreatedBy:    req.CreatedBy,
		Status:       req.Status,
	}, nil
}

func (r *fakeSLVLRepo) ApplyTransition(_ context.Context, t workflow.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := r.requests[t.RequestID]
	if req.Status != t.From {
		return &workflow.StateConflictError{RequestID: t.RequestID, Current: req.Status, Target: t.To}
	}
	req.Status = t.To
	r.requests[t.RequestID] = req
	return nil
}

// setStatus rolls a request back, standing in for a transaction rollback.
func (r *fakeSLVLRepo) setStatus(id string, status workflow.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := r.requests[id]
	req.Status = status
	r.requests[id] = req
}

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (r fakeEmployeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r fakeEmployeeRepo) GetByUserID(_ context.Context, userID string) (employee.Employee, error) {
	for _, e := range r.employees {
		if e.UserID != nil && *e.UserID == userID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r fakeEmployeeRepo) ListByIDs(_ context.Context, ids []string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, id := range ids {
		if e, ok := r.employees[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeFeed struct {
	mu   sync.Mutex
	adjs []attendance.DayAdjustment
}

func (f *fakeFeed) ApplyDayAdjustment(_ context.Context, adj attendance.DayAdjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjs = append(f.adjs, adj)
	return nil
}

type fakeRecorder struct {
	events []workflow.Event
}

func (r *fakeRecorder) Record(_ context.Context, e workflow.Event) error {
	r.events = append(r.events, e)
	return nil
}
