package leave

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slvlFixture struct {
	svc      *SLVLServiceImpl
	ledger   *LedgerService
	requests *fakeSLVLRepo
	feed     *fakeFeed
	recorder *fakeRecorder
}

var (
	employeeActor = workflow.Actor{UserID: "u-emp", EmployeeID: "emp-1"}
	managerActor  = workflow.Actor{UserID: "u-mgr", EmployeeID: "emp-9", IsDepartmentManager: true, ManagedDepartments: []string{"dept-1"}}
)

func newSLVLFixture(t *testing.T) slvlFixture {
	t.Helper()
	employees := fakeEmployeeRepo{employees: map[string]employee.Employee{
		"emp-1": {ID: "emp-1", FullName: "Ana Cruz", DepartmentID: "dept-1"},
		"emp-2": {ID: "emp-2", FullName: "Ben Reyes", DepartmentID: "dept-2"},
	}}
	ledger := NewLedgerService(inlineTx{}, newFakeBankRepo())
	requests := newFakeSLVLRepo()
	feed := &fakeFeed{}
	recorder := &fakeRecorder{}

	svc, err := NewSLVLService(inlineTx{}, requests, employees, ledger, feed, recorder)
	require.NoError(t, err)
	return slvlFixture{svc: svc, ledger: ledger, requests: requests, feed: feed, recorder: recorder}
}

func strPtr(s string) *string { return &s }

func TestCreateSLVLRequestValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   leave.CreateSLVLRequest
		field string
	}{
		{
			name:  "end before start",
			req:   leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "sick", PayType: "non_pay", StartDate: "2025-03-05", EndDate: "2025-03-04"},
			field: "end_date",
		},
		{
			name:  "half day spanning two dates",
			req:   leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "sick", PayType: "non_pay", StartDate: "2025-03-04", EndDate: "2025-03-05", IsHalfDay: true, HalfDayPeriod: strPtr("am")},
			field: "is_half_day",
		},
		{
			name:  "half day without period",
			req:   leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "sick", PayType: "non_pay", StartDate: "2025-03-04", EndDate: "2025-03-04", IsHalfDay: true},
			field: "half_day_period",
		},
		{
			name:  "unknown leave type",
			req:   leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "maternity", PayType: "non_pay", StartDate: "2025-03-04", EndDate: "2025-03-04"},
			field: "leave_type",
		},
		{
			name:  "more than 100 days",
			req:   leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "vacation", PayType: "non_pay", StartDate: "2025-01-01", EndDate: "2025-06-30"},
			field: "end_date",
		},
		{
			name:  "bank year too far from leave dates",
			req:   leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "vacation", PayType: "non_pay", StartDate: "2025-03-04", EndDate: "2025-03-04", BankYear: intPtr(2019)},
			field: "bank_year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			var verr validator.ValidationErrors
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.ToMap(), tt.field)
		})
	}
}

func intPtr(i int) *int { return &i }

func TestCreateSLVLRequestCrossYearBank(t *testing.T) {
	req := leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "vacation", PayType: "non_pay", StartDate: "2024-12-30", EndDate: "2025-01-02", BankYear: intPtr(2025)}
	require.NoError(t, req.Validate())
	assert.Equal(t, 2025, req.ResolvedBankYear())
	assert.True(t, req.TotalDays().Equal(d("4")))

	req = leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "vacation", PayType: "non_pay", StartDate: "2025-01-06", EndDate: "2025-01-06", BankYear: intPtr(2024)}
	require.NoError(t, req.Validate())
	assert.Equal(t, 2024, req.ResolvedBankYear())

	req = leave.CreateSLVLRequest{EmployeeID: "emp-1", LeaveType: "vacation", PayType: "non_pay", StartDate: "2025-03-04", EndDate: "2025-03-04", BankYear: intPtr(2022)}
	require.NoError(t, req.Validate())
	assert.Equal(t, 2022, req.ResolvedBankYear())
}

func TestCreateSLVLRequestChecksBalanceForWithPay(t *testing.T) {
	f := newSLVLFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "vacation", PayType: "with_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-05",
	}, employeeActor)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	resp, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "vacation", PayType: "non_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-05",
	}, employeeActor)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, resp.Status)
	assert.Equal(t, "dept-1", resp.DepartmentID)
	assert.Equal(t, 2025, resp.BankYear)
}

func TestCreateSLVLRequestForAnotherEmployee(t *testing.T) {
	f := newSLVLFixture(t)
	_, err := f.svc.Create(context.Background(), leave.CreateSLVLRequest{
		EmployeeID: "emp-2", LeaveType: "sick", PayType: "non_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-04",
	}, managerActor)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestApproveSLVLCommitsLedgerOnce(t *testing.T) {
	f := newSLVLFixture(t)
	ctx := context.Background()
	allocate(t, f.ledger, vacation25, "10")

	created, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "vacation", PayType: "with_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-06",
	}, employeeActor)
	require.NoError(t, err)

	resp, err := f.svc.Transition(ctx, created.ID, workflow.TransitionRequest{Status: "approved"}, managerActor)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, resp.Status)

	bank, err := f.ledger.GetBalance(ctx, vacation25)
	require.NoError(t, err)
	assert.True(t, bank.UsedDays.Equal(d("3")))
	assert.True(t, bank.RemainingDays.Equal(d("7")))

	require.Len(t, f.feed.adjs, 3)
	assert.True(t, f.feed.adjs[0].SLVLFraction.Equal(d("1")))
	assert.Len(t, f.recorder.events, 1)

	_, err = f.svc.Transition(ctx, created.ID, workflow.TransitionRequest{Status: "approved"}, managerActor)
	assert.ErrorIs(t, err, workflow.ErrStateConflict)
	bank, _ = f.ledger.GetBalance(ctx, vacation25)
	assert.True(t, bank.UsedDays.Equal(d("3")), "a second approval must not debit again")
}

func TestApproveSLVLFailsWhenBalanceSpentMeanwhile(t *testing.T) {
	f := newSLVLFixture(t)
	ctx := context.Background()
	allocate(t, f.ledger, vacation25, "3")

	first, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "vacation", PayType: "with_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-05",
	}, employeeActor)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "vacation", PayType: "with_pay",
		StartDate: "2025-04-01", EndDate: "2025-04-02",
	}, employeeActor)
	require.NoError(t, err, "pending requests do not reserve balance")

	_, err = f.svc.Transition(ctx, first.ID, workflow.TransitionRequest{Status: "approved"}, managerActor)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, second.ID, workflow.TransitionRequest{Status: "approved"}, managerActor)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
	// The fake store has no rollback; a real transaction leaves the request pending.
	f.requests.setStatus(second.ID, workflow.StatusPending)

	_, err = f.svc.Transition(ctx, second.ID, workflow.TransitionRequest{Status: "force_approved", Remarks: "approved by CEO"}, adminActor)
	require.NoError(t, err)
	bank, _ := f.ledger.GetBalance(ctx, vacation25)
	assert.True(t, bank.RemainingDays.Equal(d("-1")))
}

func TestRejectSLVLDoesNotTouchLedger(t *testing.T) {
	f := newSLVLFixture(t)
	ctx := context.Background()
	allocate(t, f.ledger, vacation25, "5")

	created, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "vacation", PayType: "with_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-04", IsHalfDay: true, HalfDayPeriod: strPtr("pm"),
	}, employeeActor)
	require.NoError(t, err)
	assert.True(t, created.TotalDays.Equal(d("0.5")))

	_, err = f.svc.Transition(ctx, created.ID, workflow.TransitionRequest{Status: "rejected"}, managerActor)
	var verr validator.ValidationErrors
	require.ErrorAs(t, err, &verr, "rejection needs remarks")

	resp, err := f.svc.Transition(ctx, created.ID, workflow.TransitionRequest{Status: "rejected", Remarks: "peak season"}, managerActor)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, resp.Status)

	bank, _ := f.ledger.GetBalance(ctx, vacation25)
	assert.True(t, bank.UsedDays.IsZero())
	assert.Empty(t, f.feed.adjs)
}

func TestGetSLVLRequestHiddenFromOtherEmployees(t *testing.T) {
	f := newSLVLFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, leave.CreateSLVLRequest{
		EmployeeID: "emp-1", LeaveType: "sick", PayType: "non_pay",
		StartDate: "2025-03-04", EndDate: "2025-03-04",
	}, employeeActor)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, created.ID, workflow.Actor{UserID: "u-x", EmployeeID: "emp-2"})
	assert.ErrorIs(t, err, leave.ErrSLVLRequestNotFound)

	got, err := f.svc.Get(ctx, created.ID, managerActor)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}
