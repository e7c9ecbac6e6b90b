package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	subjects map[string]workflow.Subject
	applied  []workflow.Transition
}

func newMemoryStore(subjects ...workflow.Subject) *memoryStore {
	s := &memoryStore{subjects: map[string]workflow.Subject{}}
	for _, sub := range subjects {
		s.subjects[sub.ID] = sub
	}
	return s
}

func (s *memoryStore) LockSubject(_ context.Context, id string) (workflow.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subjects[id]
	if !ok {
		return workflow.Subject{}, workflow.ErrRequestNotFound
	}
	return sub, nil
}

func (s *memoryStore) ApplyTransition(_ context.Context, t workflow.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subjects[t.RequestID]
	if sub.Status != t.From {
		return &workflow.StateConflictError{RequestID: t.RequestID, Current: sub.Status, Target: t.To}
	}
	sub.Status = t.To
	s.subjects[t.RequestID] = sub
	s.applied = append(s.applied, t)
	return nil
}

func (s *memoryStore) status(id string) workflow.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects[id].Status
}

// inlineTx runs fn directly; rollback is simulated by the fake store not
// being touched after a failing step.
type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []workflow.Event
}

func (r *memoryRecorder) Record(_ context.Context, e workflow.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

var (
	deptManager = workflow.Actor{UserID: "u-mgr", IsDepartmentManager: true, ManagedDepartments: []string{"dept-1"}}
	otherMgr    = workflow.Actor{UserID: "u-other", IsDepartmentManager: true, ManagedDepartments: []string{"dept-2"}}
	hrd         = workflow.Actor{UserID: "u-hrd", IsHRDManager: true}
	superAdmin  = workflow.Actor{UserID: "u-admin", IsSuperAdmin: true}
	employee    = workflow.Actor{UserID: "u-emp"}
)

func overtimeSubject(id string, status workflow.Status) workflow.Subject {
	return workflow.Subject{ID: id, Kind: workflow.KindOvertime, EmployeeID: "emp-1", DepartmentID: "dept-1", CreatedBy: "u-emp", Status: status}
}

func newTestEngine(t *testing.T, store *memoryStore, rec *memoryRecorder, opts ...Option) *Engine {
	t.Helper()
	defs := []Definition{TwoStage(workflow.KindOvertime), SingleStage(workflow.KindSLVL)}
	e, err := NewEngine(store, inlineTx{}, rec, defs, opts...)
	require.NoError(t, err)
	return e
}

func TestDefinitionValidate(t *testing.T) {
	assert.NoError(t, TwoStage(workflow.KindOvertime).Validate())
	assert.NoError(t, SingleStage(workflow.KindRetro).Validate())

	broken := Definition{Kind: "x", Stages: []Stage{{Name: "a", Approvers: []workflow.Role{workflow.RoleHRDManager}, Reaches: workflow.StatusManagerApproved}}}
	assert.Error(t, broken.Validate())

	assert.Error(t, Definition{Kind: "x"}.Validate())
}

func TestPlan(t *testing.T) {
	twoStage := TwoStage(workflow.KindOvertime)
	single := SingleStage(workflow.KindSLVL)

	tests := []struct {
		name    string
		def     Definition
		status  workflow.Status
		target  workflow.Status
		actor   workflow.Actor
		remarks string
		wantErr error
		wantTo  workflow.Status
	}{
		{"dept manager approves first stage", twoStage, workflow.StatusPending, workflow.StatusManagerApproved, deptManager, "", nil, workflow.StatusManagerApproved},
		{"hrd approves second stage", twoStage, workflow.StatusManagerApproved, workflow.StatusApproved, hrd, "", nil, workflow.StatusApproved},
		{"pending cannot skip to approved", twoStage, workflow.StatusPending, workflow.StatusApproved, hrd, "", workflow.ErrStateConflict, ""},
		{"hrd cannot approve first stage", twoStage, workflow.StatusPending, workflow.StatusManagerApproved, hrd, "", workflow.ErrUnauthorized, ""},
		{"manager of other department", twoStage, workflow.StatusPending, workflow.StatusManagerApproved, otherMgr, "", workflow.ErrUnauthorized, ""},
		{"dept manager cannot do hrd stage", twoStage, workflow.StatusManagerApproved, workflow.StatusApproved, deptManager, "", workflow.ErrUnauthorized, ""},
		{"super admin passes any stage", twoStage, workflow.StatusPending, workflow.StatusManagerApproved, superAdmin, "", nil, workflow.StatusManagerApproved},
		{"reject with remarks at first stage", twoStage, workflow.StatusPending, workflow.StatusRejected, deptManager, "no budget", nil, workflow.StatusRejected},
		{"hrd rejects second stage without remarks", twoStage, workflow.StatusManagerApproved, workflow.StatusRejected, hrd, "", nil, workflow.StatusRejected},
		{"force from pending", twoStage, workflow.StatusPending, workflow.StatusForceApproved, superAdmin, "year end", nil, workflow.StatusForceApproved},
		{"force from manager approved", twoStage, workflow.StatusManagerApproved, workflow.StatusForceApproved, superAdmin, "year end", nil, workflow.StatusForceApproved},
		{"force by hrd", twoStage, workflow.StatusPending, workflow.StatusForceApproved, hrd, "please", workflow.ErrUnauthorized, ""},
		{"approved is terminal", twoStage, workflow.StatusApproved, workflow.StatusRejected, superAdmin, "late", workflow.ErrStateConflict, ""},
		{"rejected is terminal for force", twoStage, workflow.StatusRejected, workflow.StatusForceApproved, superAdmin, "override", workflow.ErrStateConflict, ""},
		{"force approved is terminal", twoStage, workflow.StatusForceApproved, workflow.StatusApproved, superAdmin, "", workflow.ErrStateConflict, ""},
		{"single stage dept manager", single, workflow.StatusPending, workflow.StatusApproved, deptManager, "", nil, workflow.StatusApproved},
		{"single stage hrd", single, workflow.StatusPending, workflow.StatusApproved, hrd, "", nil, workflow.StatusApproved},
		{"single stage has no manager approved", single, workflow.StatusPending, workflow.StatusManagerApproved, hrd, "", workflow.ErrStateConflict, ""},
		{"employee cannot approve", single, workflow.StatusPending, workflow.StatusApproved, employee, "", workflow.ErrUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := overtimeSubject("req-1", tt.status)
			sub.Kind = tt.def.Kind
			got, err := tt.def.Plan(sub, tt.target, tt.actor, tt.remarks)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.From)
			assert.Equal(t, tt.wantTo, got.To)
			assert.Equal(t, tt.actor.UserID, got.ActorID)
		})
	}
}

func TestPlanValidation(t *testing.T) {
	def := TwoStage(workflow.KindOvertime)
	var verr validator.ValidationErrors

	_, err := def.Plan(overtimeSubject("r", workflow.StatusPending), workflow.StatusPending, superAdmin, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr[0].Field)

	_, err = def.Plan(overtimeSubject("r", workflow.StatusPending), workflow.Status("cancelled"), superAdmin, "")
	require.ErrorAs(t, err, &verr)

	_, err = def.Plan(overtimeSubject("r", workflow.StatusPending), workflow.StatusRejected, deptManager, "  ")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "remarks", verr[0].Field)

	_, err = def.Plan(overtimeSubject("r", workflow.StatusPending), workflow.StatusForceApproved, superAdmin, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "remarks", verr[0].Field)
}

func TestEngineTransitionHappyPath(t *testing.T) {
	store := newMemoryStore(overtimeSubject("ot-1", workflow.StatusPending))
	rec := &memoryRecorder{}
	at := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	e := newTestEngine(t, store, rec, WithClock(func() time.Time { return at }))

	ctx := context.Background()
	tr, err := e.Transition(ctx, "ot-1", workflow.StatusManagerApproved, deptManager, "")
	require.NoError(t, err)
	assert.Equal(t, at, tr.At)
	assert.Equal(t, 0, tr.Stage)

	tr, err = e.Transition(ctx, "ot-1", workflow.StatusApproved, hrd, "ok")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Stage)
	assert.Equal(t, workflow.StatusApproved, store.status("ot-1"))

	require.Len(t, rec.events, 2)
	assert.Equal(t, workflow.StatusPending, rec.events[0].OldStatus)
	assert.Equal(t, workflow.StatusManagerApproved, rec.events[0].NewStatus)
	assert.Equal(t, "u-hrd", rec.events[1].ActorID)
	assert.Equal(t, "ok", rec.events[1].Remarks)
	assert.NotEmpty(t, rec.events[1].ID)

	_, err = e.Transition(ctx, "ot-1", workflow.StatusRejected, superAdmin, "too late")
	var conflict *workflow.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, workflow.StatusApproved, conflict.Current)
	assert.Len(t, rec.events, 2)
}

func TestEngineNotFoundAndUnknownKind(t *testing.T) {
	store := newMemoryStore(workflow.Subject{ID: "x-1", Kind: workflow.KindRetro, Status: workflow.StatusPending})
	e := newTestEngine(t, store, &memoryRecorder{})

	_, err := e.Transition(context.Background(), "missing", workflow.StatusApproved, superAdmin, "")
	assert.ErrorIs(t, err, workflow.ErrRequestNotFound)

	_, err = e.Transition(context.Background(), "x-1", workflow.StatusApproved, superAdmin, "")
	assert.ErrorIs(t, err, workflow.ErrUnknownKind)
}

func TestEngineHookFailureAbortsTransition(t *testing.T) {
	store := newMemoryStore(workflow.Subject{ID: "lv-1", Kind: workflow.KindSLVL, DepartmentID: "dept-1", Status: workflow.StatusPending})
	rec := &memoryRecorder{}
	hookErr := errors.New("insufficient balance")
	var calls int
	hook := workflow.HookFunc(func(_ context.Context, _ workflow.Subject, tr workflow.Transition) error {
		calls++
		if tr.To.IsGranted() {
			return hookErr
		}
		return nil
	})
	e := newTestEngine(t, store, rec, WithHooks(hook))

	_, err := e.Transition(context.Background(), "lv-1", workflow.StatusApproved, hrd, "")
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.events)
}

func TestEngineBulkPartialSuccess(t *testing.T) {
	subjects := []workflow.Subject{
		overtimeSubject("ot-1", workflow.StatusPending),
		overtimeSubject("ot-2", workflow.StatusPending),
		overtimeSubject("ot-3", workflow.StatusApproved),
		overtimeSubject("ot-4", workflow.StatusPending),
		overtimeSubject("ot-5", workflow.StatusPending),
	}
	store := newMemoryStore(subjects...)
	rec := &memoryRecorder{}
	e := newTestEngine(t, store, rec, WithBulkConcurrency(2))

	ids := []string{"ot-1", "ot-2", "ot-3", "ot-4", "ot-5", "ot-1"}
	result := e.Bulk(context.Background(), ids, workflow.StatusManagerApproved, deptManager, "")

	require.Len(t, result.Succeeded, 4)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "ot-3", result.Failed[0].ID)
	assert.ErrorIs(t, result.Failed[0].Err, workflow.ErrStateConflict)
	for _, s := range result.Succeeded {
		assert.Equal(t, workflow.StatusManagerApproved, s.Status)
		assert.Equal(t, workflow.StatusManagerApproved, store.status(s.ID))
	}
	assert.Equal(t, workflow.StatusApproved, store.status("ot-3"))
	assert.Len(t, rec.events, 4)
}

func TestEngineConcurrentTransitionsOnlyOneWins(t *testing.T) {
	store := newMemoryStore(overtimeSubject("ot-1", workflow.StatusPending))
	e := newTestEngine(t, store, &memoryRecorder{})

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.Transition(context.Background(), "ot-1", workflow.StatusManagerApproved, deptManager, fmt.Sprintf("attempt %d", i))
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, workflow.ErrStateConflict)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, store.applied, 1)
}
