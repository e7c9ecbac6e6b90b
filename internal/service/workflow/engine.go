package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultBulkConcurrency = 8

// Engine applies approval transitions for the kinds it was built with. Each
// transition runs in one transaction: lock, plan, compare-and-set, hooks,
// audit event.
type Engine struct {
	defs            map[workflow.Kind]Definition
	store           workflow.Store
	tx              database.Transactor
	recorder        workflow.Recorder
	hooks           []workflow.Hook
	now             func() time.Time
	bulkConcurrency int
}

type Option func(*Engine)

// WithHooks registers hooks run after every applied transition.
func WithHooks(hooks ...workflow.Hook) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithBulkConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bulkConcurrency = n
		}
	}
}

func NewEngine(store workflow.Store, tx database.Transactor, recorder workflow.Recorder, defs []Definition, opts ...Option) (*Engine, error) {
	e := &Engine{
		defs:            make(map[workflow.Kind]Definition, len(defs)),
		store:           store,
		tx:              tx,
		recorder:        recorder,
		now:             time.Now,
		bulkConcurrency: defaultBulkConcurrency,
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		e.defs[d.Kind] = d
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddHook registers a hook after construction, for services that are
// themselves hooks of the engine they own.
func (e *Engine) AddHook(h workflow.Hook) {
	e.hooks = append(e.hooks, h)
}

// Transition moves request id to target on behalf of actor.
func (e *Engine) Transition(ctx context.Context, id string, target workflow.Status, actor workflow.Actor, remarks string) (workflow.Transition, error) {
	remarks = strings.TrimSpace(remarks)

	var applied workflow.Transition
	err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		subject, err := e.store.LockSubject(ctx, id)
		if err != nil {
			return err
		}

		def, ok := e.defs[subject.Kind]
		if !ok {
			return fmt.Errorf("%w: %s", workflow.ErrUnknownKind, subject.Kind)
		}

		t, err := def.Plan(subject, target, actor, remarks)
		if err != nil {
			return err
		}
		t.At = e.now()

		if err := e.store.ApplyTransition(ctx, t); err != nil {
			return err
		}

		for _, h := range e.hooks {
			if err := h.AfterTransition(ctx, subject, t); err != nil {
				return err
			}
		}

		if e.recorder != nil {
			event := workflow.Event{
				ID:           uuid.Must(uuid.NewV7()).String(),
				Kind:         subject.Kind,
				RequestID:    subject.ID,
				EmployeeID:   subject.EmployeeID,
				DepartmentID: subject.DepartmentID,
				OldStatus:    t.From,
				NewStatus:    t.To,
				ActorID:      t.ActorID,
				Remarks:      t.Remarks,
				OccurredAt:   t.At,
			}
			if err := e.recorder.Record(ctx, event); err != nil {
				return fmt.Errorf("record transition event: %w", err)
			}
		}

		applied = t
		return nil
	})
	if err != nil {
		return workflow.Transition{}, err
	}

	slog.Info("workflow transition applied",
		"kind", applied.Kind,
		"request_id", applied.RequestID,
		"from", applied.From,
		"to", applied.To,
		"actor_id", applied.ActorID,
	)
	return applied, nil
}

// Bulk applies the same target to every id. Each id runs in its own
// transaction, so one failure never rolls back another id.
func (e *Engine) Bulk(ctx context.Context, ids []string, target workflow.Status, actor workflow.Actor, remarks string) workflow.BulkResult {
	ids = dedupe(ids)

	type outcome struct {
		t   workflow.Transition
		err error
	}
	outcomes := make([]outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(e.bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			t, err := e.Transition(ctx, id, target, actor, remarks)
			outcomes[i] = outcome{t: t, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := workflow.BulkResult{
		Succeeded: []workflow.BulkSuccess{},
		Failed:    []workflow.BulkFailure{},
	}
	for i, o := range outcomes {
		if o.err != nil {
			if !IsRejection(o.err) {
				slog.Error("bulk transition failed", "request_id", ids[i], "error", o.err)
			}
			result.Failed = append(result.Failed, workflow.BulkFailure{ID: ids[i], Reason: o.err.Error(), Err: o.err})
			continue
		}
		result.Succeeded = append(result.Succeeded, workflow.BulkSuccess{ID: ids[i], Status: o.t.To})
	}

	if len(result.Failed) > 0 {
		slog.Warn("bulk transition partially failed",
			"target", target,
			"succeeded", len(result.Succeeded),
			"failed", len(result.Failed),
		)
	}
	return result
}

// IsRejection reports whether err is one of the expected per-request refusals
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	var verr validator.ValidationErrors
	return errors.Is(err, workflow.ErrStateConflict) ||
		errors.Is(err, workflow.ErrUnauthorized) ||
		errors.Is(err, workflow.ErrRequestNotFound) ||
		errors.As(err, &verr)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
