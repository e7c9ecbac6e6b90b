package workflow

import "context"

// Store persists the status of one family of requests.
type Store interface {
	// LockSubject loads the request and locks it until the enclosing
	// transaction ends. Returns ErrRequestNotFound when absent.
	LockSubject(ctx context.Context, id string) (Subject, error)
	// ApplyTransition writes t only if the stored status still equals t.From,
	// returning a *StateConflictError otherwise.
	ApplyTransition(ctx context.Context, t Transition) error
}

// Recorder appends the audit event of an applied transition. It runs inside
// the transition's transaction.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Hook runs after a transition is written and before the transaction commits.
// An error aborts the transition.
type Hook interface {
	AfterTransition(ctx context.Context, subject Subject, t Transition) error
}

type HookFunc func(ctx context.Context, subject Subject, t Transition) error

func (f HookFunc) AfterTransition(ctx context.Context, subject Subject, t Transition) error {
	return f(ctx, subject, t)
}
