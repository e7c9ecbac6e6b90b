package overtime

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

// OvertimeRequestRepository - interface for overtime_requests table
type OvertimeRequestRepository interface {
	workflow.Store
	Create(ctx context.Context, request OvertimeRequest) (OvertimeRequest, error)
	GetByID(ctx context.Context, id string) (OvertimeRequest, error)
	List(ctx context.Context, filter OvertimeRequestFilter) ([]OvertimeRequest, int64, error)
	// UpdateRate applies update only while the request is pending and its
	// version matches. A request that left pending yields a
	// *workflow.StateConflictError, a stale version ErrVersionConflict.
	UpdateRate(ctx context.Context, update RateUpdate) (OvertimeRequest, error)
}
