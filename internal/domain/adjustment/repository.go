package adjustment

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

// AdjustmentRequestRepository - interface for adjustment_requests table
type AdjustmentRequestRepository interface {
	workflow.Store
	Create(ctx context.Context, request AdjustmentRequest) (AdjustmentRequest, error)
	GetByID(ctx context.Context, id string) (AdjustmentRequest, error)
	List(ctx context.Context, filter AdjustmentRequestFilter) ([]AdjustmentRequest, int64, error)
}
