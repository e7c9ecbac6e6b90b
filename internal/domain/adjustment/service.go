package adjustment

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

type AdjustmentService interface {
	Create(ctx context.Context, req CreateAdjustmentRequest, actor workflow.Actor) (AdjustmentRequestResponse, error)
	Get(ctx context.Context, id string, actor workflow.Actor) (AdjustmentRequestResponse, error)
	List(ctx context.Context, filter AdjustmentRequestFilter, actor workflow.Actor) (ListAdjustmentRequestResponse, error)
	Transition(ctx context.Context, id string, req workflow.TransitionRequest, actor workflow.Actor) (AdjustmentRequestResponse, error)
	BulkTransition(ctx context.Context, req workflow.BulkTransitionRequest, actor workflow.Actor) (workflow.BulkResult, error)
}
