package overtime

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

type OvertimeService interface {
	Create(ctx context.Context, req CreateOvertimeRequest, actor workflow.Actor) (OvertimeRequestResponse, error)
	Get(ctx context.Context, id string, actor workflow.Actor) (OvertimeRequestResponse, error)
	List(ctx context.Context, filter OvertimeRequestFilter, actor workflow.Actor) (ListOvertimeRequestResponse, error)
	UpdateRate(ctx context.Context, id string, req UpdateRateRequest, actor workflow.Actor) (OvertimeRequestResponse, error)
	Transition(ctx context.Context, id string, req workflow.TransitionRequest, actor workflow.Actor) (OvertimeRequestResponse, error)
	BulkTransition(ctx context.Context, req workflow.BulkTransitionRequest, actor workflow.Actor) (workflow.BulkResult, error)
}
