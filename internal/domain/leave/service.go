package leave

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Ledger is the SLVL bank. Commit and ForceCommit are only called by the
// approval workflow, inside the transaction that grants the leave.
type Ledger interface {
	GetBalance(ctx context.Context, key BankKey) (Bank, error)
	Allocate(ctx context.Context, req AllocateRequest, actor workflow.Actor) (Bank, error)
	CheckAvailable(ctx context.Context, key BankKey, days decimal.Decimal, payType PayType) error
	Commit(ctx context.Context, debit Debit) (Bank, error)
	ForceCommit(ctx context.Context, debit Debit) (Bank, error)
	ListAdjustments(ctx context.Context, key BankKey) ([]BankAdjustment, error)
}

type SLVLService interface {
	Create(ctx context.Context, req CreateSLVLRequest, actor workflow.Actor) (SLVLRequestResponse, error)
	Get(ctx context.Context, id string, actor workflow.Actor) (SLVLRequestResponse, error)
	List(ctx context.Context, filter SLVLRequestFilter, actor workflow.Actor) (ListSLVLRequestResponse, error)
	Transition(ctx context.Context, id string, req workflow.TransitionRequest, actor workflow.Actor) (SLVLRequestResponse, error)
	BulkTransition(ctx context.Context, req workflow.BulkTransitionRequest, actor workflow.Actor) (workflow.BulkResult, error)
}
