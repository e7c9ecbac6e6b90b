package leave

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

// BankRepository - interface for slvl_banks and slvl_bank_adjustments tables
type BankRepository interface {
	Get(ctx context.Context, key BankKey) (Bank, error)
	// GetForUpdate locks the bank row. Returns ErrBankNotFound when absent.
	GetForUpdate(ctx context.Context, key BankKey) (Bank, error)
	// LockOrCreate inserts an empty bank when absent, then locks it.
	LockOrCreate(ctx context.Context, key BankKey) (Bank, error)
	UpdateBalance(ctx context.Context, bank Bank) (Bank, error)
	AddAdjustment(ctx context.Context, adjustment BankAdjustment) error
	ListAdjustments(ctx context.Context, key BankKey) ([]BankAdjustment, error)
}

// SLVLRequestRepository - interface for slvl_requests table
type SLVLRequestRepository interface {
	workflow.Store
	Create(ctx context.Context, request SLVLRequest) (SLVLRequest, error)
	GetByID(ctx context.Context, id string) (SLVLRequest, error)
	List(ctx context.Context, filter SLVLRequestFilter) ([]SLVLRequest, int64, error)
}
