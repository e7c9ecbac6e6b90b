package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type LedgerService struct {
	tx database.Transactor
	leave.BankRepository
}

func NewLedgerService(tx database.Transactor, bankRepository leave.BankRepository) *LedgerService {
	return &LedgerService{
		tx:             tx,
		BankRepository: bankRepository,
	}
}

// GetBalance returns the bank for key. An absent bank reads as all zeros and
// is not created.
func (l *LedgerService) GetBalance(ctx context.Context, key leave.BankKey) (leave.Bank, error) {
	bank, err := l.BankRepository.Get(ctx, key)
	if errors.Is(err, leave.ErrBankNotFound) {
		return emptyBank(key), nil
	}
	if err != nil {
		return leave.Bank{}, fmt.Errorf("failed to get leave bank: %w", err)
	}
	return bank, nil
}

// Allocate adds days to the bank's total, creating the bank when absent.
func (l *LedgerService) Allocate(ctx context.Context, req leave.AllocateRequest, actor workflow.Actor) (leave.Bank, error) {
	if err := req.Validate(); err != nil {
		return leave.Bank{}, err
	}
	if !actor.IsSuperAdmin && !actor.IsHRDManager {
		return leave.Bank{}, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleHRDManager, workflow.RoleSuperAdmin},
			Action:   "allocate leave",
		}
	}

	days := req.Amount()
	var result leave.Bank
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		bank, err := l.BankRepository.LockOrCreate(ctx, req.Key())
		if err != nil {
			return fmt.Errorf("failed to lock leave bank: %w", err)
		}

		bank.TotalDays = bank.TotalDays.Add(days)
		bank.Recalculate()
		if result, err = l.BankRepository.UpdateBalance(ctx, bank); err != nil {
			return fmt.Errorf("failed to update leave bank: %w", err)
		}

		return l.BankRepository.AddAdjustment(ctx, leave.BankAdjustment{
			BankID:  bank.ID,
			Kind:    leave.AdjustmentAllocate,
			Days:    days,
			ActorID: actor.UserID,
			Notes:   req.Notes,
		})
	})
	if err != nil {
		return leave.Bank{}, err
	}

	slog.Info("leave bank allocated",
		"employee_id", req.EmployeeID,
		"leave_type", req.LeaveType,
		"year", req.Year,
		"days", days.String(),
		"total_days", result.TotalDays.String(),
	)
	return result, nil
}

// CheckAvailable validates a with_pay request against the remaining balance.
// Nothing is reserved; the authoritative check happens again at Commit.
func (l *LedgerService) CheckAvailable(ctx context.Context, key leave.BankKey, days decimal.Decimal, payType leave.PayType) error {
	if payType != leave.PayTypeWithPay {
		return nil
	}
	bank, err := l.GetBalance(ctx, key)
	if err != nil {
		return err
	}
	if bank.RemainingDays.LessThan(days) {
		return insufficient(key, days, bank.RemainingDays)
	}
	return nil
}

// Commit debits approved days. The bank must cover them.
func (l *LedgerService) Commit(ctx context.Context, debit leave.Debit) (leave.Bank, error) {
	return l.debit(ctx, debit, false)
}

// ForceCommit debits days without the balance check; remaining may go negative.
func (l *LedgerService) ForceCommit(ctx context.Context, debit leave.Debit) (leave.Bank, error) {
	return l.debit(ctx, debit, true)
}

func (l *LedgerService) debit(ctx context.Context, debit leave.Debit, force bool) (leave.Bank, error) {
	if !debit.Days.IsPositive() {
		return leave.Bank{}, validator.ValidationErrors{{Field: "days", Message: "days must be positive"}}
	}

	var result leave.Bank
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var (
			bank leave.Bank
			err  error
		)
		if force {
			bank, err = l.BankRepository.LockOrCreate(ctx, debit.Key)
		} else {
			bank, err = l.BankRepository.GetForUpdate(ctx, debit.Key)
			if errors.Is(err, leave.ErrBankNotFound) {
				return insufficient(debit.Key, debit.Days, decimal.Zero)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to lock leave bank: %w", err)
		}

		if !force && bank.RemainingDays.LessThan(debit.Days) {
			return insufficient(debit.Key, debit.Days, bank.RemainingDays)
		}

		bank.UsedDays = bank.UsedDays.Add(debit.Days)
		bank.Recalculate()
		if result, err = l.BankRepository.UpdateBalance(ctx, bank); err != nil {
			return fmt.Errorf("failed to update leave bank: %w", err)
		}

		kind := leave.AdjustmentCommit
		if force {
			kind = leave.AdjustmentForceCommit
		}
		requestID := debit.RequestID
		return l.BankRepository.AddAdjustment(ctx, leave.BankAdjustment{
			BankID:    bank.ID,
			Kind:      kind,
			Days:      debit.Days,
			RequestID: &requestID,
			ActorID:   debit.ActorID,
		})
	})
	if err != nil {
		return leave.Bank{}, err
	}

	if result.RemainingDays.IsNegative() {
		slog.Warn("leave bank overdrawn by force approval",
			"employee_id", debit.Key.EmployeeID,
			"leave_type", debit.Key.LeaveType,
			"year", debit.Key.Year,
			"remaining_days", result.RemainingDays.String(),
		)
	}
	return result, nil
}

func (l *LedgerService) ListAdjustments(ctx context.Context, key leave.BankKey) ([]leave.BankAdjustment, error) {
	adjustments, err := l.BankRepository.ListAdjustments(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave bank adjustments: %w", err)
	}
	return adjustments, nil
}

func emptyBank(key leave.BankKey) leave.Bank {
	return leave.Bank{
		EmployeeID:    key.EmployeeID,
		LeaveType:     key.LeaveType,
		Year:          key.Year,
		TotalDays:     decimal.Zero,
		UsedDays:      decimal.Zero,
		RemainingDays: decimal.Zero,
	}
}

func insufficient(key leave.BankKey, requested, remaining decimal.Decimal) error {
	return &leave.InsufficientBalanceError{
		EmployeeID: key.EmployeeID,
		LeaveType:  key.LeaveType,
		Year:       key.Year,
		Requested:  requested,
		Remaining:  remaining,
	}
}
