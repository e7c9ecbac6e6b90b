package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrSLVLRequestNotFound = errors.New("SLVL request not found")
	ErrBankNotFound        = errors.New("Leave bank not found")
	ErrInsufficientBalance = errors.New("Insufficient leave balance")
)

// InsufficientBalanceError carries the numbers behind a refused debit.
type InsufficientBalanceError struct {
	EmployeeID string
	LeaveType  LeaveType
	Year       int
	Requested  decimal.Decimal
	Remaining  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for employee %s in %d: requested %s, remaining %s",
		e.LeaveType, e.EmployeeID, e.Year, e.Requested.String(), e.Remaining.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
