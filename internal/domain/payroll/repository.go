package payroll

import "context"

// PayrollRepository reads the aggregates payroll is built from. Only
// approved and force_approved requests are counted.
type PayrollRepository interface {
	AttendanceTotals(ctx context.Context, period Period) ([]AttendanceTotals, error)
	OvertimeBuckets(ctx context.Context, period Period) ([]OvertimeBucket, error)
	LeaveTotals(ctx context.Context, period Period) ([]LeaveTotals, error)
	AdjustmentTotals(ctx context.Context, period Period) ([]AdjustmentTotals, error)
}
