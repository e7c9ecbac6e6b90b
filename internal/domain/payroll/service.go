package payroll

import (
	"context"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
)

type PayrollService interface {
	Summary(ctx context.Context, query SummaryQuery, actor workflow.Actor) (SummaryResponse, error)
}
