package http

import (
	"net/http"
	"strings"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
)

type PayrollHandler interface {
	GetSummary(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// GetSummary serves the payroll feed for start_date..end_date. employee_ids
// is an optional comma separated list.
func (h *payrollHandlerImpl) GetSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := payroll.SummaryQuery{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}
	if ids := r.URL.Query().Get("employee_ids"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				query.EmployeeIDs = append(query.EmployeeIDs, id)
			}
		}
	}

	result, err := h.payrollService.Summary(r.Context(), query, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
