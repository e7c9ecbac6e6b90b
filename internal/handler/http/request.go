package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
)

// requireActor returns the actor resolved by middleware.Actor, writing 401
// when it is missing.
func requireActor(w http.ResponseWriter, r *http.Request) (workflow.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return workflow.Actor{}, false
	}
	return actor, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Debug("request decode error", "path", r.URL.Path, "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return false
	}
	return true
}

func queryString(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

// queryInt returns the query value as an int, 0 when absent and -1 when
// malformed so that Validate reports it.
func queryInt(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func parseRequestFilter(r *http.Request) workflow.RequestFilter {
	return workflow.RequestFilter{
		EmployeeID:   queryString(r, "employee_id"),
		DepartmentID: queryString(r, "department_id"),
		Status:       queryString(r, "status"),
		StartDate:    queryString(r, "start_date"),
		EndDate:      queryString(r, "end_date"),
		Page:         queryInt(r, "page"),
		Limit:        queryInt(r, "limit"),
		SortOrder:    r.URL.Query().Get("sort_order"),
	}
}
