package workflow

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
)

// MaxBulkSize bounds the ids accepted by one bulk transition.
const MaxBulkSize = 500

type TransitionRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}

func (r *TransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	target := Status(strings.TrimSpace(r.Status))
	if validator.IsEmpty(r.Status) {
		errs.Add("status", "status is required")
	} else if !target.IsValid() || target == StatusPending {
		errs.Add("status", "status must be one of manager_approved, approved, rejected, force_approved")
	}
	if len(r.Remarks) > 1000 {
		errs.Add("remarks", "remarks must not exceed 1000 characters")
	}

	return errs.Err()
}

func (r *TransitionRequest) Target() Status {
	return Status(strings.TrimSpace(r.Status))
}

type BulkTransitionRequest struct {
	IDs     []string `json:"ids"`
	Status  string   `json:"status"`
	Remarks string   `json:"remarks"`
}

func (r *BulkTransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.IDs) == 0 {
		errs.Add("ids", "ids must not be empty")
	}
	if len(r.IDs) > MaxBulkSize {
		errs.Add("ids", "ids must not exceed 500 entries")
	}
	for _, id := range r.IDs {
		if validator.IsEmpty(id) {
			errs.Add("ids", "ids must not contain empty values")
			break
		}
	}

	single := TransitionRequest{Status: r.Status, Remarks: r.Remarks}
	if err := single.Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}

	return errs.Err()
}

// RequestFilter is the shared list filter for every request kind.
type RequestFilter struct {
	// Search & Filter
	EmployeeID   *string `json:"employee_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	Status       *string `json:"status,omitempty"`
	StartDate    *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      *string `json:"end_date,omitempty"`   // YYYY-MM-DD

	// Restricts results to these departments unless nil. Set by the service
	// from the actor, never from the query string.
	VisibleDepartments []string `json:"-"`
	// Restricts results to one employee's own requests when set.
	OwnEmployeeID *string `json:"-"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *RequestFilter) Validate() error {
	var errs validator.ValidationErrors

	// Page validation
	if f.Page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if f.Page == 0 {
		f.Page = 1
	}

	// Limit validation
	if f.Limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}

	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs.Add("status", "status must be one of: pending, manager_approved, approved, rejected, force_approved")
	}

	var start, end time.Time
	if f.StartDate != nil && *f.StartDate != "" {
		d, valid := validator.IsValidDate(*f.StartDate)
		if !valid {
			errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		}
		start = d
	}
	if f.EndDate != nil && *f.EndDate != "" {
		d, valid := validator.IsValidDate(*f.EndDate)
		if !valid {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		}
		end = d
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs.Add("sort_order", "sort_order must be one of: asc, desc")
		}
		f.SortOrder = strings.ToLower(f.SortOrder)
	} else {
		f.SortOrder = "desc"
	}

	return errs.Err()
}

// Offset is the row offset of the requested page.
func (f RequestFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Scope narrows f to what actor may see: reviewers see their departments
// (all of them for HRD and super admins), everyone else sees their own.
func (f *RequestFilter) Scope(actor Actor) {
	if actor.IsSuperAdmin || actor.IsHRDManager {
		return
	}
	if actor.IsDepartmentManager {
		f.VisibleDepartments = append([]string{}, actor.ManagedDepartments...)
		if actor.EmployeeID != "" {
			own := actor.EmployeeID
			f.OwnEmployeeID = &own
		}
		return
	}
	own := actor.EmployeeID
	f.OwnEmployeeID = &own
	f.VisibleDepartments = []string{}
}

// Pagination is the page metadata of a list response.
type Pagination struct {
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{TotalCount: total, Page: page, Limit: limit, TotalPages: pages}
}

func (r *BulkTransitionRequest) Target() Status {
	return Status(strings.TrimSpace(r.Status))
}
