package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
)

// RequireHRD allows HRD managers and super admins.
func RequireHRD(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "Unauthorized")
			return
		}
		if !actor.IsHRDManager && !actor.IsSuperAdmin {
			response.Forbidden(w, "HRD manager or super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireReviewer allows anyone who may review requests of some department.
func RequireReviewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "Unauthorized")
			return
		}
		if !actor.IsHRDManager && !actor.IsSuperAdmin && !actor.IsDepartmentManager {
			response.Forbidden(w, "Reviewer access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
