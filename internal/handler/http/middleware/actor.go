package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor workflow.Actor) context.Context {
	return workflow.ContextWithActor(ctx, actor)
}

// ActorFromContext returns the actor resolved by Actor.
func ActorFromContext(ctx context.Context) (workflow.Actor, bool) {
	return workflow.ActorFromContext(ctx)
}

// Actor resolves the authenticated actor from the token claims. Department
// managers get their managed departments loaded from the assignment table.
func Actor(managers employee.DepartmentManagerRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, rawClaims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			claims, err := jwt.ClaimsFromMap(rawClaims)
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			actor := claims.Actor()

			if actor.IsDepartmentManager {
				departments, err := managers.ListManagedDepartments(r.Context(), actor.UserID)
				if err != nil {
					slog.Error("failed to load managed departments", "user_id", actor.UserID, "error", err)
					response.InternalServerError(w, "Failed to resolve actor")
					return
				}
				actor.ManagedDepartments = departments
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
