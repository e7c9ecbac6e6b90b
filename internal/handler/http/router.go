package http

import (
	"log/slog"
	"os"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
)

// RouterConfig carries what the middleware chain needs besides handlers.
type RouterConfig struct {
	JWTService     jwt.Service
	Managers       employee.DepartmentManagerRepository
	Redis          redis.Cmdable
	IdempotencyTTL time.Duration
	PunchLimiter   *middleware.DeviceRateLimiter
	FrontendURL    string
	Env            string
	LogLevel       slog.Level
}

type Handlers struct {
	Attendance AttendanceHandler
	Overtime   OvertimeHandler
	Leave      LeaveHandler
	Adjustment AdjustmentHandler
	Payroll    PayrollHandler
	Event      EventHandler
}

func NewRouter(cfg RouterConfig, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timekeeping"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-CSRF-Token",
			middleware.IdempotencyHeader, middleware.DeviceHeader,
		},
		ExposedHeaders: []string{"Link", middleware.ReplayedHeader},
		MaxAge:         300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	idempotent := middleware.Idempotency(cfg.Redis, cfg.IdempotencyTTL)

	r.Route("/api/v1", func(r chi.Router) {
		// Authenticated by a stream token in the query string.
		r.Get("/events/stream", h.Event.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentEncoding("application/json"))
			r.Use(jwtauth.Verifier(cfg.JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.Actor(cfg.Managers))

			r.Post("/events/token", h.Event.StreamToken)

			r.With(middleware.RateLimitByDevice(cfg.PunchLimiter), idempotent).
				Post("/punches", h.Attendance.IngestPunches)

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", h.Attendance.List)
				r.With(middleware.RequireHRD).Post("/recompute", h.Attendance.Recompute)
				r.With(middleware.RequireHRD).Post("/post", h.Attendance.Post)
			})

			r.Route("/overtime", func(r chi.Router) {
				r.Post("/", h.Overtime.Create)
				r.Get("/", h.Overtime.List)
				r.With(middleware.RequireReviewer, idempotent).Post("/bulk-transition", h.Overtime.BulkTransition)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Overtime.Get)
					r.Put("/rate", h.Overtime.UpdateRate)
					r.Post("/transition", h.Overtime.Transition)
				})
			})

			r.Route("/slvl", func(r chi.Router) {
				r.Post("/", h.Leave.CreateRequest)
				r.Get("/", h.Leave.ListRequests)
				r.With(middleware.RequireReviewer, idempotent).Post("/bulk-transition", h.Leave.BulkTransitionRequests)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Leave.GetRequest)
					r.Post("/transition", h.Leave.TransitionRequest)
				})
			})

			r.Route("/adjustments", func(r chi.Router) {
				r.Post("/", h.Adjustment.Create)
				r.Get("/", h.Adjustment.List)
				r.With(middleware.RequireReviewer, idempotent).Post("/bulk-transition", h.Adjustment.BulkTransition)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Adjustment.Get)
					r.Post("/transition", h.Adjustment.Transition)
				})
			})

			r.Route("/leave-banks", func(r chi.Router) {
				r.Get("/balance", h.Leave.GetBalance)
				r.Get("/adjustments", h.Leave.ListBankAdjustments)
				r.With(middleware.RequireHRD).Post("/allocate", h.Leave.Allocate)
			})

			r.With(middleware.RequireHRD).Get("/payroll/summary", h.Payroll.GetSummary)
		})
	})
	return r
}
