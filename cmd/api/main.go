package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/kafka"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/repository/postgresql"
	adjustmentService "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/adjustment"
	attendanceService "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/attendance"
	auditService "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/audit"
	leaveService "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/leave"
	overtimeService "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/overtime"
	payrollService "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/payroll"
	wfengine "github.com/cmlabs-hris/timekeeping-backend-go/internal/service/workflow"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	})))

	loc, err := cfg.Timekeeping.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	expectedTimeIn, err := config.ParseClock(cfg.Timekeeping.ExpectedTimeIn)
	if err != nil {
		return fmt.Errorf("invalid expected time in: %w", err)
	}
	nightShiftCutoff, err := config.ParseClock(cfg.Timekeeping.NightShiftCutoff)
	if err != nil {
		return fmt.Errorf("invalid night shift cutoff: %w", err)
	}

	db, err := database.NewPostgreSQLDB(context.Background(), cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	managerRepo := postgresql.NewDepartmentManagerRepository(db)
	punchRepo := postgresql.NewPunchRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	overtimeRepo := postgresql.NewOvertimeRequestRepository(db)
	bankRepo := postgresql.NewBankRepository(db)
	slvlRepo := postgresql.NewSLVLRequestRepository(db)
	adjustmentRepo := postgresql.NewAdjustmentRequestRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	outboxRepo := postgresql.NewOutboxRepository(db)
	tx := postgresql.NewTransactor(db)

	recorder := auditService.NewRecorder(outboxRepo)

	attendanceSvc := attendanceService.NewAttendanceService(tx, punchRepo, attendanceRepo, employeeRepo, attendanceService.Settings{
		Rules: attendanceService.Rules{
			ExpectedTimeIn:      expectedTimeIn,
			DefaultBreakMinutes: cfg.Timekeeping.DefaultBreakMinutes,
			StandardWorkMinutes: cfg.Timekeeping.StandardWorkMinutes,
			CapWorkedAtStandard: cfg.Timekeeping.CapWorkedAtStandard,
		},
		NightShiftCutoff: nightShiftCutoff,
		Location:         loc,
	})
	ledger := leaveService.NewLedgerService(tx, bankRepo)

	bulk := wfengine.WithBulkConcurrency(cfg.Workflow.BulkConcurrency)
	overtimeSvc, err := overtimeService.NewOvertimeService(tx, overtimeRepo, employeeRepo, attendanceSvc, recorder, loc, bulk)
	if err != nil {
		return fmt.Errorf("failed to build overtime service: %w", err)
	}
	slvlSvc, err := leaveService.NewSLVLService(tx, slvlRepo, employeeRepo, ledger, attendanceSvc, recorder, bulk)
	if err != nil {
		return fmt.Errorf("failed to build slvl service: %w", err)
	}
	adjustmentSvc, err := adjustmentService.NewAdjustmentService(tx, adjustmentRepo, employeeRepo, attendanceSvc, recorder, bulk)
	if err != nil {
		return fmt.Errorf("failed to build adjustment service: %w", err)
	}
	payrollSvc := payrollService.NewPayrollService(payrollRepo, employeeRepo)

	// Audit events reach the live stream always and Kafka when enabled. The
	// hub comes last so a Kafka outage holds events back for both.
	hub := sse.NewHub()
	var sinks []auditService.Sink
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic), cfg.Kafka.AuditTopic)
		defer func() {
			if err := producer.Close(); err != nil {
				slog.Warn("failed to close kafka producer", "error", err)
			}
		}()
		sinks = append(sinks, auditService.NewKafkaSink(producer))
	}
	sinks = append(sinks, auditService.NewHubSink(hub))
	relay := auditService.NewRelay(tx, outboxRepo, auditService.RelayConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		RetryBackoff: cfg.Outbox.RetryBackoff,
		MaxBackoff:   cfg.Outbox.MaxBackoff,
	}, sinks...)

	scheduler := cron.NewScheduler()
	cron.NewAuditJobs(relay, cfg.Outbox.PollInterval).RegisterJobs(scheduler)
	cron.NewAttendanceJobs(attendanceSvc, loc).RegisterJobs(scheduler)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Idempotency fails open, so the API still serves without Redis.
		slog.Warn("redis unavailable, idempotency keys will not be honored", "addr", cfg.Redis.Addr, "error", err)
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		JWTService:     jwtService,
		Managers:       managerRepo,
		Redis:          rdb,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		PunchLimiter:   middleware.NewDeviceRateLimiter(rate.Limit(cfg.RateLimit.PunchesPerSecond), cfg.RateLimit.PunchBurst),
		FrontendURL:    cfg.App.FrontendURL,
		Env:            cfg.App.Env,
		LogLevel:       cfg.App.SlogLevel(),
	}, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
		Overtime:   appHTTP.NewOvertimeHandler(overtimeSvc),
		Leave:      appHTTP.NewLeaveHandler(slvlSvc, ledger, employeeRepo),
		Adjustment: appHTTP.NewAdjustmentHandler(adjustmentSvc),
		Payroll:    appHTTP.NewPayrollHandler(payrollSvc),
		Event:      appHTTP.NewEventHandler(hub, jwtService, managerRepo),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
