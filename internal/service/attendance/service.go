package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings configures how punches become attendance days.
type Settings struct {
	Rules            Rules
	NightShiftCutoff time.Duration
	Location         *time.Location
}

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.PunchRepository
	attendance.AttendanceRepository
	employee.EmployeeRepository
	settings Settings
	now      func() time.Time
}

func NewAttendanceService(
	tx database.Transactor,
	punchRepository attendance.PunchRepository,
	attendanceRepository attendance.AttendanceRepository,
	employeeRepository employee.EmployeeRepository,
	settings Settings,
) *AttendanceServiceImpl {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Rules.StandardWorkMinutes <= 0 {
		settings.Rules = DefaultRules()
	}
	return &AttendanceServiceImpl{
		tx:                   tx,
		PunchRepository:      punchRepository,
		AttendanceRepository: attendanceRepository,
		EmployeeRepository:   employeeRepository,
		settings:             settings,
		now:                  time.Now,
	}
}

// IngestPunches stores a batch of device punches and recomputes every day
// they touch. Replayed punches are ignored.
func (a *AttendanceServiceImpl) IngestPunches(ctx context.Context, req attendance.IngestPunchesRequest) (attendance.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.IngestResult{}, err
	}
	punches := req.Parsed()

	employees, err := a.loadEmployees(ctx, punches)
	if err != nil {
		return attendance.IngestResult{}, err
	}

	ingestedAt := a.now()
	for i := range punches {
		punches[i].ID = uuid.Must(uuid.NewV7()).String()
		punches[i].IngestedAt = ingestedAt
	}

	inserted, err := a.PunchRepository.InsertBatch(ctx, punches)
	if err != nil {
		return attendance.IngestResult{}, fmt.Errorf("failed to store punches: %w", err)
	}

	result := attendance.IngestResult{
		Received: len(punches),
		Inserted: inserted,
		Skipped:  []attendance.DaySkip{},
	}

	for _, day := range a.touchedDays(punches, employees) {
		record, err := a.recompute(ctx, day)
		if errors.Is(err, attendance.ErrAttendancePosted) {
			result.Skipped = append(result.Skipped, attendance.DaySkip{
				EmployeeID: day.EmployeeID,
				Date:       day.Date.Format("2006-01-02"),
				Reason:     err.Error(),
			})
			continue
		}
		if err != nil {
			return result, err
		}
		result.Recomputed++
		if !record.IsProcessable {
			result.Anomalies++
		}
	}

	slog.Info("punches ingested",
		"received", result.Received,
		"inserted", result.Inserted,
		"recomputed", result.Recomputed,
		"anomalies", result.Anomalies,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (a *AttendanceServiceImpl) loadEmployees(ctx context.Context, punches []attendance.RawPunch) (map[string]employee.Employee, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, p := range punches {
		if _, ok := seen[p.EmployeeID]; !ok {
			seen[p.EmployeeID] = struct{}{}
			ids = append(ids, p.EmployeeID)
		}
	}

	found, err := a.EmployeeRepository.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}
	employees := make(map[string]employee.Employee, len(found))
	for _, e := range found {
		employees[e.ID] = e
	}

	var errs validator.ValidationErrors
	for _, id := range ids {
		if _, ok := employees[id]; !ok {
			errs.Add("punches", "unknown employee_id "+id)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

// touchedDays lists the employee-days a batch can change, in a stable order.
// Night-shift outs and breaks before the cutoff belong to the previous day.
func (a *AttendanceServiceImpl) touchedDays(punches []attendance.RawPunch, employees map[string]employee.Employee) []attendance.DayRef {
	days := map[string]attendance.DayRef{}
	add := func(ref attendance.DayRef) {
		days[ref.Key()] = ref
	}

	for _, p := range punches {
		local := p.PunchedAt.In(a.settings.Location)
		day := a.dayOf(local)
		tail := employees[p.EmployeeID].IsNightshift &&
			p.State != attendance.PunchIn &&
			clockOf(local) < a.settings.NightShiftCutoff
		if tail {
			day = day.AddDate(0, 0, -1)
		}
		add(attendance.DayRef{EmployeeID: p.EmployeeID, Date: day})
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]attendance.DayRef, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, days[k])
	}
	return refs
}

func (a *AttendanceServiceImpl) Recompute(ctx context.Context, req attendance.RecomputeRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	date, _ := validator.IsValidDate(req.Date)

	record, err := a.recompute(ctx, attendance.DayRef{EmployeeID: req.EmployeeID, Date: a.dayOf(date)})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(record), nil
}

// Sweep recomputes date for every employee who punched on it. Failures are
// logged and counted so that one bad day does not stop the rest.
func (a *AttendanceServiceImpl) Sweep(ctx context.Context, date time.Time) (attendance.SweepResult, error) {
	day := a.dayOf(date)
	result := attendance.SweepResult{Date: day.Format("2006-01-02")}

	employeeIDs, err := a.PunchRepository.ListPunchedEmployees(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return result, fmt.Errorf("failed to list punched employees: %w", err)
	}
	result.Employees = len(employeeIDs)

	for _, id := range employeeIDs {
		record, err := a.recompute(ctx, attendance.DayRef{EmployeeID: id, Date: day})
		switch {
		case errors.Is(err, attendance.ErrAttendancePosted):
			result.Posted++
		case err != nil:
			result.Failed++
			slog.Error("attendance sweep failed for employee",
				"employee_id", id,
				"date", result.Date,
				"error", err,
			)
		default:
			result.Recomputed++
			if !record.IsProcessable {
				result.Anomalies++
			}
		}
	}

	slog.Info("attendance sweep completed",
		"date", result.Date,
		"employees", result.Employees,
		"recomputed", result.Recomputed,
		"anomalies", result.Anomalies,
		"posted", result.Posted,
		"failed", result.Failed,
	)
	return result, nil
}

// recompute rebuilds one day from the punches visible once its lock is held.
// Concurrent callers queue on the lock; each reads its own snapshot and the
// digest turns a repeated snapshot into a no-op.
func (a *AttendanceServiceImpl) recompute(ctx context.Context, day attendance.DayRef) (attendance.ProcessedAttendance, error) {
	var out attendance.ProcessedAttendance
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := a.AttendanceRepository.LockDay(ctx, day); err != nil {
			return err
		}

		emp, err := a.EmployeeRepository.GetByID(ctx, day.EmployeeID)
		if err != nil {
			return fmt.Errorf("failed to get employee: %w", err)
		}

		existing, err := a.AttendanceRepository.GetByEmployeeDate(ctx, day)
		found := err == nil
		if err != nil && !errors.Is(err, attendance.ErrAttendanceNotFound) {
			return fmt.Errorf("failed to get attendance: %w", err)
		}
		if found && existing.PostingStatus == attendance.PostingPosted {
			return attendance.ErrAttendancePosted
		}

		punches, err := a.PunchRepository.ListWindow(ctx, day.EmployeeID, day.Date, day.Date.AddDate(0, 0, 2))
		if err != nil {
			return fmt.Errorf("failed to list punches: %w", err)
		}

		input := AssembleDay(day.Date, punches, emp.IsNightshift, a.settings.NightShiftCutoff)
		if emp.ScheduleTimeIn != nil {
			if expected, ok := validator.IsValidClock(*emp.ScheduleTimeIn); ok {
				input.ExpectedTimeIn = &expected
			}
		}

		digest := Digest(input, a.settings.Rules)
		if found && existing.PunchDigest == digest {
			out = existing
			return nil
		}

		record := existing
		if !found {
			record = newRecord(day)
		}
		applyResult(&record, input, Classify(input, a.settings.Rules))
		record.PunchDigest = digest

		out, err = a.AttendanceRepository.Upsert(ctx, record)
		return err
	})
	if err != nil {
		return attendance.ProcessedAttendance{}, err
	}

	if out.Anomaly != attendance.AnomalyNone {
		slog.Warn("attendance day not processable",
			"employee_id", day.EmployeeID,
			"date", day.Date.Format("2006-01-02"),
			"anomaly", out.Anomaly,
		)
	}
	return out, nil
}

func newRecord(day attendance.DayRef) attendance.ProcessedAttendance {
	return attendance.ProcessedAttendance{
		ID:                uuid.Must(uuid.NewV7()).String(),
		EmployeeID:        day.EmployeeID,
		AttendanceDate:    day.Date,
		OvertimeHours:     decimal.Zero,
		TravelOrderHours:  decimal.Zero,
		OffsetHours:       decimal.Zero,
		SLVLFraction:      decimal.Zero,
		HolidayMultiplier: decimal.NewFromInt(1),
		PostingStatus:     attendance.PostingDraft,
	}
}

func applyResult(record *attendance.ProcessedAttendance, in DayInput, result DayResult) {
	record.TimeIn = in.TimeIn
	record.TimeOut = in.TimeOut
	record.BreakIn = in.BreakIn
	record.BreakOut = in.BreakOut
	record.NextDayTimeout = in.NextDayTimeout
	record.HoursWorked = result.HoursWorked
	record.LateMinutes = result.LateMinutes
	record.UndertimeMinutes = result.UndertimeMinutes
	record.BreakMinutes = result.BreakMinutes
	record.NetWorkedMinutes = result.NetWorkedMinutes
	record.IsNightshift = result.IsNightshift
	record.IsProcessable = result.IsProcessable
	record.Anomaly = result.Anomaly
}

// Post freezes the records of a payroll period.
func (a *AttendanceServiceImpl) Post(ctx context.Context, req attendance.PostRequest, actor workflow.Actor) (int64, error) {
	if !actor.IsSuperAdmin && !actor.IsHRDManager {
		return 0, &workflow.AuthorizationError{
			ActorID:  actor.UserID,
			Required: []workflow.Role{workflow.RoleHRDManager, workflow.RoleSuperAdmin},
			Action:   "post attendance",
		}
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}
	req.From, req.To = a.dayOf(req.From), a.dayOf(req.To)

	posted, err := a.AttendanceRepository.Post(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to post attendance: %w", err)
	}

	slog.Info("attendance posted",
		"start_date", req.StartDate,
		"end_date", req.EndDate,
		"employees", len(req.EmployeeIDs),
		"records", posted,
		"actor_id", actor.UserID,
	)
	return posted, nil
}

func (a *AttendanceServiceImpl) List(ctx context.Context, filter attendance.AttendanceFilter, actor workflow.Actor) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	filter.Scope(actor)

	records, total, err := a.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, attendance.NewAttendanceResponse(r))
	}
	return attendance.ListAttendanceResponse{
		Pagination:  workflow.NewPagination(total, filter.Page, filter.Limit),
		Attendances: responses,
	}, nil
}

// ApplyDayAdjustment records an approved request on its day. Posted days are
// left unchanged and logged.
func (a *AttendanceServiceImpl) ApplyDayAdjustment(ctx context.Context, adj attendance.DayAdjustment) error {
	adj.Date = a.dayOf(adj.Date)
	applied, err := a.AttendanceRepository.ApplyAdjustment(ctx, adj)
	if err != nil {
		return fmt.Errorf("failed to apply day adjustment: %w", err)
	}
	if !applied {
		slog.Warn("day adjustment skipped on posted attendance",
			"employee_id", adj.EmployeeID,
			"date", adj.Date.Format("2006-01-02"),
		)
	}
	return nil
}

// dayOf returns midnight of t's calendar date in the company location.
func (a *AttendanceServiceImpl) dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.settings.Location)
}
