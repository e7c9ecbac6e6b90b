package http

import (
	"net/http"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
)

type AttendanceHandler interface {
	IngestPunches(w http.ResponseWriter, r *http.Request)
	Recompute(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Post(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{attendanceService: attendanceService}
}

func (h *attendanceHandlerImpl) IngestPunches(w http.ResponseWriter, r *http.Request) {
	var req attendance.IngestPunchesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.attendanceService.IngestPunches(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punches ingested", result)
}

func (h *attendanceHandlerImpl) Recompute(w http.ResponseWriter, r *http.Request) {
	var req attendance.RecomputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.attendanceService.Recompute(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	filter := attendance.AttendanceFilter{
		EmployeeID:    queryString(r, "employee_id"),
		StartDate:     queryString(r, "start_date"),
		EndDate:       queryString(r, "end_date"),
		OnlyAnomalies: r.URL.Query().Get("only_anomalies") == "true",
		Page:          queryInt(r, "page"),
		Limit:         queryInt(r, "limit"),
	}

	result, err := h.attendanceService.List(r.Context(), filter, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *attendanceHandlerImpl) Post(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req attendance.PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	posted, err := h.attendanceService.Post(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance posted", map[string]int64{"posted": posted})
}
