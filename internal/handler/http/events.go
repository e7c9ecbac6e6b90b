package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/service/audit"
)

type EventHandler interface {
	StreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type eventHandlerImpl struct {
	hub        *sse.Hub
	jwtService jwt.Service
	managers   employee.DepartmentManagerRepository
	keepalive  time.Duration
}

func NewEventHandler(hub *sse.Hub, jwtService jwt.Service, managers employee.DepartmentManagerRepository) EventHandler {
	return &eventHandlerImpl{
		hub:        hub,
		jwtService: jwtService,
		managers:   managers,
		keepalive:  30 * time.Second,
	}
}

// StreamToken issues the short-lived token the stream is opened with.
func (h *eventHandlerImpl) StreamToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	token, expiresIn, err := h.jwtService.GenerateStreamToken(jwt.Claims{
		UserID:              actor.UserID,
		EmployeeID:          actor.EmployeeID,
		IsSuperAdmin:        actor.IsSuperAdmin,
		IsHRDManager:        actor.IsHRDManager,
		IsDepartmentManager: actor.IsDepartmentManager,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"token":      token,
		"expires_in": expiresIn,
	})
}

// Stream sends the transition events the actor may see as server-sent events.
func (h *eventHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// EventSource cannot set headers, so the token travels in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	claims, err := h.jwtService.ValidateStreamToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}
	actor := claims.Actor()
	if actor.IsDepartmentManager {
		departments, err := h.managers.ListManagedDepartments(r.Context(), actor.UserID)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		actor.ManagedDepartments = departments
	}

	topics := audit.SubscriberTopics(actor)
	if len(topics) == 0 {
		response.Forbidden(w, "No events are visible to this user")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topics...)
	defer cleanup()

	slog.Debug("event stream opened", "user_id", actor.UserID, "topics", topics)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q}\n\n", actor.UserID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			if event.ID != "" {
				fmt.Fprintf(w, "id: %s\n", event.ID)
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			slog.Debug("event stream closed", "user_id", actor.UserID)
			return
		}
	}
}
