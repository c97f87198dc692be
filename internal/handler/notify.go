package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/queue"
)

// Publisher abstracts the broker publish so tests can capture events.
type Publisher func(ctx context.Context, ev queue.NotificationEvent) error

// NotifyHandler lets admins push a notification through the broker bridge.
// Business controllers publish directly; this endpoint exists for manual
// announcements and as the end-to-end exercise of the pipeline.
type NotifyHandler struct {
	Publish Publisher
}

func NewNotifyHandler(p Publisher) *NotifyHandler { return &NotifyHandler{Publish: p} }

type notifyReq struct {
	Scope     string          `json:"scope"`
	StudentID uint64          `json:"student_id"`
	Role      string          `json:"role"`
	UserID    uint64          `json:"user_id"`
	Message   json.RawMessage `json:"message"`
}

// Send validates the target and enqueues the event.  Delivery is
// fire-and-forget from the caller's point of view: 202 means queued, not
// received.
func (h *NotifyHandler) Send(c echo.Context) error {
	var req notifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Message) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
	}

	switch req.Scope {
	case queue.ScopeStudent:
		if req.StudentID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id required"})
		}
	case queue.ScopeRole:
		if req.Role == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "role required"})
		}
	case queue.ScopeUser:
		if req.UserID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
		}
	case queue.ScopeAdmins:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown scope"})
	}

	ev := queue.NotificationEvent{
		Target: queue.Target{
			Scope:     req.Scope,
			StudentID: req.StudentID,
			Role:      req.Role,
			UserID:    req.UserID,
		},
		Message: req.Message,
	}
	if err := h.Publish(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "publish failed"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"queued": true})
}
