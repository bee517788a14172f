package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"cazlyncNotifier/internal/auth"
	"cazlyncNotifier/internal/event"
	"cazlyncNotifier/internal/metrics"
	"cazlyncNotifier/internal/queue"
)

// Enqueuer hands accepted events to the worker queue.
type Enqueuer interface {
	EnqueueChangeEvent(ctx context.Context, env *event.Envelope) error
	GetTaskStatus(taskID string) (*asynq.TaskInfo, error)
}

type EventResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type EventHandler struct {
	queue Enqueuer
}

func NewEventHandler(q Enqueuer) *EventHandler {
	return &EventHandler{queue: q}
}

// Receive accepts one change event. The event is fully decoded here so a
// malformed event is rejected before it is queued.
func (h *EventHandler) Receive(c echo.Context) error {
	var env event.Envelope
	if err := c.Bind(&env); err != nil {
		metrics.ObserveEvent("", "rejected")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if env.ID == "" {
		env.ID = uuid.NewString()
	}

	if _, err := event.Decode(&env); err != nil {
		metrics.ObserveEvent(string(env.Kind), "rejected")
		slog.Warn("rejected malformed event", "event_id", env.ID, "kind", env.Kind, "producer", auth.Producer(c), "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	err := h.queue.EnqueueChangeEvent(c.Request().Context(), &env)
	if errors.Is(err, queue.ErrDuplicate) {
		metrics.ObserveEvent(string(env.Kind), "duplicate")
		return c.JSON(http.StatusOK, EventResponse{ID: env.ID, Status: "duplicate"})
	}
	if err != nil {
		slog.Error("failed to enqueue event", "event_id", env.ID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Failed to accept event"})
	}

	metrics.ObserveEvent(string(env.Kind), "accepted")
	return c.JSON(http.StatusAccepted, EventResponse{ID: env.ID, Status: "accepted"})
}

// Status reports the processing state of an accepted event.
func (h *EventHandler) Status(c echo.Context) error {
	id := c.Param("id")

	info, err := h.queue.GetTaskStatus(id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Event not found"})
	}
	if err != nil {
		slog.Error("failed to get event status", "event_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get event status"})
	}

	return c.JSON(http.StatusOK, EventResponse{ID: id, Status: info.State.String()})
}

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
