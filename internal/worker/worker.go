package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/event"
	"cazlyncNotifier/internal/notification"
	"cazlyncNotifier/internal/queue"
)

const DefaultConcurrency = 10

// Engine is the notification engine as seen by the task handlers.
type Engine interface {
	HandleEvent(ctx context.Context, ev event.ChangeEvent) error
	SendWelcome(ctx context.Context, userID string) error
	BroadcastPage(ctx context.Context, listing *db.Listing, cursor string) (string, error)
	RunPremiumExpiry(ctx context.Context, now time.Time) (notification.Report, error)
	RunDailyDigest(ctx context.Context, now time.Time) (notification.Report, error)
}

type Worker struct {
	server *asynq.Server
	engine Engine
	now    func() time.Time
}

func NewWorker(redisOpt asynq.RedisClientOpt, concurrency int, engine Engine) *Worker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue.QueueEvents:    6,
				queue.QueueBroadcast: 3,
				queue.QueueScheduled: 1,
			},
			LogLevel: asynq.WarnLevel,
		},
	)

	return &Worker{
		server: server,
		engine: engine,
		now:    time.Now,
	}
}

// Mux routes every task type to its handler.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskChangeEvent, w.handleChangeEvent)
	mux.HandleFunc(queue.TaskWelcome, w.handleWelcome)
	mux.HandleFunc(queue.TaskBroadcastPage, w.handleBroadcastPage)
	mux.HandleFunc(queue.TaskPremiumExpiry, w.handlePremiumExpiry)
	mux.HandleFunc(queue.TaskDailyDigest, w.handleDailyDigest)
	return mux
}

// Start runs the worker until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	slog.Info("Starting worker", "queues", []string{queue.QueueEvents, queue.QueueBroadcast, queue.QueueScheduled})

	if err := w.server.Start(w.Mux()); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	slog.Info("Worker started successfully")

	<-ctx.Done()

	w.server.Shutdown()
	slog.Info("Worker stopped")
	return nil
}

func (w *Worker) handleChangeEvent(ctx context.Context, t *asynq.Task) error {
	var env event.Envelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		slog.Error("Failed to decode event task", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	ev, err := event.Decode(&env)
	if err != nil {
		slog.Error("Dropping malformed event", "event_id", env.ID, "kind", env.Kind, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := w.engine.HandleEvent(ctx, ev); err != nil {
		if errors.Is(err, event.ErrMalformed) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		slog.Error("Failed to handle event", "event_id", env.ID, "kind", env.Kind, "error", err)
		return err
	}

	slog.Info("Handled event", "event_id", env.ID, "kind", env.Kind, "document_id", env.DocumentID)
	return nil
}

func (w *Worker) handleWelcome(ctx context.Context, t *asynq.Task) error {
	var payload queue.WelcomePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := w.engine.SendWelcome(ctx, payload.UserID); err != nil {
		slog.Error("Failed to send welcome", "user_id", payload.UserID, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}

// handleBroadcastPage returns an error only when the page was not sent, so a
// retry does not repeat deliveries.
func (w *Worker) handleBroadcastPage(ctx context.Context, t *asynq.Task) error {
	var payload queue.BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		slog.Error("Failed to decode broadcast task", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	next, err := w.engine.BroadcastPage(ctx, &payload.Listing, payload.Cursor)
	if err != nil {
		slog.Error("Broadcast page failed", "listing_id", payload.Listing.ID, "cursor", payload.Cursor, "error", err)
		return err
	}

	slog.Info("Broadcast page sent", "listing_id", payload.Listing.ID, "cursor", payload.Cursor, "next", next)
	return nil
}

func (w *Worker) handlePremiumExpiry(ctx context.Context, _ *asynq.Task) error {
	if _, err := w.engine.RunPremiumExpiry(ctx, w.now()); err != nil {
		slog.Error("Premium expiry run failed", "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleDailyDigest(ctx context.Context, _ *asynq.Task) error {
	if _, err := w.engine.RunDailyDigest(ctx, w.now()); err != nil {
		slog.Error("Daily digest run failed", "error", err)
		return err
	}
	return nil
}
