package queue

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
)

const (
	QueueEvents    = "events"
	QueueBroadcast = "broadcast"
	QueueScheduled = "scheduled"

	TaskChangeEvent   = "event:change"
	TaskWelcome       = "notify:welcome"
	TaskBroadcastPage = "notify:broadcast_page"
	TaskPremiumExpiry = "batch:premium_expiry"
	TaskDailyDigest   = "batch:daily_digest"

	DefaultWelcomeDelay     = 5 * time.Second
	DefaultBroadcastTimeout = 5 * time.Minute

	// Completed tasks keep their id this long, which is the window in which a
	// redelivered event is recognised as a duplicate.
	eventRetention = 24 * time.Hour
)

// ErrDuplicate is returned when an event with the same id was already
// accepted.
var ErrDuplicate = errors.New("event already accepted")

type WelcomePayload struct {
	UserID string `json:"user_id"`
}

// BroadcastPayload is one page of a new-listing broadcast: the listing as it
// was created and the id of the last user covered by earlier pages.
type BroadcastPayload struct {
	Listing db.Listing `json:"listing"`
	Cursor  string     `json:"cursor"`
}

// BroadcastPageTimeout is the deadline for one broadcast page when up to
// workers pages share a send rate of perSecond: twice the worst-case send
// time plus a minute for the page read.
func BroadcastPageTimeout(pageSize, workers int, perSecond float64) time.Duration {
	if pageSize <= 0 || workers <= 0 || perSecond <= 0 {
		return DefaultBroadcastTimeout
	}
	worstCase := time.Duration(float64(pageSize) * float64(workers) / perSecond * float64(time.Second))
	return 2*worstCase + time.Minute
}

// RedisOpt builds the connection options shared by the client, the worker
// and the scheduler.
func RedisOpt(addr string) asynq.RedisClientOpt {
	if addr == "" {
		addr = "localhost:6379"
	}
	return asynq.RedisClientOpt{Addr: addr}
}

type Client struct {
	client           *asynq.Client
	inspector        *asynq.Inspector
	welcomeDelay     time.Duration
	broadcastTimeout time.Duration
}

func NewClient(redisOpt asynq.RedisClientOpt, welcomeDelay, broadcastTimeout time.Duration) *Client {
	if welcomeDelay <= 0 {
		welcomeDelay = DefaultWelcomeDelay
	}
	if broadcastTimeout <= 0 {
		broadcastTimeout = DefaultBroadcastTimeout
	}
	return &Client{
		client:           asynq.NewClient(redisOpt),
		inspector:        asynq.NewInspector(redisOpt),
		welcomeDelay:     welcomeDelay,
		broadcastTimeout: broadcastTimeout,
	}
}

// EnqueueChangeEvent queues env for the worker using the envelope id as the
// task id, so a repeated delivery of the same event is rejected with
// ErrDuplicate.
func (c *Client) EnqueueChangeEvent(ctx context.Context, env *event.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", env.ID, err)
	}

	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TaskChangeEvent, payload),
		asynq.TaskID(env.ID),
		asynq.Queue(QueueEvents),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(eventRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue event %s: %w", env.ID, err)
	}
	return nil
}

// DeferWelcome schedules a single welcome attempt for userID after the
// configured delay. Scheduling twice for the same user is a no-op.
func (c *Client) DeferWelcome(ctx context.Context, userID string) error {
	payload, err := json.Marshal(WelcomePayload{UserID: userID})
	if err != nil {
		return fmt.Errorf("failed to marshal welcome payload: %w", err)
	}

	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TaskWelcome, payload),
		asynq.TaskID(WelcomeTaskID(userID)),
		asynq.Queue(QueueEvents),
		asynq.ProcessIn(c.welcomeDelay),
		asynq.MaxRetry(0),
		asynq.Retention(eventRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("welcome already scheduled", "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to schedule welcome for %s: %w", userID, err)
	}
	return nil
}

func WelcomeTaskID(userID string) string {
	return "welcome:" + userID
}

// DeferBroadcastPage queues the page of listing's broadcast that starts after
// cursor. Each page is queued at most once, so a retried page never forks the
// chain.
func (c *Client) DeferBroadcastPage(ctx context.Context, listing *db.Listing, cursor string) error {
	payload, err := json.Marshal(BroadcastPayload{Listing: *listing, Cursor: cursor})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TaskBroadcastPage, payload),
		asynq.TaskID(BroadcastTaskID(listing.ID, cursor)),
		asynq.Queue(QueueBroadcast),
		asynq.MaxRetry(3),
		asynq.Timeout(c.broadcastTimeout),
		asynq.Retention(eventRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("broadcast page already queued", "listing_id", listing.ID, "cursor", cursor)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to queue broadcast page for %s: %w", listing.ID, err)
	}
	return nil
}

func BroadcastTaskID(listingID, cursor string) string {
	return "broadcast:" + listingID + ":" + cursor
}

// GetTaskStatus returns the current state of an accepted event.
func (c *Client) GetTaskStatus(taskID string) (*asynq.TaskInfo, error) {
	info, err := c.inspector.GetTaskInfo(QueueEvents, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task info: %w", err)
	}
	return info, nil
}

func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}
