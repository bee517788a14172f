package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/event"
	"cazlyncNotifier/internal/notification"
	"cazlyncNotifier/internal/queue"
)

type fakeEngine struct {
	events    []event.ChangeEvent
	welcomed  []string
	pages     []string
	premiumAt []time.Time
	digestAt  []time.Time
	err       error
}

func (f *fakeEngine) HandleEvent(_ context.Context, ev event.ChangeEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeEngine) SendWelcome(_ context.Context, userID string) error {
	f.welcomed = append(f.welcomed, userID)
	return f.err
}

func (f *fakeEngine) BroadcastPage(_ context.Context, listing *db.Listing, cursor string) (string, error) {
	f.pages = append(f.pages, listing.ID+"@"+cursor)
	return "", f.err
}

func (f *fakeEngine) RunPremiumExpiry(_ context.Context, now time.Time) (notification.Report, error) {
	f.premiumAt = append(f.premiumAt, now)
	return notification.Report{}, f.err
}

func (f *fakeEngine) RunDailyDigest(_ context.Context, now time.Time) (notification.Report, error) {
	f.digestAt = append(f.digestAt, now)
	return notification.Report{}, f.err
}

func newTestWorker(engine Engine, now time.Time) *Worker {
	return &Worker{engine: engine, now: func() time.Time { return now }}
}

func changeTask(t *testing.T, env event.Envelope) *asynq.Task {
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	return asynq.NewTask(queue.TaskChangeEvent, payload)
}

func TestHandleChangeEvent(t *testing.T) {
	engine := &fakeEngine{}
	w := newTestWorker(engine, time.Now())

	task := changeTask(t, event.Envelope{
		ID:         "e1",
		Kind:       event.KindUserCreated,
		DocumentID: "u1",
		After:      json.RawMessage(`{"displayName":"Ann"}`),
	})
	require.NoError(t, w.Mux().ProcessTask(context.Background(), task))

	require.Len(t, engine.events, 1)
	created, ok := engine.events[0].(event.UserCreated)
	require.True(t, ok)
	assert.Equal(t, "u1", created.User.ID)
}

func TestHandleChangeEvent_MalformedIsNotRetried(t *testing.T) {
	engine := &fakeEngine{}
	w := newTestWorker(engine, time.Now())

	err := w.Mux().ProcessTask(context.Background(), changeTask(t, event.Envelope{ID: "e1", Kind: "bogus"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskChangeEvent, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	assert.Empty(t, engine.events)
}

func TestHandleChangeEvent_EngineFailureIsRetried(t *testing.T) {
	boom := errors.New("firestore unavailable")
	w := newTestWorker(&fakeEngine{err: boom}, time.Now())

	task := changeTask(t, event.Envelope{
		ID:         "e1",
		Kind:       event.KindListingCreated,
		DocumentID: "l1",
		After:      json.RawMessage(`{"sellerId":"s","status":"active"}`),
	})
	err := w.Mux().ProcessTask(context.Background(), task)

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWelcome(t *testing.T) {
	engine := &fakeEngine{}
	w := newTestWorker(engine, time.Now())

	payload, err := json.Marshal(queue.WelcomePayload{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskWelcome, payload)))

	assert.Equal(t, []string{"u1"}, engine.welcomed)
}

func TestHandleBroadcastPage(t *testing.T) {
	engine := &fakeEngine{}
	w := newTestWorker(engine, time.Now())

	payload, err := json.Marshal(queue.BroadcastPayload{
		Listing: db.Listing{ID: "l1", SellerID: "s", Status: db.StatusActive},
		Cursor:  "u500",
	})
	require.NoError(t, err)
	require.NoError(t, w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskBroadcastPage, payload)))
	assert.Equal(t, []string{"l1@u500"}, engine.pages)

	err = w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskBroadcastPage, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleBroadcastPage_ReadFailureIsRetried(t *testing.T) {
	boom := errors.New("firestore unavailable")
	w := newTestWorker(&fakeEngine{err: boom}, time.Now())

	payload, err := json.Marshal(queue.BroadcastPayload{Listing: db.Listing{ID: "l1"}})
	require.NoError(t, err)
	err = w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskBroadcastPage, payload))

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleBatchJobsUseClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := &fakeEngine{}
	w := newTestWorker(engine, now)

	require.NoError(t, w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskPremiumExpiry, nil)))
	require.NoError(t, w.Mux().ProcessTask(context.Background(), asynq.NewTask(queue.TaskDailyDigest, nil)))

	assert.Equal(t, []time.Time{now}, engine.premiumAt)
	assert.Equal(t, []time.Time{now}, engine.digestAt)
}
