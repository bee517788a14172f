package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cazlyncNotifier/internal/db"
)

type fakeUsers struct {
	users map[string]*db.User
	err   map[string]error
}

func (f *fakeUsers) GetUser(_ context.Context, userID string) (*db.User, error) {
	if err, ok := f.err[userID]; ok {
		return nil, err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

type reasonError struct{ reason string }

func (e *reasonError) Error() string { return "transport: " + e.reason }
func (e *reasonError) Reason() string { return e.reason }

type fakeSender struct {
	mu       sync.Mutex
	sent     []string
	failFor  map[string]error
	delay    time.Duration
	inFlight int32
	peak     int32
}

func (f *fakeSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err, ok := f.failFor[token]; ok {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, token)
	f.mu.Unlock()
	return nil
}

func userWithToken(id string) *db.User {
	return &db.User{ID: id, FCMToken: "tok-" + id}
}

func TestDispatch_PartialFailure(t *testing.T) {
	users := &fakeUsers{users: map[string]*db.User{}}
	ids := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, id := range ids {
		users.users[id] = userWithToken(id)
	}
	sender := &fakeSender{failFor: map[string]error{"tok-u3": &reasonError{reason: "unavailable"}}}

	d := NewDispatcher(users, sender, 2)
	report := d.Dispatch(context.Background(), NewListing(&db.Listing{ID: "l1", Brand: "Toyota"}), ids...)

	require.Len(t, report.Outcomes, 5)
	assert.Equal(t, 4, report.Delivered())
	assert.Equal(t, 1, report.Failed())
	for i, o := range report.Outcomes {
		assert.Equal(t, ids[i], o.UserID, "outcomes keep target order")
	}
	assert.Equal(t, Outcome{UserID: "u3", Status: StatusFailed, Reason: "unavailable"}, report.Outcomes[2])
	assert.Equal(t, ChannelNewListings, report.Channel)
}

func TestDispatch_SkipOutcomes(t *testing.T) {
	users := &fakeUsers{
		users: map[string]*db.User{
			"ok":       userWithToken("ok"),
			"no-token": {ID: "no-token"},
			"muted": {
				ID:                   "muted",
				FCMToken:             "tok-muted",
				NotificationSettings: map[string]bool{"messages": false},
			},
		},
		err: map[string]error{"broken": errors.New("firestore unavailable")},
	}
	sender := &fakeSender{}

	d := NewDispatcher(users, sender, 4)
	p := NewMessage("Ann", &db.ChatSession{ID: "s1"}, &db.Message{SenderID: "x", Text: "hi"})
	report := d.Dispatch(context.Background(), p, "ok", "no-token", "muted", "ghost", "broken")

	statuses := map[string]Status{}
	for _, o := range report.Outcomes {
		statuses[o.UserID] = o.Status
	}
	assert.Equal(t, map[string]Status{
		"ok":       StatusDelivered,
		"no-token": StatusSkippedNoToken,
		"muted":    StatusSkippedPreferenceDisabled,
		"ghost":    StatusSkippedRecipientMissing,
		"broken":   StatusFailed,
	}, statuses)
	assert.Equal(t, []string{"tok-ok"}, sender.sent)
}

func TestDispatch_DropsEmptyAndDuplicateTargets(t *testing.T) {
	users := &fakeUsers{users: map[string]*db.User{"u1": userWithToken("u1")}}
	sender := &fakeSender{}

	report := NewDispatcher(users, sender, 1).Dispatch(context.Background(), Welcome(&db.User{}), "", "u1", "u1")

	assert.Len(t, report.Outcomes, 1)
	assert.Len(t, sender.sent, 1)
}

func TestDispatch_NoTargets(t *testing.T) {
	sender := &fakeSender{}
	report := NewDispatcher(&fakeUsers{}, sender, 1).Dispatch(context.Background(), Welcome(&db.User{}))

	assert.Empty(t, report.Outcomes)
	assert.Empty(t, sender.sent)
}

func TestDispatchUsers_BoundsConcurrency(t *testing.T) {
	var users []db.User
	for i := 0; i < 40; i++ {
		users = append(users, *userWithToken(fmt.Sprintf("u%d", i)))
	}
	sender := &fakeSender{delay: 5 * time.Millisecond}

	var observed int32
	d := NewDispatcher(&fakeUsers{}, sender, 3)
	d.Observer = func(_ Payload, _ Outcome) { atomic.AddInt32(&observed, 1) }

	report := d.DispatchUsers(context.Background(), DailyDigest([]db.Listing{{ID: "l1"}}), users)

	assert.Equal(t, 40, report.Delivered())
	assert.LessOrEqual(t, atomic.LoadInt32(&sender.peak), int32(3))
	assert.Equal(t, int32(40), atomic.LoadInt32(&observed))
}

func TestDispatch_PreferenceNeverBypassed(t *testing.T) {
	channels := []Payload{
		NewMessage("a", &db.ChatSession{}, &db.Message{Text: "x"}),
		NewFavorite(&db.User{ID: "a"}, &db.Listing{}),
		ViewMilestone(&db.Listing{}, 50),
		PremiumExpiry(&db.Listing{}, 2),
		NewListing(&db.Listing{}),
		DailyDigest([]db.Listing{{}}),
		Welcome(&db.User{}),
	}

	for _, p := range channels {
		t.Run(string(p.Channel()), func(t *testing.T) {
			user := userWithToken("u")
			user.NotificationSettings = map[string]bool{string(p.Channel()): false}
			sender := &fakeSender{}

			report := NewDispatcher(&fakeUsers{users: map[string]*db.User{"u": user}}, sender, 1).Dispatch(context.Background(), p, "u")

			assert.Equal(t, StatusSkippedPreferenceDisabled, report.Outcomes[0].Status)
			assert.Empty(t, sender.sent)
		})
	}
}

func TestReportMerge(t *testing.T) {
	var total Report
	total.Merge(Report{Channel: ChannelDailyDigest, Event: "daily_digest", Outcomes: []Outcome{{UserID: "a", Status: StatusDelivered}}})
	total.Merge(Report{Channel: ChannelDailyDigest, Outcomes: []Outcome{{UserID: "b", Status: StatusFailed, Reason: "timeout"}}})

	assert.Equal(t, ChannelDailyDigest, total.Channel)
	assert.Equal(t, "daily_digest", total.Event)
	assert.Equal(t, 1, total.Delivered())
	assert.Equal(t, 1, total.Failed())
	assert.Equal(t, "b:failed(timeout)", total.Outcomes[1].String())
}
