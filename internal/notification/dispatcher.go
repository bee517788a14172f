package notification

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"cazlyncNotifier/internal/db"
)

const DefaultConcurrency = 16

// Sender is the push transport. Implementations own their timeouts.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// reasoner is implemented by transport errors that know a short failure
// reason.
type reasoner interface {
	Reason() string
}

// Dispatcher delivers one payload to many users. A failure for one target
// never stops the others and never surfaces as an error.
type Dispatcher struct {
	users       UserReader
	sender      Sender
	concurrency int

	// Observer, when set, sees every outcome as it settles. It is called
	// from several goroutines at once.
	Observer func(p Payload, o Outcome)
}

func NewDispatcher(users UserReader, sender Sender, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		users:       users,
		sender:      sender,
		concurrency: concurrency,
	}
}

// Dispatch resolves each user id and delivers p to it. Empty and repeated
// ids are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload, userIDs ...string) Report {
	targets := uniqueIDs(userIDs)
	return d.fanOut(ctx, p, len(targets), func(ctx context.Context, i int) Outcome {
		userID := targets[i]
		user, err := d.users.GetUser(ctx, userID)
		if errors.Is(err, db.ErrNotFound) {
			return Outcome{UserID: userID, Status: StatusSkippedRecipientMissing}
		}
		if err != nil {
			return Outcome{UserID: userID, Status: StatusFailed, Reason: err.Error()}
		}
		return d.deliver(ctx, p, user)
	})
}

// DispatchUsers delivers p to users that were already read from the store.
func (d *Dispatcher) DispatchUsers(ctx context.Context, p Payload, users []db.User) Report {
	return d.fanOut(ctx, p, len(users), func(ctx context.Context, i int) Outcome {
		return d.deliver(ctx, p, &users[i])
	})
}

func (d *Dispatcher) fanOut(ctx context.Context, p Payload, n int, attempt func(ctx context.Context, i int) Outcome) Report {
	report := Report{
		Channel:  p.Channel(),
		Event:    p.Event(),
		Outcomes: make([]Outcome, n),
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			outcome := attempt(ctx, i)
			report.Outcomes[i] = outcome
			if d.Observer != nil {
				d.Observer(p, outcome)
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (d *Dispatcher) deliver(ctx context.Context, p Payload, user *db.User) Outcome {
	if !user.HasToken() {
		slog.Debug("skipping notification, user has no push token", "user_id", user.ID, "event", p.Event())
		return Outcome{UserID: user.ID, Status: StatusSkippedNoToken}
	}

	if !IsChannelEnabled(user, p.Channel()) {
		slog.Debug("skipping notification, channel disabled", "user_id", user.ID, "channel", p.Channel())
		return Outcome{UserID: user.ID, Status: StatusSkippedPreferenceDisabled}
	}

	if err := d.sender.Send(ctx, user.FCMToken, p.Title, p.Body, p.Data); err != nil {
		reason := err.Error()
		var r reasoner
		if errors.As(err, &r) {
			reason = r.Reason()
		}
		slog.Warn("failed to send notification", "user_id", user.ID, "event", p.Event(), "reason", reason, "error", err)
		return Outcome{UserID: user.ID, Status: StatusFailed, Reason: reason}
	}

	slog.Info("notification sent", "user_id", user.ID, "event", p.Event())
	return Outcome{UserID: user.ID, Status: StatusDelivered}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
