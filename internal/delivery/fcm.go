// Package delivery sends push notifications through Firebase Cloud Messaging.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/messaging"
	"golang.org/x/time/rate"
)

const (
	ReasonTimeout           = "timeout"
	ReasonTokenUnregistered = "token_unregistered"
	ReasonInvalidArgument   = "invalid_argument"
	ReasonQuotaExceeded     = "quota_exceeded"
	ReasonUnavailable       = "unavailable"
	ReasonSendFailed        = "send_failed"

	DefaultTimeout = 10 * time.Second
	DefaultRate    = 100.0

	sound = "default"
)

// Error is a failed send with a short machine-readable reason.
type Error struct {
	reason string
	err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fcm send failed (%s): %v", e.reason, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Reason() string {
	return e.reason
}

// MessageSender is the part of *messaging.Client the delivery client needs.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Client struct {
	fcm     MessageSender
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient wraps an FCM sender with a shared send rate (messages per
// second) and a per-message timeout.
func NewClient(fcm MessageSender, perSecond float64, timeout time.Duration) *Client {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		fcm:     fcm,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		timeout: timeout,
	}
}

func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{reason: ReasonTimeout, err: err}
	}

	id, err := c.fcm.Send(ctx, BuildMessage(token, title, body, data))
	if err != nil {
		return classify(err)
	}

	slog.Debug("fcm message accepted", "message_id", id)
	return nil
}

// BuildMessage assembles the FCM message with a default sound on both
// platforms. The click action in data, if any, is mirrored on Android.
func BuildMessage(token, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:       sound,
				ClickAction: data["click_action"],
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: sound},
			},
		},
	}
}

func classify(err error) *Error {
	reason := ReasonSendFailed
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = ReasonTimeout
	case messaging.IsUnregistered(err):
		reason = ReasonTokenUnregistered
	case messaging.IsInvalidArgument(err):
		reason = ReasonInvalidArgument
	case messaging.IsQuotaExceeded(err):
		reason = ReasonQuotaExceeded
	case messaging.IsUnavailable(err), messaging.IsInternal(err):
		reason = ReasonUnavailable
	}
	return &Error{reason: reason, err: err}
}
