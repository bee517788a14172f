package notification

import (
	"context"

	"cazlyncNotifier/internal/db"
)

// UserReader resolves a user record. It returns db.ErrNotFound when the
// user does not exist.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*db.User, error)
}

// IsChannelEnabled applies the default-on policy: only an explicit false
// turns a channel off.
func IsChannelEnabled(user *db.User, channel Channel) bool {
	if user == nil || user.NotificationSettings == nil {
		return true
	}
	enabled, ok := user.NotificationSettings[string(channel)]
	return !ok || enabled
}
