package notification

import "fmt"

// Channel is both the payload category and the preference key a user can
// switch off.
type Channel string

const (
	ChannelMessages    Channel = "messages"
	ChannelListings    Channel = "listings"
	ChannelFavorites   Channel = "favorites"
	ChannelPremium     Channel = "premium"
	ChannelNewListings Channel = "newListings"
	ChannelDailyDigest Channel = "dailyDigest"
	ChannelWelcome     Channel = "welcome"
)

const (
	DataKeyType        = "type"
	DataKeyEvent       = "event"
	DataKeyClickAction = "click_action"

	ClickAction = "FLUTTER_NOTIFICATION_CLICK"
)

type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (p Payload) Channel() Channel {
	return Channel(p.Data[DataKeyType])
}

func (p Payload) Event() string {
	return p.Data[DataKeyEvent]
}

type Status string

const (
	StatusDelivered                 Status = "delivered"
	StatusSkippedNoToken            Status = "skipped_no_token"
	StatusSkippedPreferenceDisabled Status = "skipped_preference_disabled"
	StatusSkippedRecipientMissing   Status = "skipped_recipient_missing"
	StatusFailed                    Status = "failed"
)

type Outcome struct {
	UserID string `json:"user_id"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (o Outcome) String() string {
	if o.Reason != "" {
		return fmt.Sprintf("%s:%s(%s)", o.UserID, o.Status, o.Reason)
	}
	return fmt.Sprintf("%s:%s", o.UserID, o.Status)
}

// Report collects the per-target outcomes of one fan-out.
type Report struct {
	Channel  Channel   `json:"channel"`
	Event    string    `json:"event"`
	Outcomes []Outcome `json:"outcomes"`
}

func (r Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (r Report) Delivered() int {
	return r.Count(StatusDelivered)
}

func (r Report) Failed() int {
	return r.Count(StatusFailed)
}

func (r *Report) Merge(other Report) {
	if r.Channel == "" {
		r.Channel = other.Channel
		r.Event = other.Event
	}
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}
