// Package eligibility holds the pure rules that decide whether a change
// should turn into a notification. Nothing here touches the store or the
// push transport.
package eligibility

import "cazlyncNotifier/internal/db"

type Transition string

const (
	TransitionNone     Transition = ""
	TransitionApproved Transition = "approved"
	TransitionRejected Transition = "rejected"
	TransitionRemoved  Transition = "removed"
)

// ViewMilestones must stay in ascending order.
var ViewMilestones = []int64{50, 100, 500, 1000}

// StatusTransition classifies a (previous, next) status pair. The first
// matching rule wins.
func StatusTransition(prev, next db.ListingStatus) Transition {
	switch {
	case prev != db.StatusActive && next == db.StatusActive:
		return TransitionApproved
	case prev != db.StatusRejected && next == db.StatusRejected:
		return TransitionRejected
	case prev == db.StatusActive && next == db.StatusDeleted:
		return TransitionRemoved
	default:
		return TransitionNone
	}
}

// CrossedMilestone returns the lowest threshold t with prev < t <= next.
func CrossedMilestone(prev, next int64) (int64, bool) {
	for _, t := range ViewMilestones {
		if prev < t && next >= t {
			return t, true
		}
	}
	return 0, false
}

// BroadcastOnCreate reports whether a freshly created listing is announced.
// Listings waiting for moderation are announced by nothing.
func BroadcastOnCreate(listing *db.Listing) bool {
	return listing != nil && listing.Status == db.StatusActive
}
