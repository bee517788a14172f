package eligibility

import (
	"time"

	"cazlyncNotifier/internal/db"
)

const (
	PremiumReminderWindow = 3 * 24 * time.Hour
	DigestWindow          = 24 * time.Hour
	DigestSampleSize      = 3

	day = 24 * time.Hour
)

// PremiumExpiryRange is the (after, until] range of expiry instants that
// qualify for a reminder at now.
func PremiumExpiryRange(now time.Time) (time.Time, time.Time) {
	return now, now.Add(PremiumReminderWindow)
}

func ExpiresSoon(listing *db.Listing, now time.Time) bool {
	if !listing.IsPremium || listing.PremiumExpiresAt == nil {
		return false
	}
	after, until := PremiumExpiryRange(now)
	expires := *listing.PremiumExpiresAt
	return expires.After(after) && !expires.After(until)
}

// DaysRemaining rounds the time left up to whole days.
func DaysRemaining(expiresAt, now time.Time) int {
	ms := expiresAt.Sub(now).Milliseconds()
	if ms <= 0 {
		return 0
	}
	dayMs := day.Milliseconds()
	return int((ms + dayMs - 1) / dayMs)
}

// DigestSince is the exclusive start of the (since, now] window the digest
// covers.
func DigestSince(now time.Time) time.Time {
	return now.Add(-DigestWindow)
}

func InDigest(listing *db.Listing, now time.Time) bool {
	if listing.Status != db.StatusActive {
		return false
	}
	return listing.CreatedAt.After(DigestSince(now)) && !listing.CreatedAt.After(now)
}

// DigestListings keeps the listings that belong in the digest at now,
// preserving input order.
func DigestListings(listings []db.Listing, now time.Time) []db.Listing {
	var result []db.Listing
	for i := range listings {
		if InDigest(&listings[i], now) {
			result = append(result, listings[i])
		}
	}
	return result
}
