package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/eligibility"
	"cazlyncNotifier/internal/notification"
)

// RunPremiumExpiry reminds owners whose premium listing expires within the
// reminder window. A failed reminder does not stop the others.
func (e *Engine) RunPremiumExpiry(ctx context.Context, now time.Time) (notification.Report, error) {
	from, until := eligibility.PremiumExpiryRange(now)
	listings, err := e.store.PremiumListingsExpiringBetween(ctx, from, until)
	if err != nil {
		return notification.Report{}, fmt.Errorf("failed to query expiring premium listings: %w", err)
	}

	var total notification.Report
	for i := range listings {
		listing := &listings[i]
		if !eligibility.ExpiresSoon(listing, now) {
			continue
		}
		days := eligibility.DaysRemaining(*listing.PremiumExpiresAt, now)
		total.Merge(e.dispatcher.Dispatch(ctx, notification.PremiumExpiry(listing, days), listing.SellerID))
	}

	slog.Info("premium expiry run finished",
		"candidates", len(listings),
		"targets", len(total.Outcomes),
		"delivered", total.Delivered(),
		"failed", total.Failed(),
	)
	return total, nil
}

// RunDailyDigest sends one summary of the last day's new listings to every
// user. Nothing is sent when there are no new listings.
func (e *Engine) RunDailyDigest(ctx context.Context, now time.Time) (notification.Report, error) {
	candidates, err := e.store.ActiveListingsCreatedSince(ctx, eligibility.DigestSince(now))
	if err != nil {
		return notification.Report{}, fmt.Errorf("failed to query new listings: %w", err)
	}

	listings := eligibility.DigestListings(candidates, now)
	if len(listings) == 0 {
		slog.Info("no new listings for daily digest")
		return notification.Report{}, nil
	}

	p := notification.DailyDigest(listings)
	var total notification.Report
	err = e.store.ScanUsers(ctx, e.pageSize, func(users []db.User) error {
		total.Merge(e.dispatcher.DispatchUsers(ctx, p, users))
		return nil
	})

	slog.Info("daily digest run finished",
		"listings", len(listings),
		"targets", len(total.Outcomes),
		"delivered", total.Delivered(),
		"failed", total.Failed(),
	)
	if err != nil {
		return total, fmt.Errorf("failed to scan users for daily digest: %w", err)
	}
	return total, nil
}
