package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

func (s *Store) GetListing(ctx context.Context, listingID string) (*Listing, error) {
	if listingID == "" {
		return nil, ErrNotFound
	}

	doc, err := s.client.Collection(CollectionListings).Doc(listingID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing %s: %w", listingID, err)
	}

	var listing Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", listingID, err)
	}
	listing.ID = doc.Ref.ID

	return &listing, nil
}

// PremiumListingsExpiringBetween returns premium listings whose premium
// period ends in (after, until].
func (s *Store) PremiumListingsExpiringBetween(ctx context.Context, after, until time.Time) ([]Listing, error) {
	query := s.client.Collection(CollectionListings).
		Where("isPremium", "==", true).
		Where("premiumExpiresAt", ">", after).
		Where("premiumExpiresAt", "<=", until)

	listings, err := collectListings(query.Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get expiring premium listings: %w", err)
	}
	return listings, nil
}

// ActiveListingsCreatedSince returns active listings created strictly after
// since, newest first.
func (s *Store) ActiveListingsCreatedSince(ctx context.Context, since time.Time) ([]Listing, error) {
	query := s.client.Collection(CollectionListings).
		Where("status", "==", string(StatusActive)).
		Where("createdAt", ">", since).
		OrderBy("createdAt", firestore.Desc)

	listings, err := collectListings(query.Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get recent listings: %w", err)
	}
	return listings, nil
}

func collectListings(iter *firestore.DocumentIterator) ([]Listing, error) {
	defer iter.Stop()

	var result []Listing
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var listing Listing
		if err := doc.DataTo(&listing); err != nil {
			slog.Warn("failed to parse listing", "listing_id", doc.Ref.ID, "error", err)
			continue
		}
		listing.ID = doc.Ref.ID
		result = append(result, listing)
	}

	return result, nil
}
