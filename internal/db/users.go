package db

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrNotFound
	}

	doc, err := s.client.Collection(CollectionUsers).Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var user User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user %s: %w", userID, err)
	}
	user.ID = doc.Ref.ID

	return &user, nil
}

// UsersPage reads up to pageSize users in document-id order, starting after
// the document afterID ("" for the first page). next is the cursor for the
// following page, or "" when no users follow. Undecodable documents are
// skipped but still advance the cursor.
func (s *Store) UsersPage(ctx context.Context, afterID string, pageSize int) (users []User, next string, err error) {
	if pageSize <= 0 {
		pageSize = DefaultUserPageSize
	}

	// One extra document tells whether another page follows.
	query := s.client.Collection(CollectionUsers).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)
	if afterID != "" {
		query = query.StartAfter(afterID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	users = make([]User, 0, pageSize)
	read := 0
	last := ""
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return users, "", nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan users: %w", err)
		}
		if read == pageSize {
			return users, last, nil
		}
		read++
		last = doc.Ref.ID

		var user User
		if err := doc.DataTo(&user); err != nil {
			slog.Warn("failed to parse user during scan", "user_id", doc.Ref.ID, "error", err)
			continue
		}
		user.ID = doc.Ref.ID
		users = append(users, user)
	}
}

// ScanUsers walks the whole users collection page by page, handing each
// non-empty page to fn, so the collection is never held in memory at once.
func (s *Store) ScanUsers(ctx context.Context, pageSize int, fn func(users []User) error) error {
	cursor := ""
	for {
		users, next, err := s.UsersPage(ctx, cursor, pageSize)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			if err := fn(users); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}
