package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

func (s *Store) GetChatSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}

	doc, err := s.client.Collection(CollectionChatSessions).Doc(sessionID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat session %s: %w", sessionID, err)
	}

	var session ChatSession
	if err := doc.DataTo(&session); err != nil {
		return nil, fmt.Errorf("failed to parse chat session %s: %w", sessionID, err)
	}
	session.ID = doc.Ref.ID

	return &session, nil
}

// EarliestMessagesFrom returns up to limit messages sent by senderID in the
// session, oldest first.
func (s *Store) EarliestMessagesFrom(ctx context.Context, sessionID, senderID string, limit int) ([]Message, error) {
	iter := s.client.Collection(CollectionChatSessions).Doc(sessionID).
		Collection(CollectionMessages).
		Where("senderId", "==", senderID).
		OrderBy("timestamp", firestore.Asc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var result []Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get messages for session %s: %w", sessionID, err)
		}

		var message Message
		if err := doc.DataTo(&message); err != nil {
			return nil, fmt.Errorf("failed to parse message %s: %w", doc.Ref.ID, err)
		}
		message.ID = doc.Ref.ID
		message.SessionID = sessionID
		result = append(result, message)
	}

	return result, nil
}
