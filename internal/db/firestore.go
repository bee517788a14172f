package db

import (
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	CollectionUsers        = "users"
	CollectionListings     = "listings"
	CollectionChatSessions = "chatSessions"
	CollectionMessages     = "messages"

	DefaultUserPageSize = 500
)

var ErrNotFound = errors.New("document not found")

// Store reads users, listings and chats from Firestore. It never writes.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
