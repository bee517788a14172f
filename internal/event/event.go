// Package event turns change-feed envelopes into typed change events.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"cazlyncNotifier/internal/db"
)

type Kind string

const (
	KindUserCreated    Kind = "user.created"
	KindUserUpdated    Kind = "user.updated"
	KindListingCreated Kind = "listing.created"
	KindListingUpdated Kind = "listing.updated"
	KindMessageCreated Kind = "message.created"
)

// ErrMalformed marks an event that can never be processed. Callers reject it
// and do not retry.
var ErrMalformed = errors.New("malformed event")

var validate = validator.New()

// Envelope is the wire form of a single document change.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind" validate:"required,oneof=user.created user.updated listing.created listing.updated message.created"`
	DocumentID string          `json:"documentId" validate:"required"`
	SessionID  string          `json:"sessionId,omitempty" validate:"required_if=Kind message.created"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// ChangeEvent is one of UserCreated, UserUpdated, ListingCreated,
// ListingUpdated or MessageCreated.
type ChangeEvent interface {
	isChangeEvent()
}

type UserCreated struct {
	User db.User
}

type UserUpdated struct {
	Before db.User
	After  db.User
}

type ListingCreated struct {
	Listing db.Listing
}

type ListingUpdated struct {
	Before db.Listing
	After  db.Listing
}

type MessageCreated struct {
	Message db.Message
}

func (UserCreated) isChangeEvent()    {}
func (UserUpdated) isChangeEvent()    {}
func (ListingCreated) isChangeEvent() {}
func (ListingUpdated) isChangeEvent() {}
func (MessageCreated) isChangeEvent() {}

// Validate checks the envelope shape without decoding the documents.
func (e *Envelope) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Decode validates env and decodes its document snapshots. Every error it
// returns wraps ErrMalformed.
func Decode(env *Envelope) (ChangeEvent, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	switch env.Kind {
	case KindUserCreated:
		var u db.User
		if err := decodeDoc(env.After, "after", &u); err != nil {
			return nil, err
		}
		u.ID = env.DocumentID
		return UserCreated{User: u}, nil

	case KindUserUpdated:
		var before, after db.User
		if err := decodeDoc(env.Before, "before", &before); err != nil {
			return nil, err
		}
		if err := decodeDoc(env.After, "after", &after); err != nil {
			return nil, err
		}
		before.ID, after.ID = env.DocumentID, env.DocumentID
		return UserUpdated{Before: before, After: after}, nil

	case KindListingCreated:
		var l db.Listing
		if err := decodeDoc(env.After, "after", &l); err != nil {
			return nil, err
		}
		l.ID = env.DocumentID
		if err := validateDoc(&l); err != nil {
			return nil, err
		}
		return ListingCreated{Listing: l}, nil

	case KindListingUpdated:
		var before, after db.Listing
		if err := decodeDoc(env.Before, "before", &before); err != nil {
			return nil, err
		}
		if err := decodeDoc(env.After, "after", &after); err != nil {
			return nil, err
		}
		before.ID, after.ID = env.DocumentID, env.DocumentID
		if err := validateDoc(&after); err != nil {
			return nil, err
		}
		return ListingUpdated{Before: before, After: after}, nil

	case KindMessageCreated:
		var m db.Message
		if err := decodeDoc(env.After, "after", &m); err != nil {
			return nil, err
		}
		m.ID = env.DocumentID
		m.SessionID = env.SessionID
		if err := validateDoc(&m); err != nil {
			return nil, err
		}
		return MessageCreated{Message: m}, nil
	}

	return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, env.Kind)
}

func decodeDoc(raw json.RawMessage, side string, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing %s snapshot", ErrMalformed, side)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: failed to decode %s snapshot: %v", ErrMalformed, side, err)
	}
	return nil
}

func validateDoc(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
