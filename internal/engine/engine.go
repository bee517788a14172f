// Package engine routes change events through the eligibility filters and
// fans the resulting notifications out to their recipients.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/eligibility"
	"cazlyncNotifier/internal/event"
	"cazlyncNotifier/internal/notification"
)

// Store is the read-only view of the application data the engine needs.
type Store interface {
	GetUser(ctx context.Context, userID string) (*db.User, error)
	GetListing(ctx context.Context, listingID string) (*db.Listing, error)
	GetChatSession(ctx context.Context, sessionID string) (*db.ChatSession, error)
	EarliestMessagesFrom(ctx context.Context, sessionID, senderID string, limit int) ([]db.Message, error)
	PremiumListingsExpiringBetween(ctx context.Context, after, until time.Time) ([]db.Listing, error)
	ActiveListingsCreatedSince(ctx context.Context, since time.Time) ([]db.Listing, error)
	ScanUsers(ctx context.Context, pageSize int, fn func(users []db.User) error) error
	UsersPage(ctx context.Context, afterID string, pageSize int) ([]db.User, string, error)
}

// Deferrer moves work out of the current task: the welcome notification for
// a new user and each page of a new-listing broadcast.
type Deferrer interface {
	DeferWelcome(ctx context.Context, userID string) error
	DeferBroadcastPage(ctx context.Context, listing *db.Listing, cursor string) error
}

type Engine struct {
	store      Store
	dispatcher *notification.Dispatcher
	deferrer   Deferrer
	pageSize   int
}

// New builds an engine. A nil deferrer runs welcomes and broadcasts inline.
func New(store Store, dispatcher *notification.Dispatcher, deferrer Deferrer, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = db.DefaultUserPageSize
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		deferrer:   deferrer,
		pageSize:   pageSize,
	}
}

// HandleEvent runs every filter that applies to ev. Filters for the same
// event are independent: each runs even when another fails, and their errors
// are joined.
func (e *Engine) HandleEvent(ctx context.Context, ev event.ChangeEvent) error {
	switch ev := ev.(type) {
	case event.MessageCreated:
		return e.handleMessage(ctx, &ev.Message)
	case event.ListingUpdated:
		return errors.Join(
			e.notifyStatusChange(ctx, &ev.Before, &ev.After),
			e.notifyViewMilestone(ctx, &ev.Before, &ev.After),
		)
	case event.ListingCreated:
		return e.broadcastNewListing(ctx, &ev.Listing)
	case event.UserUpdated:
		return e.notifyFavorites(ctx, &ev.Before, &ev.After)
	case event.UserCreated:
		return e.scheduleWelcome(ctx, &ev.User)
	default:
		return fmt.Errorf("%w: unsupported event %T", event.ErrMalformed, ev)
	}
}

func (e *Engine) handleMessage(ctx context.Context, msg *db.Message) error {
	session, err := e.store.GetChatSession(ctx, msg.SessionID)
	if errors.Is(err, db.ErrNotFound) {
		slog.Info("chat session not found, skipping message notifications", "session_id", msg.SessionID, "message_id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get chat session %s: %w", msg.SessionID, err)
	}

	senderName := e.displayName(ctx, msg.SenderID)
	return errors.Join(
		e.notifyMessageArrival(ctx, session, msg, senderName),
		e.notifyFirstBuyerMessage(ctx, session, msg, senderName),
	)
}

func (e *Engine) notifyMessageArrival(ctx context.Context, session *db.ChatSession, msg *db.Message, senderName string) error {
	recipient := eligibility.MessageRecipient(session, msg.SenderID)
	e.logReport(e.dispatcher.Dispatch(ctx, notification.NewMessage(senderName, session, msg), recipient))
	return nil
}

func (e *Engine) notifyFirstBuyerMessage(ctx context.Context, session *db.ChatSession, msg *db.Message, senderName string) error {
	if !eligibility.IsBuyerMessage(session, msg) {
		return nil
	}

	earliest, err := e.store.EarliestMessagesFrom(ctx, session.ID, msg.SenderID, eligibility.FirstMessageLookahead)
	if err != nil {
		return fmt.Errorf("failed to read earliest buyer messages in %s: %w", session.ID, err)
	}
	if !eligibility.IsFirstBuyerMessage(msg.ID, earliest) {
		return nil
	}

	listing, err := e.optionalListing(ctx, session.ListingID)
	if err != nil {
		return err
	}

	p := notification.FirstBuyerMessage(senderName, listing, session, msg)
	e.logReport(e.dispatcher.Dispatch(ctx, p, session.SellerID))
	return nil
}

func (e *Engine) notifyStatusChange(ctx context.Context, before, after *db.Listing) error {
	transition := eligibility.StatusTransition(before.Status, after.Status)
	p, ok := notification.ListingStatusChanged(transition, after)
	if !ok {
		return nil
	}
	e.logReport(e.dispatcher.Dispatch(ctx, p, after.SellerID))
	return nil
}

func (e *Engine) notifyViewMilestone(ctx context.Context, before, after *db.Listing) error {
	milestone, ok := eligibility.CrossedMilestone(before.ViewCount, after.ViewCount)
	if !ok {
		return nil
	}
	e.logReport(e.dispatcher.Dispatch(ctx, notification.ViewMilestone(after, milestone), after.SellerID))
	return nil
}

func (e *Engine) notifyFavorites(ctx context.Context, before, after *db.User) error {
	var errs []error
	for _, listingID := range eligibility.AddedFavorites(before.FavoriteListings, after.FavoriteListings) {
		listing, err := e.store.GetListing(ctx, listingID)
		if errors.Is(err, db.ErrNotFound) {
			slog.Info("favorited listing not found, skipping", "listing_id", listingID, "user_id", after.ID)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to get listing %s: %w", listingID, err))
			continue
		}
		if !eligibility.NotifiesOwner(after.ID, listing.SellerID) {
			continue
		}
		e.logReport(e.dispatcher.Dispatch(ctx, notification.NewFavorite(after, listing), listing.SellerID))
	}
	return errors.Join(errs...)
}

// broadcastNewListing starts the fan-out of a newly active listing. With a
// deferrer every page of users runs as its own task.
func (e *Engine) broadcastNewListing(ctx context.Context, listing *db.Listing) error {
	if !eligibility.BroadcastOnCreate(listing) {
		return nil
	}

	if e.deferrer != nil {
		if err := e.deferrer.DeferBroadcastPage(ctx, listing, ""); err != nil {
			return fmt.Errorf("failed to start broadcast of listing %s: %w", listing.ID, err)
		}
		return nil
	}

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("broadcast of listing %s stopped after %q: %w", listing.ID, cursor, err)
		}
		next, err := e.BroadcastPage(ctx, listing, cursor)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}

// BroadcastPage sends listing to the page of users after cursor, excluding
// its seller, and returns the cursor of the following page ("" at the end).
// The following page is handed to the deferrer before anything is sent; an
// error means nothing on this page went out.
func (e *Engine) BroadcastPage(ctx context.Context, listing *db.Listing, cursor string) (string, error) {
	users, next, err := e.store.UsersPage(ctx, cursor, e.pageSize)
	if err != nil {
		return "", fmt.Errorf("failed to read users after %q for listing %s: %w", cursor, listing.ID, err)
	}

	if next != "" && e.deferrer != nil {
		if err := e.deferrer.DeferBroadcastPage(ctx, listing, next); err != nil {
			return "", fmt.Errorf("failed to defer broadcast page %q for listing %s: %w", next, listing.ID, err)
		}
	}

	recipients := make([]db.User, 0, len(users))
	for _, u := range users {
		if u.ID != listing.SellerID {
			recipients = append(recipients, u)
		}
	}
	if len(recipients) > 0 {
		e.logReport(e.dispatcher.DispatchUsers(ctx, notification.NewListing(listing), recipients))
	}
	return next, nil
}

func (e *Engine) scheduleWelcome(ctx context.Context, user *db.User) error {
	if e.deferrer == nil {
		return e.SendWelcome(ctx, user.ID)
	}
	if err := e.deferrer.DeferWelcome(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to schedule welcome for %s: %w", user.ID, err)
	}
	return nil
}

// SendWelcome greets a new user. The user is re-read so a token registered
// after sign-up is picked up.
func (e *Engine) SendWelcome(ctx context.Context, userID string) error {
	user, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		slog.Info("user not found, skipping welcome", "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	e.logReport(e.dispatcher.DispatchUsers(ctx, notification.Welcome(user), []db.User{*user}))
	return nil
}

func (e *Engine) displayName(ctx context.Context, userID string) string {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			slog.Warn("failed to read sender profile", "user_id", userID, "error", err)
		}
		return ""
	}
	return user.DisplayName
}

func (e *Engine) optionalListing(ctx context.Context, listingID string) (*db.Listing, error) {
	if listingID == "" {
		return nil, nil
	}
	listing, err := e.store.GetListing(ctx, listingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", listingID, err)
	}
	return listing, nil
}

func (e *Engine) logReport(r notification.Report) {
	if len(r.Outcomes) == 0 {
		return
	}
	slog.Info("dispatch finished",
		"event", r.Event,
		"channel", r.Channel,
		"targets", len(r.Outcomes),
		"delivered", r.Delivered(),
		"failed", r.Failed(),
	)
}
