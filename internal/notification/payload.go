package notification

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/eligibility"
)

const (
	MaxBodyLength    = 100
	MaxExcerptLength = 80
	ellipsis         = "..."

	senderPlaceholder  = "Someone"
	buyerPlaceholder   = "A buyer"
	welcomePlaceholder = "there"

	defaultRejectionReason = "Please review our listing guidelines"
	contactForPrice        = "Contact for price"
)

var pricePrinter = message.NewPrinter(language.English)

// Truncate shortens s to max runes and marks the cut with an ellipsis.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}

// FormatPrice renders a listing price in kwacha with thousands grouping.
func FormatPrice(listing *db.Listing) string {
	if listing.ContactForPrice || listing.Price <= 0 {
		return contactForPrice
	}
	return pricePrinter.Sprintf("K %d", int64(math.Round(listing.Price)))
}

func nameOr(name, placeholder string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return placeholder
}

// listingPhrase is "Toyota Corolla listing", or just "listing" when the
// listing carries no name.
func listingPhrase(listing *db.Listing, noun string) string {
	if name := listing.Name(); name != "" {
		return name + " " + noun
	}
	return noun
}

func listingSubject(listing *db.Listing, withYear bool) string {
	name := listing.Name()
	if withYear {
		name = listing.NameWithYear()
	}
	if name == "" {
		return "listing"
	}
	return name
}

func newPayload(channel Channel, event, title, body string, data map[string]string) Payload {
	d := make(map[string]string, len(data)+3)
	for k, v := range data {
		d[k] = v
	}
	d[DataKeyType] = string(channel)
	d[DataKeyEvent] = event
	d[DataKeyClickAction] = ClickAction

	return Payload{
		Title: title,
		Body:  Truncate(body, MaxBodyLength),
		Data:  d,
	}
}

func NewMessage(senderName string, session *db.ChatSession, msg *db.Message) Payload {
	return newPayload(ChannelMessages, "new_message",
		fmt.Sprintf("💬 %s", nameOr(senderName, senderPlaceholder)),
		msg.Text,
		map[string]string{
			"chatSessionId": session.ID,
			"senderId":      msg.SenderID,
			"listingId":     session.ListingID,
		})
}

// FirstBuyerMessage tells a seller that a buyer opened a conversation. The
// listing may be nil when the session is not tied to one.
func FirstBuyerMessage(buyerName string, listing *db.Listing, session *db.ChatSession, msg *db.Message) Payload {
	about := "your listing"
	if listing != nil && listing.Name() != "" {
		about = "your " + listing.Name()
	}

	body := fmt.Sprintf("%s is interested in %s: \"%s\"",
		nameOr(buyerName, buyerPlaceholder), about, Truncate(strings.TrimSpace(msg.Text), MaxExcerptLength))

	p := newPayload(ChannelMessages, "first_buyer_message", "🛒 New buyer inquiry", body, map[string]string{
		"chatSessionId": session.ID,
		"senderId":      msg.SenderID,
		"listingId":     session.ListingID,
	})
	// The excerpt carries its own bound.
	p.Body = body
	return p
}

// ListingStatusChanged builds the payload for a moderation transition. It
// returns false for TransitionNone.
func ListingStatusChanged(transition eligibility.Transition, listing *db.Listing) (Payload, bool) {
	data := map[string]string{"listingId": listing.ID}

	switch transition {
	case eligibility.TransitionApproved:
		return newPayload(ChannelListings, "listing_approved",
			"✅ Listing Approved!",
			fmt.Sprintf("Your %s is now live and visible to buyers!", listingSubject(listing, true)),
			data), true
	case eligibility.TransitionRejected:
		reason := strings.TrimSpace(listing.RejectionReason)
		if reason == "" {
			reason = defaultRejectionReason
		}
		return newPayload(ChannelListings, "listing_rejected",
			"❌ Listing Rejected",
			fmt.Sprintf("Your %s was rejected. %s", listingPhrase(listing, "listing"), reason),
			data), true
	case eligibility.TransitionRemoved:
		return newPayload(ChannelListings, "listing_removed",
			"🚫 Listing Removed",
			fmt.Sprintf("Your %s has been removed.", listingPhrase(listing, "listing")),
			data), true
	default:
		return Payload{}, false
	}
}

func ViewMilestone(listing *db.Listing, milestone int64) Payload {
	return newPayload(ChannelListings, "view_milestone",
		"🔥 Your Listing is Popular!",
		fmt.Sprintf("Your %s has reached %d views!", listingSubject(listing, false), milestone),
		map[string]string{
			"listingId": listing.ID,
			"views":     strconv.FormatInt(milestone, 10),
		})
}

func NewFavorite(actor *db.User, listing *db.Listing) Payload {
	return newPayload(ChannelFavorites, "new_favorite",
		"❤️ New Favorite!",
		fmt.Sprintf("%s saved your %s", nameOr(actor.DisplayName, senderPlaceholder), listingPhrase(listing, "listing")),
		map[string]string{
			"listingId": listing.ID,
			"userId":    actor.ID,
		})
}

func NewListing(listing *db.Listing) Payload {
	return newPayload(ChannelNewListings, "new_listing",
		"🚗 New on CazLync",
		fmt.Sprintf("%s · %s", listingSubject(listing, true), FormatPrice(listing)),
		map[string]string{
			"listingId": listing.ID,
			"sellerId":  listing.SellerID,
		})
}

func Welcome(user *db.User) Payload {
	return newPayload(ChannelWelcome, "welcome",
		"🎉 Welcome to CazLync!",
		fmt.Sprintf("Hi %s! Start browsing cars or post your first listing.", nameOr(user.DisplayName, welcomePlaceholder)),
		nil)
}

func PremiumExpiry(listing *db.Listing, daysLeft int) Payload {
	unit := "day"
	if daysLeft != 1 {
		unit = "days"
	}
	return newPayload(ChannelPremium, "premium_expiry",
		"⭐ Premium Listing Expiring Soon",
		fmt.Sprintf("Your %s expires in %d %s. Renew now to stay featured!", listingPhrase(listing, "premium listing"), daysLeft, unit),
		map[string]string{
			"listingId": listing.ID,
			"daysLeft":  strconv.Itoa(daysLeft),
		})
}

// DailyDigest summarises the first few listings and counts the rest. The
// caller must not pass an empty slice.
func DailyDigest(listings []db.Listing) Payload {
	sample := listings
	if len(sample) > eligibility.DigestSampleSize {
		sample = sample[:eligibility.DigestSampleSize]
	}

	names := make([]string, 0, len(sample))
	ids := make([]string, 0, len(sample))
	for i := range sample {
		names = append(names, listingSubject(&sample[i], true))
		ids = append(ids, sample[i].ID)
	}

	body := strings.Join(names, ", ")
	if rest := len(listings) - len(sample); rest > 0 {
		body = fmt.Sprintf("%s and %d more", body, rest)
	}

	title := fmt.Sprintf("🚗 %d new listings today", len(listings))
	if len(listings) == 1 {
		title = "🚗 1 new listing today"
	}

	return newPayload(ChannelDailyDigest, "daily_digest", title, body, map[string]string{
		"count":      strconv.Itoa(len(listings)),
		"listingIds": strings.Join(ids, ","),
	})
}
