package notification

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/eligibility"
)

func corolla() *db.Listing {
	return &db.Listing{ID: "l1", SellerID: "seller", Brand: "Toyota", Model: "Corolla", Year: 2018, Price: 150000}
}

func TestIsChannelEnabled(t *testing.T) {
	assert.True(t, IsChannelEnabled(&db.User{}, ChannelMessages))
	assert.True(t, IsChannelEnabled(&db.User{NotificationSettings: map[string]bool{"listings": false}}, ChannelMessages))
	assert.True(t, IsChannelEnabled(&db.User{NotificationSettings: map[string]bool{"messages": true}}, ChannelMessages))
	assert.False(t, IsChannelEnabled(&db.User{NotificationSettings: map[string]bool{"messages": false}}, ChannelMessages))
	assert.True(t, IsChannelEnabled(nil, ChannelMessages))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, strings.Repeat("a", 100), Truncate(strings.Repeat("a", 100), 100))
	assert.Equal(t, strings.Repeat("a", 100)+"...", Truncate(strings.Repeat("a", 101), 100))

	accented := strings.Repeat("é", 120)
	got := Truncate(accented, 100)
	assert.Equal(t, 103, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "K 150,000", FormatPrice(corolla()))
	assert.Equal(t, "K 1,234,568", FormatPrice(&db.Listing{Price: 1234567.6}))
	assert.Equal(t, "Contact for price", FormatPrice(&db.Listing{Price: 150000, ContactForPrice: true}))
	assert.Equal(t, "Contact for price", FormatPrice(&db.Listing{}))
}

func TestNewMessage(t *testing.T) {
	session := &db.ChatSession{ID: "s1", ListingID: "l1"}
	long := strings.Repeat("x", 150)

	p := NewMessage("", session, &db.Message{SenderID: "buyer", Text: long})

	assert.Equal(t, "💬 Someone", p.Title)
	assert.Equal(t, strings.Repeat("x", 100)+"...", p.Body)
	assert.Equal(t, ChannelMessages, p.Channel())
	assert.Equal(t, "new_message", p.Event())
	assert.Equal(t, "s1", p.Data["chatSessionId"])
	assert.Equal(t, "buyer", p.Data["senderId"])
	assert.Equal(t, "l1", p.Data["listingId"])
	assert.Equal(t, ClickAction, p.Data[DataKeyClickAction])
}

func TestFirstBuyerMessage(t *testing.T) {
	session := &db.ChatSession{ID: "s1", ListingID: "l1"}

	p := FirstBuyerMessage("", corolla(), session, &db.Message{SenderID: "buyer", Text: strings.Repeat("q", 90)})
	assert.Equal(t, ChannelMessages, p.Channel())
	assert.Equal(t, "first_buyer_message", p.Event())
	assert.True(t, strings.HasPrefix(p.Body, "A buyer is interested in your Toyota Corolla: \""))
	assert.Contains(t, p.Body, strings.Repeat("q", 20))
	assert.True(t, strings.HasSuffix(p.Body, strings.Repeat("q", 80)+"...\""))

	short := FirstBuyerMessage("Ann", nil, session, &db.Message{Text: "Is it still available?"})
	assert.Equal(t, "Ann is interested in your listing: \"Is it still available?\"", short.Body)
}

func TestFirstBuyerMessage_ExcerptIs80(t *testing.T) {
	p := FirstBuyerMessage("B", nil, &db.ChatSession{}, &db.Message{Text: strings.Repeat("z", 85)})
	assert.Equal(t, "B is interested in your listing: \""+strings.Repeat("z", 80)+"...\"", p.Body)
}

func TestListingStatusChanged(t *testing.T) {
	l := corolla()

	p, ok := ListingStatusChanged(eligibility.TransitionApproved, l)
	assert.True(t, ok)
	assert.Equal(t, "Your Toyota Corolla (2018) is now live and visible to buyers!", p.Body)
	assert.Equal(t, "listing_approved", p.Event())
	assert.Equal(t, ChannelListings, p.Channel())

	p, ok = ListingStatusChanged(eligibility.TransitionRejected, l)
	assert.True(t, ok)
	assert.Equal(t, "Your Toyota Corolla listing was rejected. Please review our listing guidelines", p.Body)

	l.RejectionReason = "Photos are blurry."
	p, _ = ListingStatusChanged(eligibility.TransitionRejected, l)
	assert.Equal(t, "Your Toyota Corolla listing was rejected. Photos are blurry.", p.Body)

	p, ok = ListingStatusChanged(eligibility.TransitionRemoved, l)
	assert.True(t, ok)
	assert.Equal(t, "Your Toyota Corolla listing has been removed.", p.Body)
	assert.Equal(t, "l1", p.Data["listingId"])

	_, ok = ListingStatusChanged(eligibility.TransitionNone, l)
	assert.False(t, ok)
}

func TestViewMilestone(t *testing.T) {
	p := ViewMilestone(corolla(), 100)
	assert.Equal(t, "Your Toyota Corolla has reached 100 views!", p.Body)
	assert.Equal(t, "100", p.Data["views"])

	unnamed := ViewMilestone(&db.Listing{ID: "x"}, 50)
	assert.Equal(t, "Your listing has reached 50 views!", unnamed.Body)
}

func TestNewFavorite(t *testing.T) {
	p := NewFavorite(&db.User{ID: "fan"}, corolla())
	assert.Equal(t, "Someone saved your Toyota Corolla listing", p.Body)
	assert.Equal(t, ChannelFavorites, p.Channel())
	assert.Equal(t, "fan", p.Data["userId"])
	assert.Equal(t, "l1", p.Data["listingId"])
}

func TestNewListing(t *testing.T) {
	p := NewListing(corolla())
	assert.Equal(t, "Toyota Corolla (2018) · K 150,000", p.Body)
	assert.Equal(t, ChannelNewListings, p.Channel())

	l := corolla()
	l.ContactForPrice = true
	assert.Equal(t, "Toyota Corolla (2018) · Contact for price", NewListing(l).Body)
}

func TestWelcome(t *testing.T) {
	assert.Equal(t, "Hi there! Start browsing cars or post your first listing.", Welcome(&db.User{}).Body)
	assert.Equal(t, "Hi Ann! Start browsing cars or post your first listing.", Welcome(&db.User{DisplayName: "Ann"}).Body)
	assert.Equal(t, ChannelWelcome, Welcome(&db.User{}).Channel())
}

func TestPremiumExpiry(t *testing.T) {
	assert.Equal(t, "Your Toyota Corolla premium listing expires in 1 day. Renew now to stay featured!", PremiumExpiry(corolla(), 1).Body)

	p := PremiumExpiry(corolla(), 3)
	assert.Equal(t, "Your Toyota Corolla premium listing expires in 3 days. Renew now to stay featured!", p.Body)
	assert.Equal(t, "3", p.Data["daysLeft"])
	assert.Equal(t, ChannelPremium, p.Channel())
}

func TestDailyDigest(t *testing.T) {
	listings := []db.Listing{
		{ID: "a", Brand: "Toyota", Model: "Corolla", Year: 2018},
		{ID: "b", Brand: "Honda", Model: "Fit"},
		{ID: "c", Title: "Mazda Demio"},
		{ID: "d", Brand: "Nissan"},
		{ID: "e", Brand: "Subaru"},
	}

	p := DailyDigest(listings)
	assert.Equal(t, "🚗 5 new listings today", p.Title)
	assert.Equal(t, "Toyota Corolla (2018), Honda Fit, Mazda Demio and 2 more", p.Body)
	assert.Equal(t, "5", p.Data["count"])
	assert.Equal(t, "a,b,c", p.Data["listingIds"])
	assert.Equal(t, ChannelDailyDigest, p.Channel())

	one := DailyDigest(listings[:1])
	assert.Equal(t, "🚗 1 new listing today", one.Title)
	assert.Equal(t, "Toyota Corolla (2018)", one.Body)
}
