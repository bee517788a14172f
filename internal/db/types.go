package db

import (
	"fmt"
	"strings"
	"time"
)

type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusActive   ListingStatus = "active"
	StatusRejected ListingStatus = "rejected"
	StatusDeleted  ListingStatus = "deleted"
)

type User struct {
	ID                   string          `firestore:"-" json:"id"`
	DisplayName          string          `firestore:"displayName" json:"displayName"`
	FCMToken             string          `firestore:"fcmToken" json:"fcmToken,omitempty"`
	NotificationSettings map[string]bool `firestore:"notificationSettings" json:"notificationSettings,omitempty"`
	FavoriteListings     []string        `firestore:"favoriteListings" json:"favoriteListings,omitempty"`
}

// HasToken reports whether the user can currently receive a push.
func (u *User) HasToken() bool {
	return strings.TrimSpace(u.FCMToken) != ""
}

type Listing struct {
	ID               string        `firestore:"-" json:"id"`
	SellerID         string        `firestore:"sellerId" json:"sellerId" validate:"required"`
	Status           ListingStatus `firestore:"status" json:"status"`
	Brand            string        `firestore:"brand" json:"brand,omitempty"`
	Model            string        `firestore:"model" json:"model,omitempty"`
	Year             int           `firestore:"year" json:"year,omitempty"`
	Title            string        `firestore:"title" json:"title,omitempty"`
	Price            float64       `firestore:"price" json:"price,omitempty"`
	ContactForPrice  bool          `firestore:"contactForPrice" json:"contactForPrice,omitempty"`
	IsPremium        bool          `firestore:"isPremium" json:"isPremium,omitempty"`
	PremiumExpiresAt *time.Time    `firestore:"premiumExpiresAt" json:"premiumExpiresAt,omitempty"`
	ViewCount        int64         `firestore:"viewCount" json:"viewCount,omitempty"`
	CreatedAt        time.Time     `firestore:"createdAt" json:"createdAt"`
	RejectionReason  string        `firestore:"rejectionReason" json:"rejectionReason,omitempty"`
}

// Name is the short human label of a listing, e.g. "Toyota Corolla".
func (l *Listing) Name() string {
	name := strings.TrimSpace(strings.TrimSpace(l.Brand) + " " + strings.TrimSpace(l.Model))
	if name != "" {
		return name
	}
	if t := strings.TrimSpace(l.Title); t != "" {
		return t
	}
	return ""
}

// NameWithYear is Name with the model year appended when the listing has one.
func (l *Listing) NameWithYear() string {
	name := l.Name()
	if name == "" || l.Year == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, l.Year)
}

type ChatSession struct {
	ID        string `firestore:"-" json:"id"`
	BuyerID   string `firestore:"buyerId" json:"buyerId"`
	SellerID  string `firestore:"sellerId" json:"sellerId"`
	ListingID string `firestore:"listingId" json:"listingId,omitempty"`
}

type Message struct {
	ID        string    `firestore:"-" json:"id"`
	SessionID string    `firestore:"-" json:"sessionId" validate:"required"`
	SenderID  string    `firestore:"senderId" json:"senderId" validate:"required"`
	Text      string    `firestore:"text" json:"text" validate:"required"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
}
