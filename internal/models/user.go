package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription tiers
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// User represents a ShopSmartly account with unified auth
type User struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`

	// Native auth fields
	PasswordHash *string `gorm:"type:text" json:"-"`

	// OAuth provider IDs (nullable - users can have native accounts)
	GoogleID *string `gorm:"uniqueIndex" json:"-"`
	AppleID  *string `gorm:"uniqueIndex" json:"-"`

	AvatarURL string `json:"avatar_url"`

	// Subscription state - payments are recorded rows, no gateway integration
	SubscriptionTier      string     `gorm:"default:free" json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`

	LastActiveAt *time.Time `json:"last_active_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsPremium reports whether the user currently has an active premium subscription
func (u *User) IsPremium() bool {
	if u.SubscriptionTier != TierPremium {
		return false
	}
	if u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = TierFree
	}
	return nil
}
