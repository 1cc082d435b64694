package models

import (
	"time"

	"gorm.io/gorm"
)

// Advertisement placements
const (
	AdPlacementBanner  = "banner"
	AdPlacementInline  = "inline"
	AdPlacementResults = "results"
)

// Advertisement is a served ad with an active window and engagement counters
type Advertisement struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title     string `gorm:"not null" json:"title"`
	Body      string `gorm:"type:text" json:"body"`
	ImageURL  string `json:"image_url"`
	TargetURL string `gorm:"not null" json:"target_url"`
	Placement string `gorm:"default:banner" json:"placement"`

	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Active   bool       `gorm:"default:true" json:"active"`

	ImpressionCount int `gorm:"default:0" json:"impression_count"`
	ClickCount      int `gorm:"default:0" json:"click_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsLive reports whether the ad should be served right now
func (a *Advertisement) IsLive(now time.Time) bool {
	if !a.Active {
		return false
	}
	if now.Before(a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && now.After(*a.EndsAt) {
		return false
	}
	return true
}

// AffiliateClick logs an outbound link click for monetization reporting
type AffiliateClick struct {
	ID         string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID     *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ProductID  *string `gorm:"type:uuid;index" json:"product_id,omitempty"`
	RetailerID *string `gorm:"type:uuid;index" json:"retailer_id,omitempty"`

	TargetURL string `gorm:"not null" json:"target_url"`

	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionPayment is a recorded payment row - there is no gateway
// integration, tiers are toggled administratively
type SubscriptionPayment struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Tier        string    `gorm:"not null" json:"tier"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"default:USD" json:"currency"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	CreatedAt time.Time `json:"created_at"`
}

// RevenueMetric is a daily rollup of monetization activity, upserted by day
type RevenueMetric struct {
	ID   string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Date time.Time `gorm:"uniqueIndex;not null" json:"date"`

	AdImpressions            int   `gorm:"default:0" json:"ad_impressions"`
	AdClicks                 int   `gorm:"default:0" json:"ad_clicks"`
	AffiliateClicks          int   `gorm:"default:0" json:"affiliate_clicks"`
	SubscriptionRevenueCents int64 `gorm:"default:0" json:"subscription_revenue_cents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Advertisement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	if a.StartsAt.IsZero() {
		a.StartsAt = time.Now().UTC()
	}
	return nil
}

func (c *AffiliateClick) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (p *SubscriptionPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (m *RevenueMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
