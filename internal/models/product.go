package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Availability states for a Price row
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityUnknown    = "unknown"
)

// Product represents a scanned or manually added product identified by barcode
type Product struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Barcode string `gorm:"uniqueIndex;not null" json:"barcode"`

	Name        string `gorm:"not null" json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `gorm:"type:text" json:"description"`

	// Image from the external feed, plus our own S3/CDN mirror so clients
	// never hotlink third-party feeds
	ImageURL         string `json:"image_url"`
	MirroredImageURL string `json:"mirrored_image_url,omitempty"`

	// Eco fields - stored integers, entered manually or from external feeds
	EcoScore   *int   `json:"eco_score,omitempty"` // 0-100
	EcoDetails string `gorm:"type:text" json:"eco_details,omitempty"`

	// Which lookup source supplied the product data ("openfoodfacts", "upcitemdb", ...)
	DataSource string `json:"data_source"`

	Prices []Price `gorm:"foreignKey:ProductID" json:"prices,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Retailer represents a merchant that prices are attributed to
type Retailer struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name    string `gorm:"uniqueIndex;not null" json:"name"`
	Website string `json:"website"`
	LogoURL string `json:"logo_url"`

	// Appended to outbound product URLs when set
	AffiliateTag string `json:"affiliate_tag,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price represents one retailer's offer for a product.
// Price values travel as strings end to end - external feeds send them that
// way and the client renders them verbatim. Numeric comparison happens only
// in the pricing aggregator.
type Price struct {
	ID         string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProductID  string   `gorm:"not null;index" json:"product_id"`
	Product    Product  `gorm:"foreignKey:ProductID" json:"-"`
	RetailerID string   `gorm:"not null;index" json:"retailer_id"`
	Retailer   Retailer `gorm:"foreignKey:RetailerID" json:"retailer,omitempty"`

	Price        string `gorm:"not null" json:"price"`
	Currency     string `gorm:"default:USD" json:"currency"`
	Availability string `gorm:"default:unknown" json:"availability"`
	ProductURL   string `json:"product_url"`

	// When the source reported this offer
	FetchedAt time.Time `json:"fetched_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (r *Retailer) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (p *Price) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = time.Now().UTC()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
