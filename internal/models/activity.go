package models

import (
	"time"

	"gorm.io/gorm"
)

// Scan methods - camera preview with manual barcode fallback
const (
	ScanMethodCamera = "camera"
	ScanMethodManual = "manual"
)

// ScanHistory records one barcode scan by a user
type ScanHistory struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string  `gorm:"not null;index" json:"user_id"`
	User      User    `gorm:"foreignKey:UserID" json:"-"`
	ProductID string  `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Barcode    string `gorm:"not null" json:"barcode"`
	ScanMethod string `gorm:"default:manual" json:"scan_method"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the original table naming
func (ScanHistory) TableName() string {
	return "scan_history"
}

// Favorite marks a product a user wants to keep an eye on
type Favorite struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string  `gorm:"not null;index" json:"user_id"`
	User      User    `gorm:"foreignKey:UserID" json:"-"`
	ProductID string  `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ShoppingListItem is one line on a user's shopping list. Items may reference
// a known product or be free text.
type ShoppingListItem struct {
	ID        string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string   `gorm:"not null;index" json:"user_id"`
	User      User     `gorm:"foreignKey:UserID" json:"-"`
	ProductID *string  `gorm:"type:uuid;index" json:"product_id,omitempty"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Name      string `gorm:"not null" json:"name"`
	Quantity  int    `gorm:"default:1" json:"quantity"`
	Completed bool   `gorm:"default:false" json:"completed"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Chat message roles
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn in a user's conversation with the shopping assistant
type ChatMessage struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Role    string `gorm:"not null" json:"role"` // "user" or "assistant"
	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *ScanHistory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (i *ShoppingListItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = generateUUID()
	}
	if i.Quantity <= 0 {
		i.Quantity = 1
	}
	return nil
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
