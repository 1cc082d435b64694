package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		{"hello", IntentGreeting},
		{"Hey there", IntentGreeting},
		{"how much is oat milk?", IntentPrice},
		{"cheapest peanut butter", IntentPrice},
		{"is this product eco friendly?", IntentEcoScore},
		{"what's the carbon footprint", IntentEcoScore},
		{"what's on my list", IntentShoppingList},
		{"show my shopping list", IntentShoppingList},
		{"how many products have I scanned", IntentScanStats},
		{"show my scan history", IntentScanStats},
		{"", IntentHelp},
		{"tell me a joke", IntentHelp},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.message), "message: %q", tt.message)
	}
}

func TestExtractSubject(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"how much does organic peanut butter cost?", "organic peanut butter"},
		{"what's the price of oat milk", "what's oat milk"},
		{"cheapest cola", "cola"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractSubject(tt.message))
	}
}

type AssistantSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
}

func (s *AssistantSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(s.T(), err)

	statements := []string{
		`CREATE TABLE products (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME,
			barcode TEXT,
			name TEXT,
			brand TEXT,
			category TEXT,
			description TEXT,
			image_url TEXT,
			mirrored_image_url TEXT,
			eco_score INTEGER,
			eco_details TEXT,
			data_source TEXT
		)`,
		`CREATE TABLE retailers (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME,
			name TEXT,
			website TEXT,
			logo_url TEXT,
			affiliate_tag TEXT
		)`,
		`CREATE TABLE prices (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME,
			product_id TEXT,
			retailer_id TEXT,
			price TEXT,
			currency TEXT,
			availability TEXT,
			product_url TEXT,
			fetched_at DATETIME
		)`,
		`CREATE TABLE scan_history (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			user_id TEXT,
			product_id TEXT,
			barcode TEXT,
			scan_method TEXT
		)`,
		`CREATE TABLE shopping_list_items (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME,
			user_id TEXT,
			product_id TEXT,
			name TEXT,
			quantity INTEGER,
			completed BOOLEAN
		)`,
	}
	for _, stmt := range statements {
		require.NoError(s.T(), db.Exec(stmt).Error)
	}

	s.db = db
	s.service = NewService(db)
}

func (s *AssistantSuite) seedProduct(name string, ecoScore *int, prices map[string]string) {
	product := models.Product{Barcode: "0123456789012", Name: name, EcoScore: ecoScore}
	require.NoError(s.T(), s.db.Create(&product).Error)
	for retailerName, price := range prices {
		retailer := models.Retailer{Name: retailerName}
		require.NoError(s.T(), s.db.Create(&retailer).Error)
		require.NoError(s.T(), s.db.Create(&models.Price{
			ProductID:  product.ID,
			RetailerID: retailer.ID,
			Price:      price,
			Currency:   "USD",
		}).Error)
	}
}

func (s *AssistantSuite) TestPriceQuestionFindsBestPrice() {
	s.seedProduct("Organic Oat Milk", nil, map[string]string{
		"Walmart": "4.99",
		"Target":  "3.49",
	})

	reply, err := s.service.Reply("user-1", "how much is oat milk?")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "3.49")
	assert.Contains(s.T(), reply, "Target")
}

func (s *AssistantSuite) TestPriceQuestionUnknownProduct() {
	reply, err := s.service.Reply("user-1", "how much is dragon fruit jam?")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "couldn't find")
}

func (s *AssistantSuite) TestEcoScoreQuestion() {
	score := 85
	s.seedProduct("Bamboo Toothbrush", &score, nil)

	reply, err := s.service.Reply("user-1", "is the bamboo toothbrush eco friendly?")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "85")
	assert.Contains(s.T(), reply, "excellent")
}

func (s *AssistantSuite) TestEcoScoreMissing() {
	s.seedProduct("Mystery Snack", nil, nil)

	reply, err := s.service.Reply("user-1", "how sustainable is the mystery snack")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "No eco score")
}

func (s *AssistantSuite) TestShoppingListSummary() {
	require.NoError(s.T(), s.db.Create(&models.ShoppingListItem{
		UserID: "user-1", Name: "Eggs", Quantity: 1,
	}).Error)
	require.NoError(s.T(), s.db.Create(&models.ShoppingListItem{
		UserID: "user-1", Name: "Bread", Quantity: 2, Completed: true,
	}).Error)

	reply, err := s.service.Reply("user-1", "what's on my shopping list?")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "1 item(s)")
}

func (s *AssistantSuite) TestScanStats() {
	for i := 0; i < 4; i++ {
		require.NoError(s.T(), s.db.Create(&models.ScanHistory{
			UserID: "user-1", ProductID: "p-1", Barcode: "0123456789012",
		}).Error)
	}

	reply, err := s.service.Reply("user-1", "how many things have I scanned?")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "4 product(s)")

	reply, err = s.service.Reply("user-9", "show my scan history")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "haven't scanned")
}

func (s *AssistantSuite) TestShoppingListEmpty() {
	reply, err := s.service.Reply("user-2", "show my list to buy")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), reply, "empty")
}

func TestAssistantSuite(t *testing.T) {
	suite.Run(t, new(AssistantSuite))
}
