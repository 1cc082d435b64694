package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/magickw/ShopSmartly-sub000/internal/assistant"
	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/lookup"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/pricing"
	"github.com/magickw/ShopSmartly-sub000/internal/subscription"
)

// stubLookupSource is a scripted lookup.Source for handler tests
type stubLookupSource struct {
	infos map[string]*lookup.ProductInfo
}

func (s *stubLookupSource) Name() string { return "stub" }

func (s *stubLookupSource) Lookup(ctx context.Context, barcode string) (*lookup.ProductInfo, error) {
	if info, ok := s.infos[barcode]; ok {
		return info, nil
	}
	return nil, lookup.ErrNotFound
}

// stubPriceSource is a scripted pricing.Source for handler tests
type stubPriceSource struct {
	quotes map[string][]pricing.Quote
}

func (s *stubPriceSource) Name() string { return "stub" }

func (s *stubPriceSource) Quotes(ctx context.Context, barcode string) ([]pricing.Quote, error) {
	return s.quotes[barcode], nil
}

// HandlersTestSuite exercises the HTTP layer against sqlite
type HandlersTestSuite struct {
	suite.Suite
	db          *gorm.DB
	router      *gin.Engine
	handlers    *Handlers
	lookupStub  *stubLookupSource
	pricingStub *stubPriceSource
	testUser    *models.User
}

var testTables = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME,
		email TEXT, username TEXT, display_name TEXT, password_hash TEXT,
		google_id TEXT, apple_id TEXT, avatar_url TEXT,
		subscription_tier TEXT, subscription_expires_at DATETIME, last_active_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME,
		barcode TEXT, name TEXT, brand TEXT, category TEXT, description TEXT,
		image_url TEXT, mirrored_image_url TEXT, eco_score INTEGER, eco_details TEXT, data_source TEXT
	)`,
	`CREATE TABLE retailers (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME,
		name TEXT, website TEXT, logo_url TEXT, affiliate_tag TEXT
	)`,
	`CREATE TABLE prices (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME,
		product_id TEXT, retailer_id TEXT, price TEXT, currency TEXT,
		availability TEXT, product_url TEXT, fetched_at DATETIME
	)`,
	`CREATE TABLE scan_history (
		id TEXT PRIMARY KEY, created_at DATETIME,
		user_id TEXT, product_id TEXT, barcode TEXT, scan_method TEXT
	)`,
	`CREATE TABLE favorites (
		id TEXT PRIMARY KEY, created_at DATETIME, deleted_at DATETIME,
		user_id TEXT, product_id TEXT
	)`,
	`CREATE TABLE shopping_list_items (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME,
		user_id TEXT, product_id TEXT, name TEXT, quantity INTEGER, completed BOOLEAN
	)`,
	`CREATE TABLE chat_messages (
		id TEXT PRIMARY KEY, created_at DATETIME,
		user_id TEXT, role TEXT, content TEXT
	)`,
	`CREATE TABLE advertisements (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME,
		title TEXT, body TEXT, image_url TEXT, target_url TEXT, placement TEXT,
		starts_at DATETIME, ends_at DATETIME, active BOOLEAN,
		impression_count INTEGER DEFAULT 0, click_count INTEGER DEFAULT 0
	)`,
	`CREATE TABLE affiliate_clicks (
		id TEXT PRIMARY KEY, created_at DATETIME,
		user_id TEXT, product_id TEXT, retailer_id TEXT, target_url TEXT
	)`,
	`CREATE TABLE subscription_payments (
		id TEXT PRIMARY KEY, created_at DATETIME,
		user_id TEXT, tier TEXT, amount_cents INTEGER, currency TEXT,
		period_start DATETIME, period_end DATETIME
	)`,
	`CREATE TABLE revenue_metrics (
		id TEXT PRIMARY KEY, created_at DATETIME, updated_at DATETIME,
		date DATETIME, ad_impressions INTEGER DEFAULT 0, ad_clicks INTEGER DEFAULT 0,
		affiliate_clicks INTEGER DEFAULT 0, subscription_revenue_cents INTEGER DEFAULT 0
	)`,
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)
	for _, stmt := range testTables {
		require.NoError(suite.T(), db.Exec(stmt).Error)
	}
	database.DB = db
	suite.db = db

	suite.lookupStub = &stubLookupSource{infos: map[string]*lookup.ProductInfo{}}
	suite.pricingStub = &stubPriceSource{quotes: map[string][]pricing.Quote{}}

	suite.handlers = NewHandlers(
		lookup.NewAggregator([]lookup.Source{suite.lookupStub}, nil),
		pricing.NewAggregator([]pricing.Source{suite.pricingStub}, nil),
		subscription.NewService(nil),
	)
	suite.handlers.SetAssistant(assistant.NewService(db))

	suite.testUser = &models.User{
		Email:            "shopper@example.com",
		Username:         "shopper",
		SubscriptionTier: models.TierFree,
	}
	require.NoError(suite.T(), db.Create(suite.testUser).Error)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.setupRoutes()
}

// setupRoutes mirrors the server's route table with a mock auth middleware
// that trusts the X-User-ID header
func (suite *HandlersTestSuite) setupRoutes() {
	authMiddleware := func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		var user models.User
		if err := suite.db.First(&user, "id = ?", userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Set("user", &user)
		c.Set("user_id", user.ID)
		c.Next()
	}

	h := suite.handlers
	api := suite.router.Group("/api/v1")

	products := api.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.GET("/:id/prices", h.GetProductPrices)
		products.GET("/barcode/:barcode", h.GetProductByBarcode)
		products.POST("", authMiddleware, h.CreateProduct)
		products.PATCH("/:id", authMiddleware, h.UpdateProduct)
		products.DELETE("/:id", authMiddleware, h.DeleteProduct)
	}

	authed := api.Group("")
	authed.Use(authMiddleware)
	{
		authed.POST("/scan", h.ScanBarcode)
		authed.GET("/favorites", h.GetFavorites)
		authed.POST("/favorites", h.AddFavorite)
		authed.DELETE("/favorites/:productId", h.RemoveFavorite)
		authed.GET("/shopping-list", h.GetShoppingList)
		authed.POST("/shopping-list", h.AddShoppingListItem)
		authed.DELETE("/shopping-list/completed", h.ClearCompletedItems)
		authed.PATCH("/shopping-list/:id", h.UpdateShoppingListItem)
		authed.DELETE("/shopping-list/:id", h.DeleteShoppingListItem)
		authed.GET("/history", h.GetScanHistory)
		authed.DELETE("/history", h.ClearScanHistory)
		authed.DELETE("/history/:id", h.DeleteScanHistoryEntry)
		authed.GET("/chat/messages", h.GetChatMessages)
		authed.POST("/chat/messages", h.PostChatMessage)
		authed.GET("/subscription", h.GetSubscriptionStatus)
		authed.POST("/subscription/upgrade", h.UpgradeSubscription)
		authed.GET("/subscription/payments", h.GetSubscriptionPayments)
		authed.GET("/analytics/eco", h.GetEcoSummary)
		authed.GET("/analytics/revenue", h.GetRevenueMetrics)
	}

	// mirrors OptionalAuthMiddleware: attribution when the header is
	// present, anonymous otherwise
	optionalAuth := func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			var user models.User
			if err := suite.db.First(&user, "id = ?", userID).Error; err == nil {
				c.Set("user", &user)
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	}

	api.GET("/ads", h.GetActiveAds)
	api.POST("/ads/:id/impression", h.RecordAdImpression)
	api.POST("/ads/:id/click", h.RecordAdClick)
	api.GET("/affiliate/redirect", optionalAuth, h.AffiliateRedirect)
}

func (suite *HandlersTestSuite) request(method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-User-ID", suite.testUser.ID)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (suite *HandlersTestSuite) TestScanCreatesProductPricesAndHistory() {
	t := suite.T()
	barcode := "0123456789012"
	eco := 72
	suite.lookupStub.infos[barcode] = &lookup.ProductInfo{
		Barcode: barcode, Name: "Oat Milk", Brand: "Grove", Category: "Dairy",
		ImageURL: "https://img.example/oat.jpg", EcoScore: &eco, Source: "stub",
	}
	suite.pricingStub.quotes[barcode] = []pricing.Quote{
		{Retailer: "Walmart", Price: "4.99", Currency: "USD", Availability: "in_stock", Source: "stub"},
		{Retailer: "Target", Price: "3.49", Currency: "USD", Availability: "in_stock", Source: "stub"},
	}

	w := suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": barcode, "scan_method": "camera"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := suite.decode(w)
	product := resp["product"].(map[string]interface{})
	assert.Equal(t, "Oat Milk", product["name"])
	assert.Equal(t, barcode, product["barcode"])

	// cheapest quote first
	prices := product["prices"].([]interface{})
	require.Len(t, prices, 2)
	first := prices[0].(map[string]interface{})
	assert.Equal(t, "3.49", first["price"])

	var scanCount int64
	suite.db.Model(&models.ScanHistory{}).Where("user_id = ?", suite.testUser.ID).Count(&scanCount)
	assert.EqualValues(t, 1, scanCount)

	var stored models.Product
	require.NoError(t, suite.db.First(&stored, "barcode = ?", barcode).Error)
	require.NotNil(t, stored.EcoScore)
	assert.Equal(t, 72, *stored.EcoScore)
	assert.Equal(t, "stub", stored.DataSource)
}

func (suite *HandlersTestSuite) TestScanSecondTimeReusesCatalogRow() {
	t := suite.T()
	barcode := "0123456789012"
	suite.lookupStub.infos[barcode] = &lookup.ProductInfo{Barcode: barcode, Name: "Oat Milk", Source: "stub"}

	w := suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": barcode}, true)
	require.Equal(t, http.StatusOK, w.Code)

	// external source forgets the product; catalog row should still serve
	delete(suite.lookupStub.infos, barcode)
	w = suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": barcode}, true)
	require.Equal(t, http.StatusOK, w.Code)

	var productCount int64
	suite.db.Model(&models.Product{}).Count(&productCount)
	assert.EqualValues(t, 1, productCount)

	var scanCount int64
	suite.db.Model(&models.ScanHistory{}).Count(&scanCount)
	assert.EqualValues(t, 2, scanCount)
}

func (suite *HandlersTestSuite) TestScanUnknownBarcode() {
	w := suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": "0000000000000"}, true)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestScanInvalidBarcode() {
	w := suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": "abc"}, true)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestScanRequiresAuth() {
	w := suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": "0123456789012"}, false)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) seedProduct(barcode, name string) models.Product {
	product := models.Product{Barcode: barcode, Name: name, DataSource: "manual"}
	require.NoError(suite.T(), suite.db.Create(&product).Error)
	return product
}

func (suite *HandlersTestSuite) TestFavoritesFlow() {
	t := suite.T()
	product := suite.seedProduct("0123456789012", "Trail Mix")

	w := suite.request(http.MethodPost, "/api/v1/favorites", gin.H{"product_id": product.ID}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	// adding again is idempotent
	w = suite.request(http.MethodPost, "/api/v1/favorites", gin.H{"product_id": product.ID}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/favorites", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	favorites := suite.decode(w)["favorites"].([]interface{})
	assert.Len(t, favorites, 1)

	w = suite.request(http.MethodDelete, "/api/v1/favorites/"+product.ID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(http.MethodDelete, "/api/v1/favorites/"+product.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestFavoriteUnknownProduct() {
	w := suite.request(http.MethodPost, "/api/v1/favorites", gin.H{"product_id": "missing"}, true)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestShoppingListFlow() {
	t := suite.T()

	w := suite.request(http.MethodPost, "/api/v1/shopping-list", gin.H{"name": "Eggs", "quantity": 2}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	item := suite.decode(w)["item"].(map[string]interface{})
	itemID := item["id"].(string)
	assert.EqualValues(t, 2, item["quantity"])

	// quantity defaults to 1
	w = suite.request(http.MethodPost, "/api/v1/shopping-list", gin.H{"name": "Bread"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	second := suite.decode(w)["item"].(map[string]interface{})
	assert.EqualValues(t, 1, second["quantity"])

	// free-text items need a name
	w = suite.request(http.MethodPost, "/api/v1/shopping-list", gin.H{"quantity": 3}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	completed := true
	w = suite.request(http.MethodPatch, "/api/v1/shopping-list/"+itemID, gin.H{"completed": completed}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(http.MethodDelete, "/api/v1/shopping-list/completed", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, suite.decode(w)["removed"])

	w = suite.request(http.MethodGet, "/api/v1/shopping-list", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	items := suite.decode(w)["items"].([]interface{})
	require.Len(t, items, 1)

	secondID := second["id"].(string)
	w = suite.request(http.MethodDelete, "/api/v1/shopping-list/"+secondID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestShoppingListRejectsZeroQuantity() {
	t := suite.T()
	w := suite.request(http.MethodPost, "/api/v1/shopping-list", gin.H{"name": "Milk"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	itemID := suite.decode(w)["item"].(map[string]interface{})["id"].(string)

	w = suite.request(http.MethodPatch, "/api/v1/shopping-list/"+itemID, gin.H{"quantity": 0}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestHistoryListAndClear() {
	t := suite.T()
	product := suite.seedProduct("0123456789012", "Cola")
	for i := 0; i < 3; i++ {
		require.NoError(t, suite.db.Create(&models.ScanHistory{
			UserID: suite.testUser.ID, ProductID: product.ID,
			Barcode: product.Barcode, ScanMethod: models.ScanMethodManual,
		}).Error)
	}

	w := suite.request(http.MethodGet, "/api/v1/history?limit=2", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	resp := suite.decode(w)
	assert.EqualValues(t, 3, resp["total"])
	assert.Len(t, resp["history"].([]interface{}), 2)

	w = suite.request(http.MethodDelete, "/api/v1/history", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, suite.decode(w)["removed"])
}

func (suite *HandlersTestSuite) TestChatFlow() {
	t := suite.T()
	product := suite.seedProduct("0123456789012", "Organic Peanut Butter")
	retailer := models.Retailer{Name: "Walmart"}
	require.NoError(t, suite.db.Create(&retailer).Error)
	require.NoError(t, suite.db.Create(&models.Price{
		ProductID: product.ID, RetailerID: retailer.ID, Price: "6.49", Currency: "USD",
	}).Error)

	w := suite.request(http.MethodPost, "/api/v1/chat/messages", gin.H{"content": "how much is peanut butter?"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	reply := suite.decode(w)["reply"].(map[string]interface{})
	assert.Equal(t, models.ChatRoleAssistant, reply["role"])
	assert.Contains(t, reply["content"].(string), "6.49")

	w = suite.request(http.MethodGet, "/api/v1/chat/messages", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	messages := suite.decode(w)["messages"].([]interface{})
	assert.Len(t, messages, 2)
}

func (suite *HandlersTestSuite) TestProductsCRUD() {
	t := suite.T()

	w := suite.request(http.MethodPost, "/api/v1/products", gin.H{
		"barcode": "4006381333931", "name": "Highlighter", "brand": "Stabilo",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	productID := suite.decode(w)["product"].(map[string]interface{})["id"].(string)

	// duplicate barcode
	w = suite.request(http.MethodPost, "/api/v1/products", gin.H{
		"barcode": "4006381333931", "name": "Other",
	}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", suite.decode(w)["code"])

	w = suite.request(http.MethodGet, "/api/v1/products/barcode/4006381333931", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(http.MethodPatch, "/api/v1/products/"+productID, gin.H{"eco_score": 44}, true)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.Product
	require.NoError(t, suite.db.First(&stored, "id = ?", productID).Error)
	require.NotNil(t, stored.EcoScore)
	assert.Equal(t, 44, *stored.EcoScore)

	w = suite.request(http.MethodPatch, "/api/v1/products/"+productID, gin.H{"eco_score": 150}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "eco_score", suite.decode(w)["field"])

	w = suite.request(http.MethodDelete, "/api/v1/products/"+productID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/products/"+productID, nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestProductPricesSortedWithUnparsableLast() {
	t := suite.T()
	product := suite.seedProduct("0123456789012", "Granola")
	for i, p := range []struct{ name, price string }{
		{"Mystery", "call for price"},
		{"Walmart", "4.99"},
		{"Target", "$3.79"},
	} {
		retailer := models.Retailer{Name: fmt.Sprintf("%s-%d", p.name, i)}
		require.NoError(t, suite.db.Create(&retailer).Error)
		require.NoError(t, suite.db.Create(&models.Price{
			ProductID: product.ID, RetailerID: retailer.ID, Price: p.price, Currency: "USD",
		}).Error)
	}

	w := suite.request(http.MethodGet, "/api/v1/products/"+product.ID+"/prices", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	resp := suite.decode(w)
	prices := resp["prices"].([]interface{})
	require.Len(t, prices, 3)
	assert.Equal(t, "$3.79", prices[0].(map[string]interface{})["price"])
	assert.Equal(t, "call for price", prices[2].(map[string]interface{})["price"])
	require.NotNil(t, resp["best"])
	assert.Equal(t, "$3.79", resp["best"].(map[string]interface{})["price"])
}

func (suite *HandlersTestSuite) TestAdsFlow() {
	t := suite.T()
	past := time.Now().Add(-48 * time.Hour)
	expired := past.Add(24 * time.Hour)
	live := models.Advertisement{
		Title: "Spring Sale", TargetURL: "https://deals.example/spring",
		Placement: models.AdPlacementBanner, StartsAt: past, Active: true,
	}
	dead := models.Advertisement{
		Title: "Old Promo", TargetURL: "https://deals.example/old",
		Placement: models.AdPlacementBanner, StartsAt: past, EndsAt: &expired, Active: true,
	}
	require.NoError(t, suite.db.Create(&live).Error)
	require.NoError(t, suite.db.Create(&dead).Error)

	w := suite.request(http.MethodGet, "/api/v1/ads", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	ads := suite.decode(w)["ads"].([]interface{})
	require.Len(t, ads, 1)
	assert.Equal(t, "Spring Sale", ads[0].(map[string]interface{})["title"])

	w = suite.request(http.MethodPost, "/api/v1/ads/"+live.ID+"/impression", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/ads/"+live.ID+"/click", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://deals.example/spring", suite.decode(w)["target_url"])

	var stored models.Advertisement
	require.NoError(t, suite.db.First(&stored, "id = ?", live.ID).Error)
	assert.Equal(t, 1, stored.ImpressionCount)
	assert.Equal(t, 1, stored.ClickCount)

	var metric models.RevenueMetric
	require.NoError(t, suite.db.First(&metric).Error)
	assert.Equal(t, 1, metric.AdImpressions)
	assert.Equal(t, 1, metric.AdClicks)
}

func (suite *HandlersTestSuite) TestAffiliateRedirectAppendsTag() {
	t := suite.T()
	retailer := models.Retailer{Name: "Walmart", AffiliateTag: "shopsmartly-20"}
	require.NoError(t, suite.db.Create(&retailer).Error)

	path := "/api/v1/affiliate/redirect?url=" + "https%3A%2F%2Fwalmart.example%2Fitem%2F42" +
		"&retailer_id=" + retailer.ID
	w := suite.request(http.MethodGet, path, nil, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "tag=shopsmartly-20")

	var click models.AffiliateClick
	require.NoError(t, suite.db.First(&click).Error)
	assert.Contains(t, click.TargetURL, "walmart.example")
	assert.Nil(t, click.UserID)
}

func (suite *HandlersTestSuite) TestAffiliateRedirectAttributesSignedInUser() {
	t := suite.T()
	w := suite.request(http.MethodGet, "/api/v1/affiliate/redirect?url=https%3A%2F%2Fshop.example%2Fitem", nil, true)
	require.Equal(t, http.StatusFound, w.Code)

	var click models.AffiliateClick
	require.NoError(t, suite.db.First(&click).Error)
	require.NotNil(t, click.UserID)
	assert.Equal(t, suite.testUser.ID, *click.UserID)
}

func (suite *HandlersTestSuite) TestAffiliateRedirectRejectsBadURL() {
	w := suite.request(http.MethodGet, "/api/v1/affiliate/redirect?url=javascript%3Aalert(1)", nil, false)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestSubscriptionUpgradeAndPayments() {
	t := suite.T()

	w := suite.request(http.MethodGet, "/api/v1/subscription", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TierFree, suite.decode(w)["tier"])

	w = suite.request(http.MethodPost, "/api/v1/subscription/upgrade", gin.H{"amount_cents": 499}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TierPremium, suite.decode(w)["tier"])

	var user models.User
	require.NoError(t, suite.db.First(&user, "id = ?", suite.testUser.ID).Error)
	assert.Equal(t, models.TierPremium, user.SubscriptionTier)
	require.NotNil(t, user.SubscriptionExpiresAt)

	w = suite.request(http.MethodGet, "/api/v1/subscription/payments", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	payments := suite.decode(w)["payments"].([]interface{})
	require.Len(t, payments, 1)
	assert.EqualValues(t, 499, payments[0].(map[string]interface{})["amount_cents"])

	var metric models.RevenueMetric
	require.NoError(t, suite.db.First(&metric).Error)
	assert.EqualValues(t, 499, metric.SubscriptionRevenueCents)
}

func (suite *HandlersTestSuite) TestScanBlockedAtDailyLimit() {
	t := suite.T()
	client, err := cache.NewRedisClient("localhost", "6379", "")
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	svc := subscription.NewService(client)
	suite.handlers = NewHandlers(
		lookup.NewAggregator([]lookup.Source{suite.lookupStub}, nil),
		pricing.NewAggregator([]pricing.Source{suite.pricingStub}, nil),
		svc,
	)
	suite.handlers.SetAssistant(assistant.NewService(suite.db))
	suite.router = gin.New()
	suite.setupRoutes()

	ctx := context.Background()
	counterKey := fmt.Sprintf("scans:%s:%s", suite.testUser.ID, time.Now().UTC().Format("2006-01-02"))
	defer client.Del(ctx, counterKey)

	for i := 0; i < subscription.FreeDailyScanLimit; i++ {
		allowed, _, err := svc.ConsumeScan(ctx, suite.testUser)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	w := suite.request(http.MethodPost, "/api/v1/scan", gin.H{"barcode": "0123456789012"}, true)
	require.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())
	resp := suite.decode(w)
	assert.Equal(t, "SCAN_LIMIT_REACHED", resp["code"])
	assert.Contains(t, resp["message"], "upgrade to premium")

	// denied scans must not inflate the counter
	w = suite.request(http.MethodGet, "/api/v1/subscription", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	usage := suite.decode(w)["usage"].(map[string]interface{})
	assert.EqualValues(t, subscription.FreeDailyScanLimit, usage["scans_used"])
}

func (suite *HandlersTestSuite) TestEcoSummary() {
	t := suite.T()
	eco := 80
	withScore := models.Product{Barcode: "0123456789012", Name: "Good", EcoScore: &eco}
	require.NoError(t, suite.db.Create(&withScore).Error)
	noScore := suite.seedProduct("0123456789013", "Unknown")

	for _, p := range []models.Product{withScore, noScore} {
		require.NoError(t, suite.db.Create(&models.ScanHistory{
			UserID: suite.testUser.ID, ProductID: p.ID, Barcode: p.Barcode,
		}).Error)
	}

	w := suite.request(http.MethodGet, "/api/v1/analytics/eco", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	resp := suite.decode(w)
	assert.EqualValues(t, 2, resp["total_scans"])
	assert.EqualValues(t, 1, resp["scored_scans"])
	assert.EqualValues(t, 80, resp["average_eco_score"])
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
