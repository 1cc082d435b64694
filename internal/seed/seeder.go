package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var retailerNames = []string{
	"Walmart", "Target", "Costco", "Kroger", "Whole Foods",
	"Safeway", "Aldi", "Trader Joe's", "CVS", "Walgreens",
}

var categories = []string{
	"Beverages", "Snacks", "Dairy", "Bakery", "Produce",
	"Frozen", "Household", "Personal Care", "Pantry", "Pet Supplies",
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating retailers...")
	retailers, err := s.seedRetailers()
	if err != nil {
		return fmt.Errorf("failed to seed retailers: %w", err)
	}

	logger.Log.Info("Creating products and prices...")
	products, err := s.seedProducts(retailers, 200)
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating scan history...")
	if err := s.seedScanHistory(users, products, 500); err != nil {
		return fmt.Errorf("failed to seed scan history: %w", err)
	}

	logger.Log.Info("Creating favorites and shopping lists...")
	if err := s.seedCollections(users, products); err != nil {
		return fmt.Errorf("failed to seed collections: %w", err)
	}

	logger.Log.Info("Creating advertisements...")
	if err := s.seedAdvertisements(10); err != nil {
		return fmt.Errorf("failed to seed advertisements: %w", err)
	}

	return nil
}

func (s *Seeder) seedRetailers() ([]models.Retailer, error) {
	retailers := make([]models.Retailer, 0, len(retailerNames))
	for _, name := range retailerNames {
		retailer := models.Retailer{
			Name:    name,
			Website: fmt.Sprintf("https://www.%s.example", gofakeit.Username()),
		}
		if err := s.db.Create(&retailer).Error; err != nil {
			return nil, err
		}
		retailers = append(retailers, retailer)
	}
	return retailers, nil
}

func (s *Seeder) seedProducts(retailers []models.Retailer, count int) ([]models.Product, error) {
	products := make([]models.Product, 0, count)
	for i := 0; i < count; i++ {
		var ecoScore *int
		if gofakeit.Bool() {
			score := gofakeit.Number(5, 95)
			ecoScore = &score
		}
		product := models.Product{
			Barcode:     fmt.Sprintf("%012d", gofakeit.Number(100000000000, 999999999999)),
			Name:        gofakeit.ProductName(),
			Brand:       gofakeit.Company(),
			Category:    categories[rand.Intn(len(categories))],
			Description: gofakeit.ProductDescription(),
			ImageURL:    fmt.Sprintf("https://images.example/%s.jpg", gofakeit.UUID()),
			EcoScore:    ecoScore,
			DataSource:  "seed",
		}
		if err := s.db.Create(&product).Error; err != nil {
			return nil, err
		}

		// each product gets quotes from a few random retailers
		base := gofakeit.Price(1, 80)
		for _, r := range pickRetailers(retailers, 1+rand.Intn(4)) {
			price := models.Price{
				ProductID:    product.ID,
				RetailerID:   r.ID,
				Price:        fmt.Sprintf("%.2f", base*(0.85+rand.Float64()*0.3)),
				Currency:     "USD",
				Availability: randomAvailability(),
				ProductURL:   fmt.Sprintf("%s/p/%s", r.Website, product.Barcode),
				FetchedAt:    time.Now().Add(-time.Duration(rand.Intn(72)) * time.Hour),
			}
			if err := s.db.Create(&price).Error; err != nil {
				return nil, err
			}
		}
		products = append(products, product)
	}
	return products, nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		tier := models.TierFree
		if i%5 == 0 {
			tier = models.TierPremium
		}
		user := models.User{
			Email:            gofakeit.Email(),
			Username:         fmt.Sprintf("%s%d", gofakeit.Username(), i),
			PasswordHash:     &hashStr,
			SubscriptionTier: tier,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedScanHistory(users []models.User, products []models.Product, count int) error {
	if len(users) == 0 || len(products) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		product := products[rand.Intn(len(products))]
		method := models.ScanMethodCamera
		if gofakeit.Bool() {
			method = models.ScanMethodManual
		}
		scan := models.ScanHistory{
			UserID:     users[rand.Intn(len(users))].ID,
			ProductID:  product.ID,
			Barcode:    product.Barcode,
			ScanMethod: method,
		}
		if err := s.db.Create(&scan).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedCollections(users []models.User, products []models.Product) error {
	for _, user := range users {
		for _, product := range pickProducts(products, rand.Intn(6)) {
			fav := models.Favorite{UserID: user.ID, ProductID: product.ID}
			if err := s.db.Create(&fav).Error; err != nil {
				return err
			}
		}
		for _, product := range pickProducts(products, rand.Intn(4)) {
			item := models.ShoppingListItem{
				UserID:    user.ID,
				ProductID: &product.ID,
				Name:      product.Name,
				Quantity:  1 + rand.Intn(5),
				Completed: gofakeit.Bool(),
			}
			if err := s.db.Create(&item).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedAdvertisements(count int) error {
	placements := []string{
		models.AdPlacementBanner, models.AdPlacementInline, models.AdPlacementResults,
	}
	for i := 0; i < count; i++ {
		endsAt := time.Now().Add(time.Duration(7+rand.Intn(30)) * 24 * time.Hour)
		ad := models.Advertisement{
			Title:     gofakeit.Sentence(4),
			Body:      gofakeit.Sentence(10),
			ImageURL:  fmt.Sprintf("https://ads.example/%s.png", gofakeit.UUID()),
			TargetURL: gofakeit.URL(),
			Placement: placements[rand.Intn(len(placements))],
			StartsAt:  time.Now().Add(-24 * time.Hour),
			EndsAt:    &endsAt,
			Active:    true,
		}
		if err := s.db.Create(&ad).Error; err != nil {
			return err
		}
	}
	return nil
}

func pickRetailers(retailers []models.Retailer, n int) []models.Retailer {
	shuffled := make([]models.Retailer, len(retailers))
	copy(shuffled, retailers)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func pickProducts(products []models.Product, n int) []models.Product {
	if n > len(products) {
		n = len(products)
	}
	shuffled := make([]models.Product, len(products))
	copy(shuffled, products)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

func randomAvailability() string {
	switch rand.Intn(4) {
	case 0:
		return models.AvailabilityOutOfStock
	case 1:
		return models.AvailabilityUnknown
	default:
		return models.AvailabilityInStock
	}
}
