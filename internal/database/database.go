package database

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "shopsmartly")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Enable UUID extension for PostgreSQL
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		// Non-fatal: gen_random_uuid is built in from PostgreSQL 13
		fmt.Fprintf(os.Stderr, "Warning: could not create uuid-ossp extension: %v\n", err)
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Retailer{},
		&models.Price{},
		&models.ScanHistory{},
		&models.Favorite{},
		&models.ShoppingListItem{},
		&models.ChatMessage{},
		&models.Advertisement{},
		&models.AffiliateClick{},
		&models.SubscriptionPayment{},
		&models.RevenueMetric{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates performance indexes beyond what the struct tags declare
func createIndexes() error {
	// User lookups are case-insensitive
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")

	// Price rows are fetched per product and deduplicated per retailer
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_prices_product_retailer ON prices (product_id, retailer_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_prices_product_fetched ON prices (product_id, fetched_at DESC)")

	// History and favorites are listed newest-first per user
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_scan_history_user_created ON scan_history (user_id, created_at DESC)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_favorites_user_product ON favorites (user_id, product_id) WHERE deleted_at IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_shopping_list_user ON shopping_list_items (user_id, created_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at)")

	// Ad serving filters on the active window
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_advertisements_active ON advertisements (active, starts_at, ends_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_affiliate_clicks_created ON affiliate_clicks (created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_subscription_payments_user ON subscription_payments (user_id, created_at DESC)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
