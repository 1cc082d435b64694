package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
)

// Runs schema migrations against the configured database and exits.
func main() {
	_ = godotenv.Load()

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), ""); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Close()

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("migration failed", err)
	}

	logger.Infof("migrations complete")
}
