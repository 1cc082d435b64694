// Package shopsmartly provides the ShopSmartly API server.

// This package contains only documentation. The application is organized
// into subpackages:

// - cmd/server: API server entry point
// - cmd/migrate: schema migration tool
// - cmd/seed: development data seeder
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication (native, Google, Apple) and JWT issuing
// - internal/lookup: Barcode product lookup across external catalogs
// - internal/pricing: Retail price aggregation and comparison
// - internal/assistant: Rule-based shopping assistant
// - internal/subscription: Subscription tiers and daily scan limits
// - internal/storage: Product image mirroring (S3)
// - internal/database: Database connection and migrations
// - internal/cache: Redis caching and counters
// - internal/middleware: HTTP middleware (request IDs, rate limiting, metrics)
// - internal/seed: Fake data generation for development

// See the individual package documentation for detailed API reference.
package shopsmartly
