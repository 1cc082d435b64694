package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

// FreeDailyScanLimit is how many barcode scans a free-tier user gets per
// calendar day (UTC). Premium users are unlimited.
const FreeDailyScanLimit = 10

// Service enforces tier limits. Counters live in Redis keyed per user and
// per UTC day, so every replica sees the same count and the keys expire on
// their own at midnight.
type Service struct {
	cache *cache.RedisClient
}

func NewService(redisClient *cache.RedisClient) *Service {
	return &Service{cache: redisClient}
}

// Usage is the current scan allowance for a user
type Usage struct {
	Tier      string `json:"tier"`
	ScansUsed int    `json:"scans_used"`
	ScanLimit int    `json:"scan_limit"`
	Unlimited bool   `json:"unlimited"`
}

func scanCounterKey(userID string, now time.Time) string {
	return fmt.Sprintf("scans:%s:%s", userID, now.UTC().Format("2006-01-02"))
}

// secondsUntilMidnightUTC pads by a minute so a counter never outlives
// its day under clock skew.
func secondsUntilMidnightUTC(now time.Time) time.Duration {
	next := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(now.UTC()) + time.Minute
}

// ConsumeScan records one scan for the user and reports whether it was
// allowed. Premium users always pass without touching Redis. When Redis is
// unavailable the scan is allowed and the count is lost.
func (s *Service) ConsumeScan(ctx context.Context, user *models.User) (bool, *Usage, error) {
	if user.IsPremium() {
		return true, &Usage{Tier: user.SubscriptionTier, Unlimited: true}, nil
	}
	usage := &Usage{Tier: models.TierFree, ScanLimit: FreeDailyScanLimit}
	if s.cache == nil {
		return true, usage, nil
	}

	now := time.Now()
	key := scanCounterKey(user.ID, now)

	count, err := s.cache.Incr(ctx, key)
	if err != nil {
		logger.WarnWithFields("Scan counter unavailable, allowing scan", err, logger.WithUserID(user.ID))
		return true, usage, nil
	}
	if count == 1 {
		if err := s.cache.Expire(ctx, key, secondsUntilMidnightUTC(now)); err != nil {
			logger.WarnWithFields("Failed to set scan counter expiry", err, logger.WithUserID(user.ID))
		}
	}

	usage.ScansUsed = int(count)
	if count > FreeDailyScanLimit {
		// the increment above overshot; back it out so usage reads stay accurate
		if _, err := s.cache.IncrBy(ctx, key, -1); err == nil {
			usage.ScansUsed = FreeDailyScanLimit
		}
		return false, usage, nil
	}
	return true, usage, nil
}

// CurrentUsage reads the counter without consuming a scan
func (s *Service) CurrentUsage(ctx context.Context, user *models.User) (*Usage, error) {
	if user.IsPremium() {
		return &Usage{Tier: user.SubscriptionTier, Unlimited: true}, nil
	}
	usage := &Usage{Tier: models.TierFree, ScanLimit: FreeDailyScanLimit}
	if s.cache == nil {
		return usage, nil
	}

	count, err := s.cache.GetInt(ctx, scanCounterKey(user.ID, time.Now()))
	if err != nil {
		if cache.IsNil(err) {
			return usage, nil
		}
		return nil, fmt.Errorf("failed to read scan counter: %w", err)
	}
	usage.ScansUsed = int(count)
	return usage, nil
}
