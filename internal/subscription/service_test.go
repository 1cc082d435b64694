package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

// redisForTest connects to a local Redis, skipping the test when none is
// running. Tests that use it get their own user ID so counters never collide.
func redisForTest(t *testing.T) *cache.RedisClient {
	t.Helper()
	client, err := cache.NewRedisClient("localhost", "6379", "")
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConsumeScanPremiumIsUnlimited(t *testing.T) {
	svc := NewService(nil)
	expires := time.Now().Add(24 * time.Hour)
	user := &models.User{
		ID:                    "user-1",
		SubscriptionTier:      models.TierPremium,
		SubscriptionExpiresAt: &expires,
	}

	allowed, usage, err := svc.ConsumeScan(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.True(t, usage.Unlimited)
	assert.Equal(t, models.TierPremium, usage.Tier)
}

func TestConsumeScanWithoutRedisAllows(t *testing.T) {
	svc := NewService(nil)
	user := &models.User{ID: "user-1", SubscriptionTier: models.TierFree}

	allowed, usage, err := svc.ConsumeScan(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.False(t, usage.Unlimited)
	assert.Equal(t, FreeDailyScanLimit, usage.ScanLimit)
}

func TestCurrentUsageWithoutRedis(t *testing.T) {
	svc := NewService(nil)
	user := &models.User{ID: "user-1", SubscriptionTier: models.TierFree}

	usage, err := svc.CurrentUsage(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.ScansUsed)
	assert.Equal(t, FreeDailyScanLimit, usage.ScanLimit)
}

func TestConsumeScanEnforcesDailyLimit(t *testing.T) {
	client := redisForTest(t)
	svc := NewService(client)
	ctx := context.Background()

	user := &models.User{ID: uuid.NewString(), SubscriptionTier: models.TierFree}
	t.Cleanup(func() {
		client.Del(ctx, scanCounterKey(user.ID, time.Now()))
	})

	for i := 1; i <= FreeDailyScanLimit; i++ {
		allowed, usage, err := svc.ConsumeScan(ctx, user)
		require.NoError(t, err)
		assert.True(t, allowed, "scan %d should be allowed", i)
		assert.Equal(t, i, usage.ScansUsed)
	}

	// the counter rolls back on denial, so repeated over-limit scans keep
	// reporting the limit rather than creeping past it
	for i := 0; i < 3; i++ {
		allowed, usage, err := svc.ConsumeScan(ctx, user)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, FreeDailyScanLimit, usage.ScansUsed)
	}

	usage, err := svc.CurrentUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, FreeDailyScanLimit, usage.ScansUsed)
}

func TestScanCounterKeyUsesUTCDate(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC
	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)

	key := scanCounterKey("user-1", local)
	assert.Equal(t, "scans:user-1:2026-03-11", key)
}

func TestSecondsUntilMidnightUTC(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	d := secondsUntilMidnightUTC(now)
	assert.Equal(t, time.Hour+time.Minute, d)
}
