package middleware

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	apierrors "github.com/magickw/ShopSmartly-sub000/internal/errors"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// RedisRateLimitMiddleware creates a distributed rate limiter using Redis.
// This works across multiple server instances, unlike an in-process counter.
func RedisRateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			// If Redis isn't available, let the request through but log it
			logger.Log.Warn("Redis rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		clientIP := getClientIP(c.Request.RemoteAddr)
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		val, err := redisClient.GetInt(ctx, key)
		if err != nil && !cache.IsNil(err) {
			// On Redis error, reject the request - letting traffic through with a
			// broken limiter opens the API up
			logger.Log.Error("Rate limit check failed - rejecting request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, apierrors.ServiceUnavailable("rate limiter"))
			c.Abort()
			return
		}

		if val >= int64(maxRequests) {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", val),
			)
			RecordRateLimitExceeded(c.FullPath(), c.Request.Method)
			util.RespondWithAPIError(c, apierrors.RateLimited("").
				WithDetails(fmt.Sprintf("retry after %d seconds", int(window.Seconds()))))
			c.Abort()
			return
		}

		newVal, err := redisClient.IncrBy(ctx, key, 1)
		if err != nil {
			logger.Log.Error("Rate limit increment failed - rejecting request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, apierrors.ServiceUnavailable("rate limiter"))
			c.Abort()
			return
		}

		// First request in this window sets the expiry
		if newVal == 1 {
			if err := redisClient.Expire(ctx, key, window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
			}
		}

		c.Next()
	}
}

// getClientIP extracts the client IP from RemoteAddr
func getClientIP(remoteAddr string) string {
	if ip, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return ip
	}
	return remoteAddr
}
