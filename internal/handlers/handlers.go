package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magickw/ShopSmartly-sub000/internal/assistant"
	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/lookup"
	"github.com/magickw/ShopSmartly-sub000/internal/pricing"
	"github.com/magickw/ShopSmartly-sub000/internal/storage"
	"github.com/magickw/ShopSmartly-sub000/internal/subscription"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	lookup        *lookup.Aggregator
	pricing       *pricing.Aggregator
	assistant     *assistant.Service
	subscriptions *subscription.Service
	imageMirror   storage.ImageMirror
}

// NewHandlers creates a new handlers instance
func NewHandlers(lookupAgg *lookup.Aggregator, pricingAgg *pricing.Aggregator, subscriptions *subscription.Service) *Handlers {
	return &Handlers{
		lookup:        lookupAgg,
		pricing:       pricingAgg,
		subscriptions: subscriptions,
		imageMirror:   storage.NoopMirror{},
	}
}

// SetAssistant sets the chat assistant service
func (h *Handlers) SetAssistant(svc *assistant.Service) {
	h.assistant = svc
}

// SetImageMirror sets the product image mirror
func (h *Handlers) SetImageMirror(mirror storage.ImageMirror) {
	if mirror != nil {
		h.imageMirror = mirror
	}
}

// Health reports database and cache connectivity
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "ok"}

	if err := database.Health(); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if rc := cache.GetRedisClient(); rc != nil {
		if err := rc.Ping(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	} else {
		checks["redis"] = "not configured"
	}

	c.JSON(status, gin.H{"status": statusWord(status), "checks": checks})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}
