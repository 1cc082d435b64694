package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetSubscriptionStatus returns the user's tier and scan allowance
// GET /api/v1/subscription
func (h *Handlers) GetSubscriptionStatus(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	usage, err := h.subscriptions.CurrentUsage(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read scan usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":       user.SubscriptionTier,
		"expires_at": user.SubscriptionExpiresAt,
		"usage":      usage,
	})
}

// UpgradeRequest records a subscription purchase. There is no payment
// gateway; the payment row is the source of truth.
type UpgradeRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,min=1"`
	Currency    string `json:"currency"`
	Months      int    `json:"months"`
}

// UpgradeSubscription switches the user to premium and records the payment
// POST /api/v1/subscription/upgrade
func (h *Handlers) UpgradeSubscription(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Months <= 0 {
		req.Months = 1
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	periodStart := time.Now()
	if user.IsPremium() && user.SubscriptionExpiresAt != nil {
		// extending an active subscription
		periodStart = *user.SubscriptionExpiresAt
	}
	periodEnd := periodStart.AddDate(0, req.Months, 0)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		payment := models.SubscriptionPayment{
			UserID:      user.ID,
			Tier:        models.TierPremium,
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"subscription_tier":       models.TierPremium,
			"subscription_expires_at": periodEnd,
		}).Error; err != nil {
			return err
		}
		return addRevenueMetric(tx, "subscription_revenue_cents", req.AmountCents)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record upgrade"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":       models.TierPremium,
		"expires_at": periodEnd,
	})
}

// GetSubscriptionPayments lists the user's payment records
// GET /api/v1/subscription/payments
func (h *Handlers) GetSubscriptionPayments(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var payments []models.SubscriptionPayment
	err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
