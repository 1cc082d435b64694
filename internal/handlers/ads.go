package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetActiveAds returns ads currently in their active window
// GET /api/v1/ads
func (h *Handlers) GetActiveAds(c *gin.Context) {
	now := time.Now()
	query := database.DB.
		Where("active = ?", true).
		Where("starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at > ?", now)
	if placement := c.Query("placement"); placement != "" {
		query = query.Where("placement = ?", placement)
	}

	var ads []models.Advertisement
	if err := query.Order("created_at DESC").Find(&ads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ads": ads})
}

// RecordAdImpression counts one ad view
// POST /api/v1/ads/:id/impression
func (h *Handlers) RecordAdImpression(c *gin.Context) {
	adID := c.Param("id")

	result := database.DB.Model(&models.Advertisement{}).
		Where("id = ?", adID).
		UpdateColumn("impression_count", gorm.Expr("impression_count + 1"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record impression"})
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "ad")
		return
	}

	bumpRevenueMetric("ad_impressions")
	c.JSON(http.StatusOK, gin.H{"message": "impression recorded"})
}

// RecordAdClick counts a click and returns the ad target for the client to open
// POST /api/v1/ads/:id/click
func (h *Handlers) RecordAdClick(c *gin.Context) {
	var ad models.Advertisement
	if err := database.DB.First(&ad, "id = ?", c.Param("id")).Error; util.HandleDBError(c, err, "ad") {
		return
	}

	if err := database.DB.Model(&ad).
		UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to increment ad click count", err)
	}

	bumpRevenueMetric("ad_clicks")
	c.JSON(http.StatusOK, gin.H{"target_url": ad.TargetURL})
}

// AffiliateRedirect logs an outbound retailer click and redirects. The
// retailer's affiliate tag, when present, is appended to the target URL.
// GET /api/v1/affiliate/redirect?url=...&product_id=...&retailer_id=...
func (h *Handlers) AffiliateRedirect(c *gin.Context) {
	rawTarget := c.Query("url")
	target, err := url.Parse(rawTarget)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
		return
	}

	click := models.AffiliateClick{TargetURL: target.String()}
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			click.UserID = &id
		}
	}
	if productID := c.Query("product_id"); productID != "" {
		click.ProductID = &productID
	}

	if retailerID := c.Query("retailer_id"); retailerID != "" {
		click.RetailerID = &retailerID
		var retailer models.Retailer
		if err := database.DB.First(&retailer, "id = ?", retailerID).Error; err == nil && retailer.AffiliateTag != "" {
			q := target.Query()
			q.Set("tag", retailer.AffiliateTag)
			target.RawQuery = q.Encode()
			click.TargetURL = target.String()
		}
	}

	if err := database.DB.Create(&click).Error; err != nil {
		logger.WarnWithFields("Failed to log affiliate click", err)
	}
	bumpRevenueMetric("affiliate_clicks")

	c.Redirect(http.StatusFound, target.String())
}

// bumpRevenueMetric increments one counter column on today's rollup row.
// Best effort: metric failures never surface to the client.
func bumpRevenueMetric(column string) {
	if err := addRevenueMetric(database.DB, column, 1); err != nil {
		logger.WarnWithFields("Failed to bump revenue metric", err)
	}
}

// addRevenueMetric upserts today's rollup row and adds amount to one
// counter column. Runs on the given handle so callers can keep it
// inside a transaction.
func addRevenueMetric(db *gorm.DB, column string, amount int64) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var metric models.RevenueMetric
	err := db.Where("date = ?", today).First(&metric).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		metric = models.RevenueMetric{Date: today}
		if err := db.Create(&metric).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	}

	return db.Model(&metric).
		UpdateColumn(column, gorm.Expr(column+" + ?", amount)).Error
}
