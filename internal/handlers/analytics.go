package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetEcoSummary reports the user's eco impact: average eco score across
// scanned products and scan counts per week.
// GET /api/v1/analytics/eco
func (h *Handlers) GetEcoSummary(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	weeks := util.ParseInt(c.DefaultQuery("weeks", "8"), 8)
	if weeks < 1 {
		weeks = 1
	}
	if weeks > 52 {
		weeks = 52
	}
	since := time.Now().AddDate(0, 0, -7*weeks)

	var scans []models.ScanHistory
	err := database.DB.Preload("Product").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&scans).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan data"})
		return
	}

	var scoreSum, scoreCount int
	weekly := make(map[string]int)
	for _, scan := range scans {
		if scan.Product.EcoScore != nil {
			scoreSum += *scan.Product.EcoScore
			scoreCount++
		}
		year, week := scan.CreatedAt.ISOWeek()
		weekly[weekKey(year, week)]++
	}

	var average *float64
	if scoreCount > 0 {
		avg := float64(scoreSum) / float64(scoreCount)
		average = &avg
	}

	c.JSON(http.StatusOK, gin.H{
		"average_eco_score": average,
		"scored_scans":      scoreCount,
		"total_scans":       len(scans),
		"scans_per_week":    weekly,
		"since":             since,
	})
}

func weekKey(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}

// GetRevenueMetrics returns daily monetization rollups
// GET /api/v1/analytics/revenue
func (h *Handlers) GetRevenueMetrics(c *gin.Context) {
	days := util.ParseInt(c.DefaultQuery("days", "30"), 30)
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var metrics []models.RevenueMetric
	err := database.DB.Where("date >= ?", since).
		Order("date ASC").
		Find(&metrics).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load revenue metrics"})
		return
	}

	var impressions, clicks, affiliate int
	var revenueCents int64
	for _, m := range metrics {
		impressions += m.AdImpressions
		clicks += m.AdClicks
		affiliate += m.AffiliateClicks
		revenueCents += m.SubscriptionRevenueCents
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": metrics,
		"totals": gin.H{
			"ad_impressions":             impressions,
			"ad_clicks":                  clicks,
			"affiliate_clicks":           affiliate,
			"subscription_revenue_cents": revenueCents,
		},
	})
}
