package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetScanHistory returns the current user's scans, newest first
// GET /api/v1/history
func (h *Handlers) GetScanHistory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)
	if limit > 100 {
		limit = 100
	}

	var total int64
	if err := database.DB.Model(&models.ScanHistory{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count history"})
		return
	}

	var scans []models.ScanHistory
	err := database.DB.Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&scans).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": scans,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// DeleteScanHistoryEntry removes one scan record
// DELETE /api/v1/history/:id
func (h *Handlers) DeleteScanHistoryEntry(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.ScanHistory{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete history entry"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "history entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "history entry deleted"})
}

// ClearScanHistory removes all scan records for the user
// DELETE /api/v1/history
func (h *Handlers) ClearScanHistory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Where("user_id = ?", userID).Delete(&models.ScanHistory{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "history cleared", "removed": result.RowsAffected})
}
