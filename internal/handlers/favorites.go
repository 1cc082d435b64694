package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetFavorites returns the current user's favorite products
// GET /api/v1/favorites
func (h *Handlers) GetFavorites(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit := util.ParseInt(c.DefaultQuery("limit", "50"), 50)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)

	var favorites []models.Favorite
	err := database.DB.Preload("Product").Preload("Product.Prices").Preload("Product.Prices.Retailer").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&favorites).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load favorites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

// AddFavoriteRequest identifies the product to favorite
type AddFavoriteRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// AddFavorite marks a product as a favorite for the current user
// POST /api/v1/favorites
func (h *Handlers) AddFavorite(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var product models.Product
	if err := database.DB.First(&product, "id = ?", req.ProductID).Error; util.HandleDBError(c, err, "product") {
		return
	}

	var existing models.Favorite
	err := database.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "product already favorited", "favorite": existing})
		return
	}

	favorite := models.Favorite{
		UserID:    userID,
		ProductID: req.ProductID,
	}
	if err := database.DB.Create(&favorite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add favorite"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"favorite": favorite})
}

// RemoveFavorite unfavorites a product by product ID
// DELETE /api/v1/favorites/:productId
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	productID := c.Param("productId")
	result := database.DB.Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove favorite"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "product is not in favorites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "favorite removed"})
}
