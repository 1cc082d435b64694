package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetShoppingList returns the current user's shopping list
// GET /api/v1/shopping-list
func (h *Handlers) GetShoppingList(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var items []models.ShoppingListItem
	err := database.DB.Preload("Product").
		Where("user_id = ?", userID).
		Order("completed ASC, created_at DESC").
		Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load shopping list"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddShoppingListItemRequest creates a list entry, linked or free text
type AddShoppingListItemRequest struct {
	ProductID *string `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
}

// AddShoppingListItem appends an item to the shopping list
// POST /api/v1/shopping-list
func (h *Handlers) AddShoppingListItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req AddShoppingListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := req.Name
	if req.ProductID != nil {
		var product models.Product
		if err := database.DB.First(&product, "id = ?", *req.ProductID).Error; util.HandleDBError(c, err, "product") {
			return
		}
		if name == "" {
			name = product.Name
		}
	}
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required for free-text items"})
		return
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	item := models.ShoppingListItem{
		UserID:    userID,
		ProductID: req.ProductID,
		Name:      name,
		Quantity:  quantity,
	}
	if err := database.DB.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// UpdateShoppingListItemRequest carries partial item updates
type UpdateShoppingListItemRequest struct {
	Name      *string `json:"name"`
	Quantity  *int    `json:"quantity"`
	Completed *bool   `json:"completed"`
}

// UpdateShoppingListItem patches quantity, name or completion
// PATCH /api/v1/shopping-list/:id
func (h *Handlers) UpdateShoppingListItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var item models.ShoppingListItem
	err := database.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&item).Error
	if util.HandleDBError(c, err, "item") {
		return
	}

	var req UpdateShoppingListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
			return
		}
		updates["quantity"] = *req.Quantity
	}
	if req.Completed != nil {
		updates["completed"] = *req.Completed
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	if err := database.DB.Model(&item).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// DeleteShoppingListItem removes one item
// DELETE /api/v1/shopping-list/:id
func (h *Handlers) DeleteShoppingListItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.ShoppingListItem{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// ClearCompletedItems removes every completed item from the list
// DELETE /api/v1/shopping-list/completed
func (h *Handlers) ClearCompletedItems(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Where("user_id = ? AND completed = ?", userID, true).
		Delete(&models.ShoppingListItem{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear completed items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "completed items cleared", "removed": result.RowsAffected})
}
