package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	apierrors "github.com/magickw/ShopSmartly-sub000/internal/errors"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// ListProducts returns a paginated catalog listing, optionally filtered
// GET /api/v1/products
func (h *Handlers) ListProducts(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)
	if limit > 100 {
		limit = 100
	}

	query := database.DB.Model(&models.Product{})
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ?",
			"%"+strings.ToLower(search)+"%", "%"+strings.ToLower(search)+"%")
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count products"})
		return
	}

	var products []models.Product
	err := query.Preload("Prices").Preload("Prices.Retailer").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetProduct returns one product by ID
// GET /api/v1/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	var product models.Product
	err := database.DB.Preload("Prices").Preload("Prices.Retailer").
		First(&product, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "product") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetProductByBarcode returns one product by barcode
// GET /api/v1/products/barcode/:barcode
func (h *Handlers) GetProductByBarcode(c *gin.Context) {
	barcode := util.NormalizeBarcode(c.Param("barcode"))
	if !util.IsValidBarcode(barcode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid barcode format"})
		return
	}

	var product models.Product
	err := database.DB.Preload("Prices").Preload("Prices.Retailer").
		First(&product, "barcode = ?", barcode).Error
	if util.HandleDBError(c, err, "product") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProductRequest is the manual product entry payload
type CreateProductRequest struct {
	Barcode     string `json:"barcode" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	EcoScore    *int   `json:"eco_score"`
	EcoDetails  string `json:"eco_details"`
}

// CreateProduct adds a product manually (no external lookup)
// POST /api/v1/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	barcode := util.NormalizeBarcode(req.Barcode)
	if !util.IsValidBarcode(barcode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid barcode format"})
		return
	}
	if req.EcoScore != nil && (*req.EcoScore < 0 || *req.EcoScore > 100) {
		util.RespondValidationError(c, "eco_score", "eco_score must be between 0 and 100")
		return
	}

	var existing models.Product
	if err := database.DB.First(&existing, "barcode = ?", barcode).Error; err == nil {
		util.RespondWithAPIError(c, apierrors.Conflict("product").WithDetails(existing.ID))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondInternalError(c, "failed to check barcode")
		return
	}

	product := models.Product{
		Barcode:     barcode,
		Name:        req.Name,
		Brand:       req.Brand,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		EcoScore:    req.EcoScore,
		EcoDetails:  req.EcoDetails,
		DataSource:  "manual",
	}
	if err := database.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProductRequest carries partial product updates
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Brand       *string `json:"brand"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	EcoScore    *int    `json:"eco_score"`
	EcoDetails  *string `json:"eco_details"`
}

// UpdateProduct patches product fields
// PATCH /api/v1/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var product models.Product
	if err := database.DB.First(&product, "id = ?", c.Param("id")).Error; util.HandleDBError(c, err, "product") {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EcoScore != nil && (*req.EcoScore < 0 || *req.EcoScore > 100) {
		util.RespondValidationError(c, "eco_score", "eco_score must be between 0 and 100")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.EcoScore != nil {
		updates["eco_score"] = *req.EcoScore
	}
	if req.EcoDetails != nil {
		updates["eco_details"] = *req.EcoDetails
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	if err := database.DB.Model(&product).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct soft deletes a product
// DELETE /api/v1/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	result := database.DB.Delete(&models.Product{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// GetProductPrices returns stored prices for a product, cheapest first
// GET /api/v1/products/:id/prices
func (h *Handlers) GetProductPrices(c *gin.Context) {
	productID := c.Param("id")

	var product models.Product
	if err := database.DB.First(&product, "id = ?", productID).Error; util.HandleDBError(c, err, "product") {
		return
	}

	var prices []models.Price
	err := database.DB.Preload("Retailer").
		Where("product_id = ?", productID).
		Find(&prices).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load prices"})
		return
	}

	sortPricesAscending(prices)

	var best *models.Price
	if len(prices) > 0 {
		if _, err := util.ParsePrice(prices[0].Price); err == nil {
			best = &prices[0]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"prices":     prices,
		"best":       best,
	})
}
