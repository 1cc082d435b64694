package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	apierrors "github.com/magickw/ShopSmartly-sub000/internal/errors"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/lookup"
	"github.com/magickw/ShopSmartly-sub000/internal/metrics"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// ScanRequest is the barcode scan payload
type ScanRequest struct {
	Barcode    string `json:"barcode" binding:"required"`
	ScanMethod string `json:"scan_method"`
}

// ScanBarcode resolves a barcode end to end: tier gate, external lookup,
// price aggregation, catalog upsert, scan history row.
// POST /api/v1/scan
func (h *Handlers) ScanBarcode(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	barcode := util.NormalizeBarcode(req.Barcode)
	if !util.IsValidBarcode(barcode) {
		util.RespondBadRequest(c, "invalid barcode format")
		return
	}

	scanMethod := req.ScanMethod
	if scanMethod != models.ScanMethodCamera {
		scanMethod = models.ScanMethodManual
	}

	allowed, usage, err := h.subscriptions.ConsumeScan(c.Request.Context(), user)
	if err != nil {
		util.RespondInternalError(c, "failed to check scan allowance")
		return
	}
	if !allowed {
		metrics.Get().ScansTotal.WithLabelValues(scanMethod, "limited").Inc()
		util.RespondWithAPIError(c, apierrors.ScanLimitReached(usage.ScanLimit))
		return
	}

	product, err := h.resolveProduct(c, barcode)
	if err != nil {
		if errors.Is(err, lookup.ErrNotFound) {
			metrics.Get().ScansTotal.WithLabelValues(scanMethod, "not_found").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "no product found for this barcode", "barcode": barcode})
			return
		}
		logger.ErrorWithFields("Scan failed", err, logger.WithBarcode(barcode), logger.WithUserID(user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	h.refreshPrices(c, product)

	scan := models.ScanHistory{
		UserID:     user.ID,
		ProductID:  product.ID,
		Barcode:    barcode,
		ScanMethod: scanMethod,
	}
	if err := database.DB.Create(&scan).Error; err != nil {
		logger.WarnWithFields("Failed to record scan history", err, logger.WithUserID(user.ID))
	}

	// reload with prices for the response
	var full models.Product
	if err := database.DB.Preload("Prices").Preload("Prices.Retailer").
		First(&full, "id = ?", product.ID).Error; err == nil {
		product = &full
	}
	sortPricesAscending(product.Prices)

	metrics.Get().ScansTotal.WithLabelValues(scanMethod, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"product": product,
		"scan_id": scan.ID,
		"usage":   usage,
	})
}

// resolveProduct returns the catalog row for a barcode, running the external
// lookup (and image mirror) on first sight
func (h *Handlers) resolveProduct(c *gin.Context, barcode string) (*models.Product, error) {
	var existing models.Product
	err := database.DB.First(&existing, "barcode = ?", barcode).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	info, err := h.lookup.Lookup(c.Request.Context(), barcode)
	if err != nil {
		return nil, err
	}

	product := models.Product{
		Barcode:     barcode,
		Name:        info.Name,
		Brand:       info.Brand,
		Category:    info.Category,
		Description: info.Description,
		ImageURL:    info.ImageURL,
		EcoScore:    info.EcoScore,
		EcoDetails:  info.EcoDetails,
		DataSource:  info.Source,
	}
	if err := database.DB.Create(&product).Error; err != nil {
		// lost a race with a concurrent scan of the same barcode
		var winner models.Product
		if raceErr := database.DB.First(&winner, "barcode = ?", barcode).Error; raceErr == nil {
			return &winner, nil
		}
		return nil, err
	}

	if product.ImageURL != "" {
		if mirrored, err := h.imageMirror.Mirror(c.Request.Context(), product.ID, product.ImageURL); err != nil {
			logger.WarnWithFields("Failed to mirror product image", err, logger.WithProductID(product.ID))
		} else if mirrored != product.ImageURL {
			database.DB.Model(&product).UpdateColumn("mirrored_image_url", mirrored)
			product.MirroredImageURL = mirrored
		}
	}

	return &product, nil
}

// refreshPrices pulls fresh quotes and upserts them as Price rows keyed by
// product + retailer. Failures only log; scans never fail on pricing.
func (h *Handlers) refreshPrices(c *gin.Context, product *models.Product) {
	comparison, err := h.pricing.Compare(c.Request.Context(), product.Barcode)
	if err != nil {
		logger.WarnWithFields("Price aggregation failed", err, logger.WithBarcode(product.Barcode))
		return
	}

	for _, quote := range comparison.Quotes {
		retailer, err := findOrCreateRetailer(quote.Retailer)
		if err != nil {
			logger.WarnWithFields("Failed to upsert retailer", err, logger.WithSource(quote.Source))
			continue
		}

		price := models.Price{
			ProductID:    product.ID,
			RetailerID:   retailer.ID,
			Price:        quote.Price,
			Currency:     quote.Currency,
			Availability: quote.Availability,
			ProductURL:   quote.ProductURL,
			FetchedAt:    time.Now().UTC(),
		}

		var existing models.Price
		err = database.DB.Where("product_id = ? AND retailer_id = ?", product.ID, retailer.ID).
			First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"price":        price.Price,
				"currency":     price.Currency,
				"availability": price.Availability,
				"product_url":  price.ProductURL,
				"fetched_at":   price.FetchedAt,
			}
			if err := database.DB.Model(&existing).Updates(updates).Error; err != nil {
				logger.WarnWithFields("Failed to update price", err, logger.WithProductID(product.ID))
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := database.DB.Create(&price).Error; err != nil {
				logger.WarnWithFields("Failed to store price", err, logger.WithProductID(product.ID))
			}
		default:
			logger.WarnWithFields("Failed to check existing price", err, logger.WithProductID(product.ID))
		}
	}
}

func findOrCreateRetailer(name string) (*models.Retailer, error) {
	var retailer models.Retailer
	err := database.DB.Where("LOWER(name) = LOWER(?)", name).First(&retailer).Error
	if err == nil {
		return &retailer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	retailer = models.Retailer{Name: name}
	if err := database.DB.Create(&retailer).Error; err != nil {
		return nil, err
	}
	return &retailer, nil
}
