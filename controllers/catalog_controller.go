package controllers

import (
	"context"
	"net/http"

	"canteen-service/middlewares"
	"canteen-service/models"

	"github.com/gin-gonic/gin"
)

type CatalogService interface {
	ListVendors(ctx context.Context) ([]models.Vendor, error)
	ListItems(ctx context.Context, vendor, category string) ([]models.Item, error)
	ListCategoryItems(ctx context.Context, vendor, category string) ([]models.Item, error)
	ListAllItems(ctx context.Context) ([]models.Item, error)
	Search(ctx context.Context, query string) ([]models.Item, error)
}

type CatalogController struct {
	catalog CatalogService
}

func NewCatalogController(catalog CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

func (cc *CatalogController) ListVendors(c *gin.Context) {
	vendors, err := cc.catalog.ListVendors(c.Request.Context())
	if err != nil {
		middlewares.Logger(c).Error("list vendors failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch vendors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stores": vendors})
}

func (cc *CatalogController) ListVendorItems(c *gin.Context) {
	vendor := c.Param("vendorUsername")
	items, err := cc.catalog.ListItems(c.Request.Context(), vendor, c.Query("category"))
	if err != nil {
		middlewares.Logger(c).Error("list items failed", "vendor", vendor, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": items})
}

func (cc *CatalogController) ListCategoryItems(c *gin.Context) {
	vendor, category := c.Param("vendorUsername"), c.Query("category")
	items, err := cc.catalog.ListCategoryItems(c.Request.Context(), vendor, category)
	if err != nil {
		middlewares.Logger(c).Error("list category items failed", "vendor", vendor, "category", category, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch category items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": items})
}

func (cc *CatalogController) ListAllItems(c *gin.Context) {
	items, err := cc.catalog.ListAllItems(c.Request.Context())
	if err != nil {
		middlewares.Logger(c).Error("list items failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": items})
}

func (cc *CatalogController) Search(c *gin.Context) {
	items, err := cc.catalog.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		middlewares.Logger(c).Error("search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error searching items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}
