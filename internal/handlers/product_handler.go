package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/services"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	productService services.ProductService
	logger         *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService services.ProductService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// @Summary Create a new product
// @Description Add a product to the catalogue. Omitted percentages default to the current rate settings.
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body services.CreateProductRequest true "Product data"
// @Success 201 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// @Summary List products
// @Description List active products, optionally by category or at/below their reorder level
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param category query string false "Gold, Silver or Diamond"
// @Param low_stock query bool false "Only products with stock <= min_stock"
// @Param limit query int false "Limit number of results"
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {object} listResponse
// @Failure 400 {object} ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filters, err := productFilters(c.Query)
	if err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	products, total, err := h.productService.ListProducts(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Data:   products,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// @Summary Product statistics
// @Description Active product counts per category and the low-stock list
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ProductStats
// @Router /products/stats [get]
func (h *ProductHandler) GetProductStats(c *gin.Context) {
	stats, err := h.productService.GetProductStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Get a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary Find a product by barcode
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param barcode path string true "Barcode"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Router /products/barcode/{barcode} [get]
func (h *ProductHandler) GetProductByBarcode(c *gin.Context) {
	product, err := h.productService.GetProductByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary Update a product
// @Description Apply the fields present in the body
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param product body services.UpdateProductRequest true "Fields to change"
// @Success 200 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary Set stock
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param stock body services.UpdateStockRequest true "New stock level"
// @Success 200 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /products/{id}/stock [patch]
func (h *ProductHandler) UpdateStock(c *gin.Context) {
	var req services.UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.productService.UpdateStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary Delete a product
// @Description Deactivate a product. Existing bills keep their copy of its details.
// @Tags products
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
