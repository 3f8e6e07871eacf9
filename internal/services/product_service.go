package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"
)

// productService implements the ProductService interface
type productService struct {
	productRepo repositories.ProductRepository
	rates       RateService
	validator   *validator.Validate
	logger      *logrus.Logger
}

// NewProductService creates a new product service instance. rates supplies
// default wastage and GST for new products and may be nil.
func NewProductService(productRepo repositories.ProductRepository, rates RateService, logger *logrus.Logger) ProductService {
	if logger == nil {
		logger = logrus.New()
	}
	return &productService{
		productRepo: productRepo,
		rates:       rates,
		validator:   validator.New(),
		logger:      logger,
	}
}

// CreateProduct creates a new product. Wastage and GST fall back to the
// current rate snapshot's defaults, then to the shop defaults.
func (s *productService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if req == nil {
		return nil, validationErrorf("", "create product request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("", err)
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, newValidationError("category", err)
	}

	product := models.NewProduct(strings.TrimSpace(req.Name), category, req.Weight)
	if req.Barcode != nil {
		product.SetBarcode(*req.Barcode)
	}
	if req.MakingCharge != nil {
		product.MakingCharge = *req.MakingCharge
	}

	wastage, gst := s.defaultPercents(ctx)
	product.WastagePercent = wastage
	product.GSTPercent = gst
	if req.WastagePercent != nil {
		product.WastagePercent = *req.WastagePercent
	}
	if req.GSTPercent != nil {
		product.GSTPercent = *req.GSTPercent
	}

	product.CustomRate = normaliseCustomRate(req.CustomRate)
	product.Stock = req.Stock
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}

	if err := product.Validate(); err != nil {
		return nil, newValidationError("product", err)
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"category":   product.Category,
	}).Info("Product created")

	return product, nil
}

// defaultPercents returns the wastage and GST percentages new products start with
func (s *productService) defaultPercents(ctx context.Context) (decimal.Decimal, decimal.Decimal) {
	wastage := decimal.NewFromInt(models.DefaultWastagePercent)
	gst := decimal.NewFromInt(models.DefaultGSTPercent)

	if s.rates == nil {
		return wastage, gst
	}

	snapshot, err := s.rates.CurrentSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, ErrRateUnavailable) {
			s.logger.WithError(err).Warn("Could not load rate snapshot for product defaults")
		}
		return wastage, gst
	}

	return snapshot.DefaultWastagePercent, snapshot.GSTPercent
}

// normaliseCustomRate treats a missing, zero or negative custom rate as unset
// so the product follows the daily metal rate
func normaliseCustomRate(rate *decimal.Decimal) *decimal.Decimal {
	if rate == nil || !rate.IsPositive() {
		return nil
	}
	r := *rate
	return &r
}

// GetProduct retrieves a product by ID
func (s *productService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationErrorf("id", "product ID cannot be empty")
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// GetProductByBarcode retrieves an active product by its barcode
func (s *productService) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	if strings.TrimSpace(barcode) == "" {
		return nil, validationErrorf("barcode", "barcode cannot be empty")
	}

	product, err := s.productRepo.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to get product by barcode: %w", err)
	}

	return product, nil
}

// UpdateProduct applies the fields present in req
func (s *productService) UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error) {
	if req == nil {
		return nil, validationErrorf("", "update product request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("", err)
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Barcode != nil {
		product.SetBarcode(*req.Barcode)
	}
	if req.Category != nil {
		category, err := models.ParseCategory(*req.Category)
		if err != nil {
			return nil, newValidationError("category", err)
		}
		product.Category = category
	}
	if req.Weight != nil {
		product.Weight = *req.Weight
	}
	if req.MakingCharge != nil {
		product.MakingCharge = *req.MakingCharge
	}
	if req.WastagePercent != nil {
		product.WastagePercent = *req.WastagePercent
	}
	if req.GSTPercent != nil {
		product.GSTPercent = *req.GSTPercent
	}
	if req.CustomRate != nil {
		product.CustomRate = normaliseCustomRate(req.CustomRate)
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := product.Validate(); err != nil {
		return nil, newValidationError("product", err)
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// UpdateStock overwrites the stock level after a stock count or delivery
func (s *productService) UpdateStock(ctx context.Context, id string, req *UpdateStockRequest) (*models.Product, error) {
	if req == nil {
		return nil, validationErrorf("", "update stock request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("stock", err)
	}

	if strings.TrimSpace(id) == "" {
		return nil, validationErrorf("id", "product ID cannot be empty")
	}

	if err := s.productRepo.SetStock(ctx, id, *req.Stock); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if product.IsLowStock() {
		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"name":       product.Name,
			"stock":      product.Stock,
			"min_stock":  product.MinStock,
		}).Warn("Product stock at or below reorder level")
	}

	return product, nil
}

// DeleteProduct soft deletes a product. Past bills keep referencing it.
func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationErrorf("id", "product ID cannot be empty")
	}

	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.WithField("product_id", id).Info("Product deactivated")
	return nil
}

// ListProducts lists active products and the total matching the filters
func (s *productService) ListProducts(ctx context.Context, filters *ProductFilters) ([]*models.Product, int64, error) {
	filter := repositories.ProductFilter{}

	if filters != nil {
		if filters.Category != nil && *filters.Category != "" {
			category, err := models.ParseCategory(*filters.Category)
			if err != nil {
				return nil, 0, newValidationError("category", err)
			}
			filter.Category = &category
		}
		if filters.Limit < 0 || filters.Offset < 0 {
			return nil, 0, validationErrorf("limit", "limit and offset cannot be negative")
		}
		filter.LowStockOnly = filters.LowStock
		filter.Limit = filters.Limit
		filter.Offset = filters.Offset
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, total, nil
}

// GetProductStats summarises the active catalogue
func (s *productService) GetProductStats(ctx context.Context) (*models.ProductStats, error) {
	stats, err := s.productRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get product stats: %w", err)
	}
	return stats, nil
}
