package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/pricing"
)

// ProductService defines the interface for product catalogue operations
type ProductService interface {
	CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error)
	UpdateStock(ctx context.Context, id string, req *UpdateStockRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, filters *ProductFilters) ([]*models.Product, int64, error)
	GetProductStats(ctx context.Context) (*models.ProductStats, error)
}

// RateService manages the append-only log of metal rates
type RateService interface {
	// CurrentSnapshot returns the latest snapshot effective today, falling
	// back to the latest one overall. ErrRateUnavailable when none exist.
	CurrentSnapshot(ctx context.Context) (*models.RateSnapshot, error)

	// LatestSnapshot is CurrentSnapshot read from the store, never the
	// cache. Snapshots recorded by another process are visible at once.
	LatestSnapshot(ctx context.Context) (*models.RateSnapshot, error)

	// TodaySnapshot returns the latest snapshot effective today only
	TodaySnapshot(ctx context.Context) (*models.RateSnapshot, error)

	CreateRates(ctx context.Context, req *CreateRatesRequest, createdBy *string) (*models.RateSnapshot, error)
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest, createdBy *string) (*models.RateSnapshot, error)
	ListRates(ctx context.Context, limit int) ([]*models.RateSnapshot, error)
}

// InvoiceNumberAllocator issues unique sequential invoice numbers
type InvoiceNumberAllocator interface {
	// NextNumber increments the counter for the current year and metalType
	// and renders the invoice number. Called with a transaction context it
	// takes part in that transaction.
	NextNumber(ctx context.Context, metalType models.MetalType, isEstimate bool) (string, error)
}

// BillingService creates and reads bills and estimates
type BillingService interface {
	CreateDocument(ctx context.Context, req *CreateBillRequest, createdBy *string) (*models.Bill, error)
	QuoteLine(ctx context.Context, req *QuoteLineRequest) (*LineQuote, error)
	GetBill(ctx context.Context, id string) (*models.Bill, error)
	GetBillByNumber(ctx context.Context, number string) (*models.Bill, error)
	ListBills(ctx context.Context, filters *BillFilters) ([]*models.Bill, int64, error)
	TodaySales(ctx context.Context) (*models.DailySales, error)
	GetBillDocument(ctx context.Context, id string) ([]byte, error)
}

// UserService manages shop accounts
type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	// EnsureAdmin creates the admin account unless a user with that email exists
	EnsureAdmin(ctx context.Context, req *CreateUserRequest) (*models.User, bool, error)
}

// Request/Response types

type CreateProductRequest struct {
	Name           string           `json:"name" validate:"required,min=1,max=255"`
	Barcode        *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Category       string           `json:"category" validate:"required"`
	Weight         decimal.Decimal  `json:"weight"`
	MakingCharge   *decimal.Decimal `json:"making_charge,omitempty"`
	WastagePercent *decimal.Decimal `json:"wastage_percent,omitempty"`
	GSTPercent     *decimal.Decimal `json:"gst_percent,omitempty"`
	CustomRate     *decimal.Decimal `json:"custom_rate,omitempty"`
	Stock          int              `json:"stock" validate:"min=0"`
	MinStock       *int             `json:"min_stock,omitempty" validate:"omitempty,min=0"`
}

type UpdateProductRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Barcode        *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Category       *string          `json:"category,omitempty"`
	Weight         *decimal.Decimal `json:"weight,omitempty"`
	MakingCharge   *decimal.Decimal `json:"making_charge,omitempty"`
	WastagePercent *decimal.Decimal `json:"wastage_percent,omitempty"`
	GSTPercent     *decimal.Decimal `json:"gst_percent,omitempty"`
	CustomRate     *decimal.Decimal `json:"custom_rate,omitempty"`
	Stock          *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	MinStock       *int             `json:"min_stock,omitempty" validate:"omitempty,min=0"`
	Active         *bool            `json:"active,omitempty"`
}

type UpdateStockRequest struct {
	Stock *int `json:"stock" validate:"required,min=0"`
}

type ProductFilters struct {
	Category *string `json:"category,omitempty"`
	LowStock bool    `json:"low_stock,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

type CreateRatesRequest struct {
	GoldRate              decimal.Decimal  `json:"gold_rate"`
	SilverRate            decimal.Decimal  `json:"silver_rate"`
	DiamondRate           decimal.Decimal  `json:"diamond_rate"`
	GSTPercent            *decimal.Decimal `json:"gst_percent,omitempty"`
	DefaultWastagePercent *decimal.Decimal `json:"default_wastage_percent,omitempty"`
	EffectiveDate         *time.Time       `json:"effective_date,omitempty"`
}

type UpdateSettingsRequest struct {
	GSTPercent            *decimal.Decimal `json:"gst_percent,omitempty"`
	DefaultWastagePercent *decimal.Decimal `json:"default_wastage_percent,omitempty"`
}

type CreateBillRequest struct {
	CustomerName  string               `json:"customer_name" validate:"max=255"`
	CustomerPhone *string              `json:"customer_phone,omitempty"`
	Items         []BillLineRequest    `json:"items" validate:"required,min=1,dive"`
	Discount      *decimal.Decimal     `json:"discount,omitempty"`
	Type          models.DocumentKind  `json:"type"`
	PaymentStatus models.PaymentStatus `json:"payment_status,omitempty"`
	PaymentMethod models.PaymentMethod `json:"payment_method,omitempty"`
}

// BillLineRequest asks for quantity units of a product. A zero quantity
// means one. Override fields replace the product's own values when present,
// including explicit zeros.
type BillLineRequest struct {
	ProductID      string           `json:"product_id" validate:"required"`
	Quantity       int              `json:"quantity" validate:"min=0"`
	WastagePercent *decimal.Decimal `json:"wastage_percent,omitempty"`
	GSTPercent     *decimal.Decimal `json:"gst_percent,omitempty"`
	MakingCharge   *decimal.Decimal `json:"making_charge,omitempty"`
}

type QuoteLineRequest struct {
	BillLineRequest
}

// LineQuote is a priced line that is not stored anywhere
type LineQuote struct {
	Product        QuotedProduct   `json:"product"`
	WastagePercent decimal.Decimal `json:"wastage_percent"`
	GSTPercent     decimal.Decimal `json:"gst_percent"`
	MakingCharge   decimal.Decimal `json:"making_charge"`
	Quantity       int             `json:"quantity"`
	pricing.LineItemCalculation
}

type QuotedProduct struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category models.Category `json:"category"`
	Weight   decimal.Decimal `json:"weight"`
}

type BillFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    *models.PaymentStatus
	Type      *models.DocumentKind
	Limit     int
	Offset    int
}

type CreateUserRequest struct {
	Name     string      `json:"name" validate:"required,min=1,max=255"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=admin staff"`
}
