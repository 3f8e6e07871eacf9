package repositories

import (
	"context"
	"time"

	"jewellery-billing-api/internal/models"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	Category        *models.Category
	LowStockOnly    bool
	IncludeInactive bool
	Limit           int
	Offset          int
}

// BillFilter narrows bill listings. StartDate is inclusive, EndDate exclusive.
type BillFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    *models.PaymentStatus
	Kind      *models.DocumentKind
	Limit     int
	Offset    int
}

// ProductRepository defines operations specific to product management
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *models.Product) error

	// GetByID retrieves a product by its ID, including inactive ones
	GetByID(ctx context.Context, id string) (*models.Product, error)

	// GetByBarcode retrieves an active product by barcode
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)

	// Update updates an existing product
	Update(ctx context.Context, product *models.Product) error

	// SetStock overwrites the stock level of a product
	SetStock(ctx context.Context, id string, stock int) error

	// DecrementStock removes quantity units, failing with ErrInsufficientStock
	// instead of letting stock go negative
	DecrementStock(ctx context.Context, id string, quantity int) error

	// SoftDelete marks a product inactive
	SoftDelete(ctx context.Context, id string) error

	// List retrieves products matching the filter
	List(ctx context.Context, filter ProductFilter) ([]*models.Product, error)

	// Count returns the number of products matching the filter, ignoring paging
	Count(ctx context.Context, filter ProductFilter) (int64, error)

	// Stats summarises active products by category and low stock
	Stats(ctx context.Context) (*models.ProductStats, error)

	// Exists checks if a product with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)
}

// RateRepository stores the append-only log of rate snapshots
type RateRepository interface {
	// Create appends a snapshot
	Create(ctx context.Context, snapshot *models.RateSnapshot) error

	// GetByID retrieves a snapshot by ID
	GetByID(ctx context.Context, id string) (*models.RateSnapshot, error)

	// LatestBetween returns the most recent snapshot effective in [start, end)
	LatestBetween(ctx context.Context, start, end time.Time) (*models.RateSnapshot, error)

	// LatestBefore returns the most recent snapshot effective before end
	LatestBefore(ctx context.Context, end time.Time) (*models.RateSnapshot, error)

	// List returns snapshots newest first
	List(ctx context.Context, limit int) ([]*models.RateSnapshot, error)
}

// BillRepository stores issued bills and estimates together with their items
type BillRepository interface {
	// Create inserts the bill and all of its items
	Create(ctx context.Context, bill *models.Bill) error

	// GetByID retrieves a bill with its items
	GetByID(ctx context.Context, id string) (*models.Bill, error)

	// GetByNumber retrieves a bill with its items by invoice number
	GetByNumber(ctx context.Context, number string) (*models.Bill, error)

	// List retrieves bills matching the filter, newest first
	List(ctx context.Context, filter BillFilter) ([]*models.Bill, error)

	// Count returns the number of bills matching the filter, ignoring paging
	Count(ctx context.Context, filter BillFilter) (int64, error)

	// SalesBetween sums grand totals of settled bills created in [start, end)
	SalesBetween(ctx context.Context, start, end time.Time) (*models.DailySales, error)
}

// InvoiceCounterRepository hands out invoice sequence numbers
type InvoiceCounterRepository interface {
	// Next atomically increments the counter for (year, metalType) and
	// returns the new value. The first call for a key returns 1.
	Next(ctx context.Context, year int, metalType models.MetalType) (int64, error)

	// Get returns the current counter without changing it
	Get(ctx context.Context, year int, metalType models.MetalType) (*models.InvoiceCounter, error)

	// ListByYear returns all counters for a year
	ListByYear(ctx context.Context, year int) ([]*models.InvoiceCounter, error)
}

// UserRepository defines operations specific to user management
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by normalised email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns all users ordered by name
	List(ctx context.Context) ([]*models.User, error)

	// Count returns the number of users
	Count(ctx context.Context) (int64, error)
}
