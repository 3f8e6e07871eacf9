package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product defaults applied when a create request leaves a field out
const (
	DefaultWastagePercent = 8
	DefaultGSTPercent     = 3
	DefaultMinStock       = 5
)

// Product represents a catalogue item priced by weight
type Product struct {
	ID             string           `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Barcode        *string          `json:"barcode,omitempty" db:"barcode"`
	Category       Category         `json:"category" db:"category"`
	Weight         decimal.Decimal  `json:"weight" db:"weight"`
	MakingCharge   decimal.Decimal  `json:"making_charge" db:"making_charge"`
	WastagePercent decimal.Decimal  `json:"wastage_percent" db:"wastage_percent"`
	GSTPercent     decimal.Decimal  `json:"gst_percent" db:"gst_percent"`
	CustomRate     *decimal.Decimal `json:"custom_rate,omitempty" db:"custom_rate"`
	Stock          int              `json:"stock" db:"stock"`
	MinStock       int              `json:"min_stock" db:"min_stock"`
	Active         bool             `json:"active" db:"active"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// NewProduct creates an active product with generated ID and the shop's default
// wastage, GST and minimum stock
func NewProduct(name string, category Category, weight decimal.Decimal) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:             uuid.New().String(),
		Name:           name,
		Category:       category,
		Weight:         weight,
		MakingCharge:   decimal.Zero,
		WastagePercent: decimal.NewFromInt(DefaultWastagePercent),
		GSTPercent:     decimal.NewFromInt(DefaultGSTPercent),
		MinStock:       DefaultMinStock,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate validates the product data
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product ID is required")
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if len(p.Name) > 255 {
		return fmt.Errorf("product name cannot exceed 255 characters")
	}

	if !p.Category.IsValid() {
		return fmt.Errorf("invalid product category: %s", p.Category)
	}

	if !p.Weight.IsPositive() {
		return fmt.Errorf("product weight must be greater than zero")
	}

	if p.MakingCharge.IsNegative() {
		return fmt.Errorf("making charge cannot be negative")
	}

	if p.WastagePercent.IsNegative() {
		return fmt.Errorf("wastage percent cannot be negative")
	}

	if p.GSTPercent.IsNegative() {
		return fmt.Errorf("GST percent cannot be negative")
	}

	if p.CustomRate != nil && p.CustomRate.IsNegative() {
		return fmt.Errorf("custom rate cannot be negative")
	}

	if p.Stock < 0 {
		return fmt.Errorf("stock cannot be negative")
	}

	if p.MinStock < 0 {
		return fmt.Errorf("minimum stock cannot be negative")
	}

	return nil
}

// SetBarcode sets the barcode; blank values clear it
func (p *Product) SetBarcode(barcode string) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		p.Barcode = nil
		return
	}
	p.Barcode = &barcode
}

// IsLowStock reports whether stock has reached the reorder level
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// HasStock reports whether quantity units can be sold
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}

// UpdateTimestamp updates the UpdatedAt timestamp
func (p *Product) UpdateTimestamp() {
	p.UpdatedAt = time.Now().UTC()
}
