package models

import (
	"github.com/shopspring/decimal"
)

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return ve.Message
}

// DailySales is the takings summary for one day
type DailySales struct {
	Date       string          `json:"date"`
	TotalSales decimal.Decimal `json:"total_sales"`
	BillCount  int             `json:"bill_count"`
}

// LowStockProduct is the short form of a product at or below its reorder level
type LowStockProduct struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Stock    int      `json:"stock"`
	MinStock int      `json:"min_stock"`
}

// ProductStats summarises the active catalogue
type ProductStats struct {
	TotalProducts    int               `json:"total_products"`
	ByCategory       map[Category]int  `json:"by_category"`
	LowStockProducts []LowStockProduct `json:"low_stock_products"`
	LowStockCount    int               `json:"low_stock_count"`
}
