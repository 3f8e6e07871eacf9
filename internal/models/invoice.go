package models

import "fmt"

// Invoice number prefixes
const (
	InvoicePrefixBill     = "AJ"
	InvoicePrefixEstimate = "EST"
)

// InvoiceCounter is the running number for one (year, metal type) bucket
type InvoiceCounter struct {
	Year          int       `json:"year" db:"year"`
	MetalType     MetalType `json:"metal_type" db:"metal_type"`
	CurrentNumber int64     `json:"current_number" db:"current_number"`
}

// FormatInvoiceNumber renders PREFIX-TYPE-YEAR-NNNN. The number is padded to
// four digits and grows past that without truncation.
func FormatInvoiceNumber(metalType MetalType, isEstimate bool, year int, number int64) string {
	prefix := InvoicePrefixBill
	if isEstimate {
		prefix = InvoicePrefixEstimate
	}
	return fmt.Sprintf("%s-%s-%d-%04d", prefix, metalType, year, number)
}
