package services

import (
	"errors"
	"fmt"

	"jewellery-billing-api/internal/pricing"
	"jewellery-billing-api/internal/repositories"
)

var (
	// ErrRateUnavailable is returned when pricing is attempted before any rates exist
	ErrRateUnavailable = pricing.ErrRateUnavailable

	// ErrValidation marks malformed input rejected before any store access
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError wraps the reason a request was rejected
type ValidationError struct {
	Field string
	Err   error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("validation failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func validationErrorf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// ProductNotFoundError is returned when a bill line references a product
// that does not exist or has been deactivated
type ProductNotFoundError struct {
	ID string
}

// Error implements the error interface
func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ID)
}

// Unwrap lets repositories.IsNotFound match
func (e *ProductNotFoundError) Unwrap() error {
	return repositories.ErrNotFound
}

// InsufficientStockError is returned when a bill asks for more units than
// are on hand
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

// Unwrap lets repositories.IsInsufficientStock match
func (e *InsufficientStockError) Unwrap() error {
	return repositories.ErrInsufficientStock
}
