package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/clock"
	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"
)

// invoiceNumberAllocator implements InvoiceNumberAllocator on top of the
// counter table. Bills and estimates share one counter per (year, metal
// type), so AJ-GOLD-2026-0004 and EST-GOLD-2026-0004 never both exist.
type invoiceNumberAllocator struct {
	counterRepo repositories.InvoiceCounterRepository
	clock       clock.Clock
	logger      *logrus.Logger
}

// NewInvoiceNumberAllocator creates an allocator that takes the year from clk
func NewInvoiceNumberAllocator(counterRepo repositories.InvoiceCounterRepository, clk clock.Clock, logger *logrus.Logger) InvoiceNumberAllocator {
	if logger == nil {
		logger = logrus.New()
	}
	return &invoiceNumberAllocator{
		counterRepo: counterRepo,
		clock:       clk,
		logger:      logger,
	}
}

// NextNumber allocates and formats the next invoice number
func (a *invoiceNumberAllocator) NextNumber(ctx context.Context, metalType models.MetalType, isEstimate bool) (string, error) {
	if !metalType.IsValid() {
		return "", validationErrorf("metal_type", "invalid metal type: %s", metalType)
	}

	year := clock.Year(a.clock)

	next, err := a.counterRepo.Next(ctx, year, metalType)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	number := models.FormatInvoiceNumber(metalType, isEstimate, year, next)

	a.logger.WithFields(logrus.Fields{
		"year":       year,
		"metal_type": metalType,
		"sequence":   next,
		"number":     number,
	}).Debug("Invoice number allocated")

	return number, nil
}
