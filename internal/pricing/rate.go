package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"jewellery-billing-api/internal/models"
)

// ErrRateUnavailable is returned when no rate snapshot has ever been recorded
var ErrRateUnavailable = errors.New("no metal rates available: set today's rates first")

// ResolveRate picks the per-unit rate for a product. A custom rate on the
// product overrides the snapshot, but pricing still requires that some
// snapshot exists.
func ResolveRate(product *models.Product, snapshot *models.RateSnapshot) (decimal.Decimal, error) {
	if snapshot == nil {
		return decimal.Zero, ErrRateUnavailable
	}

	if product.CustomRate != nil {
		return *product.CustomRate, nil
	}

	switch product.Category {
	case models.CategoryGold:
		return snapshot.GoldRate, nil
	case models.CategorySilver:
		return snapshot.SilverRate, nil
	case models.CategoryDiamond:
		return snapshot.DiamondRate, nil
	}

	return decimal.Zero, fmt.Errorf("no rate for category %q", product.Category)
}
