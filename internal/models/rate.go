package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLocation is the shop location recorded on snapshots
const DefaultLocation = "Coimbatore"

// RateSnapshot is one entry in the append-only log of daily metal rates.
// Rates are per gram for gold and silver and per carat for diamond.
type RateSnapshot struct {
	ID                    string          `json:"id" db:"id"`
	GoldRate              decimal.Decimal `json:"gold_rate" db:"gold_rate"`
	SilverRate            decimal.Decimal `json:"silver_rate" db:"silver_rate"`
	DiamondRate           decimal.Decimal `json:"diamond_rate" db:"diamond_rate"`
	GSTPercent            decimal.Decimal `json:"gst_percent" db:"gst_percent"`
	DefaultWastagePercent decimal.Decimal `json:"default_wastage_percent" db:"default_wastage_percent"`
	Location              string          `json:"location" db:"location"`
	EffectiveDate         time.Time       `json:"effective_date" db:"effective_date"`
	CreatedBy             *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
}

// NewRateSnapshot creates a snapshot effective at the given instant with the
// default GST and wastage percentages
func NewRateSnapshot(gold, silver, diamond decimal.Decimal, effective time.Time) *RateSnapshot {
	return &RateSnapshot{
		ID:                    uuid.New().String(),
		GoldRate:              gold,
		SilverRate:            silver,
		DiamondRate:           diamond,
		GSTPercent:            decimal.NewFromInt(DefaultGSTPercent),
		DefaultWastagePercent: decimal.NewFromInt(DefaultWastagePercent),
		Location:              DefaultLocation,
		EffectiveDate:         effective.UTC(),
		CreatedAt:             time.Now().UTC(),
	}
}

// Supersede returns a new snapshot carrying the same rates, effective at t.
// Settings changes append a copy rather than editing history.
func (r *RateSnapshot) Supersede(t time.Time) *RateSnapshot {
	next := *r
	next.ID = uuid.New().String()
	next.EffectiveDate = t.UTC()
	next.CreatedAt = time.Now().UTC()
	next.CreatedBy = nil
	return &next
}

// Validate validates the snapshot data
func (r *RateSnapshot) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rate snapshot ID is required")
	}

	if !r.GoldRate.IsPositive() {
		return fmt.Errorf("gold rate must be greater than zero")
	}

	if !r.SilverRate.IsPositive() {
		return fmt.Errorf("silver rate must be greater than zero")
	}

	if !r.DiamondRate.IsPositive() {
		return fmt.Errorf("diamond rate must be greater than zero")
	}

	if r.GSTPercent.IsNegative() {
		return fmt.Errorf("GST percent cannot be negative")
	}

	if r.DefaultWastagePercent.IsNegative() {
		return fmt.Errorf("default wastage percent cannot be negative")
	}

	if r.EffectiveDate.IsZero() {
		return fmt.Errorf("effective date is required")
	}

	return nil
}
