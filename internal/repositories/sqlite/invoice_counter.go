package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// InvoiceCounterRepository implements the InvoiceCounterRepository interface for SQLite
type InvoiceCounterRepository struct {
	*BaseRepository[models.InvoiceCounter]
}

// NewInvoiceCounterRepository creates a new SQLite invoice counter repository
func NewInvoiceCounterRepository(db *sql.DB, logger *logrus.Logger) repositories.InvoiceCounterRepository {
	return &InvoiceCounterRepository{
		BaseRepository: NewBaseRepository[models.InvoiceCounter](db, "invoice_counters", "invoice counter", logger),
	}
}

func counterKey(year int, metalType models.MetalType) string {
	return fmt.Sprintf("%d/%s", year, metalType)
}

// Next creates the counter at 1 or increments it, returning the new value in
// the same statement. SQLite serialises writers, so two callers can never
// observe the same value.
func (r *InvoiceCounterRepository) Next(ctx context.Context, year int, metalType models.MetalType) (int64, error) {
	if !metalType.IsValid() {
		return 0, repositories.ValidationError("invoice counter", counterKey(year, metalType),
			fmt.Errorf("invalid metal type: %s", metalType))
	}

	query := `
		INSERT INTO invoice_counters (year, metal_type, current_number)
		VALUES (?, ?, 1)
		ON CONFLICT (year, metal_type)
		DO UPDATE SET current_number = current_number + 1
		RETURNING current_number`

	var next int64
	if err := r.executeQueryRow(ctx, "next", query, year, metalType).Scan(&next); err != nil {
		return 0, repositories.NewRepositoryError("next", "invoice counter", counterKey(year, metalType), err)
	}

	return next, nil
}

// Get returns the current counter without changing it
func (r *InvoiceCounterRepository) Get(ctx context.Context, year int, metalType models.MetalType) (*models.InvoiceCounter, error) {
	query := `SELECT year, metal_type, current_number FROM invoice_counters WHERE year = ? AND metal_type = ?`

	counter := &models.InvoiceCounter{}
	err := r.executeQueryRow(ctx, "get", query, year, metalType).Scan(
		&counter.Year,
		&counter.MetalType,
		&counter.CurrentNumber,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("invoice counter", counterKey(year, metalType))
		}
		return nil, repositories.NewRepositoryError("get", "invoice counter", counterKey(year, metalType), err)
	}

	return counter, nil
}

// ListByYear returns all counters for a year ordered by metal type
func (r *InvoiceCounterRepository) ListByYear(ctx context.Context, year int) ([]*models.InvoiceCounter, error) {
	query := `SELECT year, metal_type, current_number FROM invoice_counters WHERE year = ? ORDER BY metal_type`

	rows, err := r.executeQuery(ctx, "list_by_year", query, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := []*models.InvoiceCounter{}
	for rows.Next() {
		counter := &models.InvoiceCounter{}
		if err := rows.Scan(&counter.Year, &counter.MetalType, &counter.CurrentNumber); err != nil {
			return nil, repositories.NewRepositoryError("list_by_year", "invoice counter", "", err)
		}
		counters = append(counters, counter)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list_by_year", "invoice counter", "", err)
	}

	return counters, nil
}
