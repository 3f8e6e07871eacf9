package sqlite

import (
	"context"
	"database/sql"
	"time"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

const rateColumns = `id, gold_rate, silver_rate, diamond_rate, gst_percent,
	default_wastage_percent, location, effective_date, created_by, created_at`

// RateRepository implements the RateRepository interface for SQLite.
// Snapshots are only ever inserted.
type RateRepository struct {
	*BaseRepository[models.RateSnapshot]
}

// NewRateRepository creates a new SQLite rate snapshot repository
func NewRateRepository(db *sql.DB, logger *logrus.Logger) repositories.RateRepository {
	return &RateRepository{
		BaseRepository: NewBaseRepository[models.RateSnapshot](db, "rate_snapshots", "rate snapshot", logger),
	}
}

func scanRate(row rowScanner) (*models.RateSnapshot, error) {
	snapshot := &models.RateSnapshot{}
	err := row.Scan(
		&snapshot.ID,
		&snapshot.GoldRate,
		&snapshot.SilverRate,
		&snapshot.DiamondRate,
		&snapshot.GSTPercent,
		&snapshot.DefaultWastagePercent,
		&snapshot.Location,
		&snapshot.EffectiveDate,
		&snapshot.CreatedBy,
		&snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Create appends a snapshot
func (r *RateRepository) Create(ctx context.Context, snapshot *models.RateSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return repositories.ValidationError("rate snapshot", snapshot.ID, err)
	}

	query := `INSERT INTO rate_snapshots (` + rateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		snapshot.ID,
		snapshot.GoldRate,
		snapshot.SilverRate,
		snapshot.DiamondRate,
		snapshot.GSTPercent,
		snapshot.DefaultWastagePercent,
		snapshot.Location,
		snapshot.EffectiveDate.UTC(),
		snapshot.CreatedBy,
		snapshot.CreatedAt.UTC(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return repositories.DuplicateError("rate snapshot", "id", snapshot.ID)
		}
		if isCheckViolation(err) {
			return repositories.ConstraintError("rate snapshot", "created_by", err)
		}
		return err
	}

	return nil
}

// GetByID retrieves a snapshot by ID
func (r *RateRepository) GetByID(ctx context.Context, id string) (*models.RateSnapshot, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + rateColumns + ` FROM rate_snapshots WHERE id = ?`

	snapshot, err := scanRate(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("rate snapshot", id)
		}
		return nil, repositories.NewRepositoryError("get_by_id", "rate snapshot", id, err)
	}

	return snapshot, nil
}

// LatestBetween returns the most recent snapshot effective in [start, end).
// Ties on effective date go to the snapshot recorded last.
func (r *RateRepository) LatestBetween(ctx context.Context, start, end time.Time) (*models.RateSnapshot, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM rate_snapshots
		WHERE effective_date >= ? AND effective_date < ?
		ORDER BY effective_date DESC, created_at DESC
		LIMIT 1`

	snapshot, err := scanRate(r.executeQueryRow(ctx, "latest_between", query, start.UTC(), end.UTC()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundByError("rate snapshot", "effective date from", start.Format(time.RFC3339))
		}
		return nil, repositories.NewRepositoryError("latest_between", "rate snapshot", "", err)
	}

	return snapshot, nil
}

// LatestBefore returns the most recent snapshot effective before end
func (r *RateRepository) LatestBefore(ctx context.Context, end time.Time) (*models.RateSnapshot, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM rate_snapshots
		WHERE effective_date < ?
		ORDER BY effective_date DESC, created_at DESC
		LIMIT 1`

	snapshot, err := scanRate(r.executeQueryRow(ctx, "latest_before", query, end.UTC()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundByError("rate snapshot", "effective date before", end.Format(time.RFC3339))
		}
		return nil, repositories.NewRepositoryError("latest_before", "rate snapshot", "", err)
	}

	return snapshot, nil
}

// List returns snapshots newest first
func (r *RateRepository) List(ctx context.Context, limit int) ([]*models.RateSnapshot, error) {
	page, pageArgs := pageClause(limit, 0, 30, 365)

	query := `SELECT ` + rateColumns + ` FROM rate_snapshots ORDER BY effective_date DESC, created_at DESC` + page

	rows, err := r.executeQuery(ctx, "list", query, pageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []*models.RateSnapshot{}
	for rows.Next() {
		snapshot, err := scanRate(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", "rate snapshot", "", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", "rate snapshot", "", err)
	}

	return snapshots, nil
}
