package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/clock"
	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"
)

// rateService implements the RateService interface
type rateService struct {
	rateRepo repositories.RateRepository
	clock    clock.Clock
	cache    *cache.Cache
	location string
	logger   *logrus.Logger
}

// NewRateService creates a rate service. The current snapshot is cached for
// cacheTTL and the cache is flushed whenever a snapshot is appended.
func NewRateService(rateRepo repositories.RateRepository, clk clock.Clock, cacheTTL time.Duration, location string, logger *logrus.Logger) RateService {
	if clk == nil {
		clk = clock.NewSystemClock(time.UTC)
	}
	if location == "" {
		location = models.DefaultLocation
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &rateService{
		rateRepo: rateRepo,
		clock:    clk,
		cache:    cache.New(cacheTTL, 2*cacheTTL),
		location: location,
		logger:   logger,
	}
}

func (s *rateService) cacheKey() string {
	return "current:" + s.clock.Now().Format("2006-01-02")
}

// CurrentSnapshot returns today's latest snapshot or the latest before
// today, served from the cache for up to the cache TTL
func (s *rateService) CurrentSnapshot(ctx context.Context) (*models.RateSnapshot, error) {
	if cached, found := s.cache.Get(s.cacheKey()); found {
		snapshot := *cached.(*models.RateSnapshot)
		return &snapshot, nil
	}
	return s.LatestSnapshot(ctx)
}

// LatestSnapshot resolves the current snapshot from the store, skipping the
// cache, and refreshes the cache with the result
func (s *rateService) LatestSnapshot(ctx context.Context) (*models.RateSnapshot, error) {
	start, end := clock.DayBounds(s.clock)

	snapshot, err := s.rateRepo.LatestBetween(ctx, start, end)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load today's rates: %w", err)
	}

	if snapshot == nil {
		snapshot, err = s.rateRepo.LatestBefore(ctx, end)
		if err != nil {
			if repositories.IsNotFound(err) {
				return nil, ErrRateUnavailable
			}
			return nil, fmt.Errorf("failed to load latest rates: %w", err)
		}
	}

	cached := *snapshot
	s.cache.SetDefault(s.cacheKey(), &cached)

	return snapshot, nil
}

// TodaySnapshot returns the latest snapshot effective today
func (s *rateService) TodaySnapshot(ctx context.Context) (*models.RateSnapshot, error) {
	start, end := clock.DayBounds(s.clock)

	snapshot, err := s.rateRepo.LatestBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's rates: %w", err)
	}

	return snapshot, nil
}

// CreateRates appends a snapshot. The effective date defaults to now and
// may be in the past but not in the future.
func (s *rateService) CreateRates(ctx context.Context, req *CreateRatesRequest, createdBy *string) (*models.RateSnapshot, error) {
	if req == nil {
		return nil, validationErrorf("", "create rates request cannot be nil")
	}

	now := s.clock.Now()
	effective := now
	if req.EffectiveDate != nil && !req.EffectiveDate.IsZero() {
		effective = *req.EffectiveDate
		if effective.After(now) {
			return nil, validationErrorf("effective_date", "effective date %s is in the future", effective.Format(time.RFC3339))
		}
	}

	snapshot := models.NewRateSnapshot(req.GoldRate, req.SilverRate, req.DiamondRate, effective)
	snapshot.Location = s.location
	snapshot.CreatedBy = createdBy
	if req.GSTPercent != nil {
		snapshot.GSTPercent = *req.GSTPercent
	}
	if req.DefaultWastagePercent != nil {
		snapshot.DefaultWastagePercent = *req.DefaultWastagePercent
	}

	if err := snapshot.Validate(); err != nil {
		return nil, newValidationError("rates", err)
	}

	if err := s.rateRepo.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create rates: %w", err)
	}

	s.cache.Flush()

	s.logger.WithFields(logrus.Fields{
		"snapshot_id":    snapshot.ID,
		"gold_rate":      snapshot.GoldRate.String(),
		"silver_rate":    snapshot.SilverRate.String(),
		"diamond_rate":   snapshot.DiamondRate.String(),
		"effective_date": snapshot.EffectiveDate,
	}).Info("Rates recorded")

	return snapshot, nil
}

// UpdateSettings appends a copy of today's snapshot with new GST and default
// wastage percentages. Earlier snapshots stay untouched.
func (s *rateService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest, createdBy *string) (*models.RateSnapshot, error) {
	if req == nil || (req.GSTPercent == nil && req.DefaultWastagePercent == nil) {
		return nil, validationErrorf("", "gst_percent or default_wastage_percent is required")
	}

	today, err := s.TodaySnapshot(ctx)
	if err != nil {
		return nil, err
	}

	next := today.Supersede(s.clock.Now())
	next.CreatedBy = createdBy
	if req.GSTPercent != nil {
		next.GSTPercent = *req.GSTPercent
	}
	if req.DefaultWastagePercent != nil {
		next.DefaultWastagePercent = *req.DefaultWastagePercent
	}

	if err := next.Validate(); err != nil {
		return nil, newValidationError("settings", err)
	}

	if err := s.rateRepo.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.cache.Flush()

	s.logger.WithFields(logrus.Fields{
		"snapshot_id":     next.ID,
		"supersedes":      today.ID,
		"gst_percent":     next.GSTPercent.String(),
		"wastage_percent": next.DefaultWastagePercent.String(),
	}).Info("Rate settings updated")

	return next, nil
}

// ListRates returns the snapshot history newest first
func (s *rateService) ListRates(ctx context.Context, limit int) ([]*models.RateSnapshot, error) {
	if limit < 0 {
		return nil, validationErrorf("limit", "limit cannot be negative")
	}

	snapshots, err := s.rateRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}

	return snapshots, nil
}

// percentOrDefault returns *p when set, otherwise def
func percentOrDefault(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if p != nil {
		return *p
	}
	return def
}
