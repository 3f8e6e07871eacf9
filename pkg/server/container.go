package server

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/adapters/storage"
	"jewellery-billing-api/internal/clock"
	"jewellery-billing-api/internal/config"
	"jewellery-billing-api/internal/database"
	"jewellery-billing-api/internal/middleware"
	"jewellery-billing-api/internal/repositories"
	"jewellery-billing-api/internal/repositories/sqlite"
	"jewellery-billing-api/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Location *time.Location

	Database     *database.ConnectionManager
	Repositories repositories.RepositoryManager
	Archive      storage.FileStorage

	ProductService services.ProductService
	RateService    services.RateService
	BillingService services.BillingService
	UserService    services.UserService
	AuthService    *middleware.AuthService

	services *services.ServiceContainer
}

// NewContainer opens the database, migrating it when configured, and wires
// every service on top of it
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger := config.NewLogger(cfg.Log)
	loc := cfg.Location(logger)

	db := database.NewConnectionManager(cfg.Database.ToConnectionConfig(logger))
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	archive, err := storage.CreateFromConfig(cfg.Storage.ToStorageConfig(), logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bill archive: %w", err)
	}

	repos := sqlite.NewSQLiteRepositoryManager(db.GetDB(), logger)

	serviceContainer, err := services.NewServiceContainer(repos, &services.ServiceConfig{
		Clock:        clock.NewSystemClock(loc),
		Location:     cfg.Business.ShopLocation,
		RateCacheTTL: cfg.Business.RateCacheTTL,
		BcryptCost:   cfg.JWT.BcryptCost,
		Archive:      archive,
		Logger:       logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create service container: %w", err)
	}
	if err := serviceContainer.Validate(); err != nil {
		serviceContainer.Close()
		db.Close()
		return nil, err
	}

	authService := middleware.NewAuthService(&middleware.AuthConfig{
		JWTSecret:     cfg.JWT.Secret,
		TokenDuration: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
	}, logger)

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"database":    cfg.Database.Path,
		"storage":     cfg.Storage.Type,
		"timezone":    loc.String(),
		"mode":        config.GetDeploymentMode(),
	}).Info("Container initialized")

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Location:       loc,
		Database:       db,
		Repositories:   repos,
		Archive:        archive,
		ProductService: serviceContainer.ProductService,
		RateService:    serviceContainer.RateService,
		BillingService: serviceContainer.BillingService,
		UserService:    serviceContainer.UserService,
		AuthService:    authService,
		services:       serviceContainer,
	}, nil
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.services != nil {
		if err := c.services.Close(); err != nil {
			return fmt.Errorf("failed to close services: %w", err)
		}
	}

	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
