package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/adapters/storage"
	"jewellery-billing-api/internal/clock"
	"jewellery-billing-api/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	ProductService   ProductService
	RateService      RateService
	BillingService   BillingService
	UserService      UserService
	InvoiceAllocator InvoiceNumberAllocator

	archive storage.FileStorage
}

// ServiceConfig holds configuration for services
type ServiceConfig struct {
	Clock        clock.Clock
	Location     string
	RateCacheTTL time.Duration
	BcryptCost   int
	// Archive receives a JSON copy of every stored bill. Optional.
	Archive storage.FileStorage
	Logger  *logrus.Logger
}

// NewServiceContainer wires every service on top of repos
func NewServiceContainer(repos repositories.RepositoryManager, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository manager cannot be nil")
	}

	if config == nil {
		config = &ServiceConfig{}
	}
	if config.Clock == nil {
		config.Clock = clock.NewSystemClock(time.UTC)
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	rateService := NewRateService(repos.Rates(), config.Clock, config.RateCacheTTL, config.Location, config.Logger)
	allocator := NewInvoiceNumberAllocator(repos.InvoiceCounters(), config.Clock, config.Logger)

	return &ServiceContainer{
		ProductService:   NewProductService(repos.Products(), rateService, config.Logger),
		RateService:      rateService,
		BillingService:   NewBillingService(repos, rateService, allocator, config.Archive, config.Clock, config.Logger),
		UserService:      NewUserService(repos.Users(), config.BcryptCost, config.Logger),
		InvoiceAllocator: allocator,
		archive:          config.Archive,
	}, nil
}

// Validate validates that all services are properly initialized
func (sc *ServiceContainer) Validate() error {
	if sc.ProductService == nil {
		return fmt.Errorf("product service is nil")
	}
	if sc.RateService == nil {
		return fmt.Errorf("rate service is nil")
	}
	if sc.BillingService == nil {
		return fmt.Errorf("billing service is nil")
	}
	if sc.UserService == nil {
		return fmt.Errorf("user service is nil")
	}
	if sc.InvoiceAllocator == nil {
		return fmt.Errorf("invoice allocator is nil")
	}

	return nil
}

// Close releases the bill archive if one was configured
func (sc *ServiceContainer) Close() error {
	if sc.archive != nil {
		return sc.archive.Close()
	}
	return nil
}
