package main

import (
	"context"
	"errors"
	"flag"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/config"
	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/services"
	"jewellery-billing-api/pkg/server"
)

// Starting rates for a fresh shop. Staff replace them on the first working day.
var (
	defaultGoldRate    = decimal.NewFromInt(6200)
	defaultSilverRate  = decimal.NewFromInt(75)
	defaultDiamondRate = decimal.NewFromInt(50000)
	defaultGST         = decimal.NewFromInt(3)
	defaultWastage     = decimal.NewFromInt(8)
)

func main() {
	skipRates := flag.Bool("skip-rates", false, "Only bootstrap the admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Admin.Password == "" {
		logrus.Fatal("ADMIN_PASSWORD must be set to seed the admin account")
	}

	ctx := context.Background()
	container, err := server.NewContainer(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize container")
	}
	defer container.Close()

	logger := container.Logger

	admin, created, err := container.UserService.EnsureAdmin(ctx, &services.CreateUserRequest{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to ensure admin account")
	}
	logger.WithFields(logrus.Fields{
		"email":   admin.Email,
		"created": created,
	}).Info("Admin account ready")

	if *skipRates {
		return
	}

	if err := seedRates(ctx, container.RateService, admin.ID); err != nil {
		logger.WithError(err).Fatal("Failed to seed rates")
	}
	logger.Info("Seed completed successfully")
}

// seedRates records the default snapshot only when no rates exist yet
func seedRates(ctx context.Context, rates services.RateService, adminID string) error {
	_, err := rates.CurrentSnapshot(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrRateUnavailable) {
		return err
	}

	gst, wastage := defaultGST, defaultWastage
	_, err = rates.CreateRates(ctx, &services.CreateRatesRequest{
		GoldRate:              defaultGoldRate,
		SilverRate:            defaultSilverRate,
		DiamondRate:           defaultDiamondRate,
		GSTPercent:            &gst,
		DefaultWastagePercent: &wastage,
	}, &adminID)
	return err
}
