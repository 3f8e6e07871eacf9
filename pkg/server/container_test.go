package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"jewellery-billing-api/internal/config"
	"jewellery-billing-api/internal/services"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func testConfig(t *testing.T, storageType string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment: "test",
		Port:        "8080",
		Database: config.DatabaseConfig{
			Path:         filepath.Join(dir, "container.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			BusyTimeout:  5 * time.Second,
			AutoMigrate:  true,
		},
		Storage:  config.StorageConfig{Type: storageType, LocalPath: filepath.Join(dir, "files")},
		JWT:      config.JWTConfig{Secret: "container-test", ExpiryHours: 1, BcryptCost: bcrypt.MinCost},
		Business: config.BusinessConfig{Timezone: "Asia/Kolkata", ShopLocation: "Coimbatore", RateCacheTTL: time.Minute},
		Log:      config.LogConfig{Level: "warn", Format: "text"},
	}
}

// TestNewContainer verifies that the container can be created successfully
func TestNewContainer(t *testing.T) {
	for _, storageType := range []string{"local", "memory", "none"} {
		t.Run(storageType, func(t *testing.T) {
			container, err := NewContainer(context.Background(), testConfig(t, storageType))
			if err != nil {
				t.Fatalf("Failed to create container: %v", err)
			}

			if container.ProductService == nil || container.RateService == nil ||
				container.BillingService == nil || container.UserService == nil || container.AuthService == nil {
				t.Error("service not initialized")
			}
			if (container.Archive == nil) != (storageType == "none") {
				t.Errorf("Archive = %v for storage type %s", container.Archive, storageType)
			}
			if container.Location.String() != "Asia/Kolkata" {
				t.Errorf("Location = %s", container.Location)
			}
			if err := container.Database.HealthCheck(context.Background()); err != nil {
				t.Errorf("HealthCheck failed: %v", err)
			}

			if err := container.Close(); err != nil {
				t.Errorf("Failed to close container: %v", err)
			}
		})
	}
}

// TestContainer_EndToEnd prices a bill through the wired services and
// checks the archive received it
func TestContainer_EndToEnd(t *testing.T) {
	container, err := NewContainer(context.Background(), testConfig(t, "local"))
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	if _, err := container.RateService.CreateRates(ctx, &services.CreateRatesRequest{
		GoldRate:    mustDecimal(t, "6200"),
		SilverRate:  mustDecimal(t, "75"),
		DiamondRate: mustDecimal(t, "50000"),
	}, nil); err != nil {
		t.Fatalf("CreateRates failed: %v", err)
	}

	product, err := container.ProductService.CreateProduct(ctx, &services.CreateProductRequest{
		Name: "Silver Anklet", Category: "Silver", Weight: mustDecimal(t, "40"), Stock: 3,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	bill, err := container.BillingService.CreateDocument(ctx, &services.CreateBillRequest{
		Items: []services.BillLineRequest{{ProductID: product.ID, Quantity: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	document, err := container.BillingService.GetBillDocument(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBillDocument failed: %v", err)
	}
	if len(document) == 0 {
		t.Error("empty bill document")
	}

	files, err := container.Archive.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files.Files) != 1 {
		t.Errorf("archived %d files, want 1", len(files.Files))
	}
}
