package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/database"
)

func main() {
	var (
		dbPath  = flag.String("db", "./data/jewellery.db", "Database file path")
		action  = flag.String("action", "up", "Migration action: up, down, status, validate, backup")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}

	logger.WithFields(logrus.Fields{
		"db_path": absDBPath,
		"action":  *action,
	}).Info("Starting migration tool")

	// Migrations run explicitly below, never as a side effect of connecting
	cm := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath: absDBPath,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		BusyTimeout:  5 * time.Second,
		Logger:       logger,
	})

	ctx := context.Background()
	if err := cm.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer cm.Close()

	if err := run(ctx, cm.GetMigrationManager(), *action); err != nil {
		logger.WithError(err).Fatalf("Migration %s failed", *action)
	}

	logger.Info("Migration tool completed successfully")
}

func run(ctx context.Context, mm *database.MigrationManager, action string) error {
	switch action {
	case "up":
		return mm.RunMigrations()
	case "down":
		return mm.RollbackMigration()
	case "status":
		status, err := mm.GetMigrationStatus()
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		fmt.Printf("Migration Status:\n")
		fmt.Printf("  Version: %d\n", status.Version)
		fmt.Printf("  Applied: %t\n", status.Applied)
		fmt.Printf("  Dirty: %t\n", status.Dirty)
		return nil
	case "validate":
		if err := mm.ValidateSchema(); err != nil {
			return err
		}
		fmt.Println("Schema validation passed successfully")
		return nil
	case "backup":
		path, err := mm.CreateBackup(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Backup written to %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown action %q, use: up, down, status, validate, backup", action)
	}
}
