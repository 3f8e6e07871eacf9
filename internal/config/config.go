package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"jewellery-billing-api/internal/adapters/storage"
	"jewellery-billing-api/internal/database"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	Database    DatabaseConfig
	Storage     StorageConfig
	JWT         JWTConfig
	Business    BusinessConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	CORS        CORSConfig
	Admin       AdminConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	AutoMigrate     bool
}

// StorageConfig holds bill archive configuration
type StorageConfig struct {
	Type      string // "local", "memory" or "none"
	LocalPath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	ExpiryHours int
	BcryptCost  int
}

// BusinessConfig describes the shop. Timezone decides where "today" starts
// for rates, invoice years and daily sales.
type BusinessConfig struct {
	Timezone     string
	ShopLocation string
	RateCacheTTL time.Duration
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// AdminConfig is the account cmd/seed bootstraps
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

const defaultJWTSecret = "change-me-in-production"

// Load loads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DB_PATH", "./data/jewellery.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DB_BUSY_TIMEOUT", 5*time.Second)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", storage.DefaultBasePath)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("BUSINESS_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SHOP_LOCATION", "Coimbatore")
	v.SetDefault("RATE_CACHE_TTL", time.Minute)
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("ADMIN_NAME", "Administrator")
	v.SetDefault("ADMIN_EMAIL", "admin@jewellery.local")

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		Database: DatabaseConfig{
			Path:            v.GetString("DB_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			BusyTimeout:     v.GetDuration("DB_BUSY_TIMEOUT"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Storage: StorageConfig{
			Type:      v.GetString("STORAGE_TYPE"),
			LocalPath: v.GetString("STORAGE_LOCAL_PATH"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
			BcryptCost:  v.GetInt("BCRYPT_COST"),
		},
		Business: BusinessConfig{
			Timezone:     v.GetString("BUSINESS_TIMEZONE"),
			ShopLocation: v.GetString("SHOP_LOCATION"),
			RateCacheTTL: v.GetDuration("RATE_CACHE_TTL"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Admin: AdminConfig{
			Name:     v.GetString("ADMIN_NAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.JWT.ExpiryHours < 1 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be at least 1")
	}
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit must allow at least one request")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location resolves the business time zone. An unknown zone falls back to
// UTC so a typo cannot stop billing.
func (c *Config) Location(logger *logrus.Logger) *time.Location {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		if logger != nil {
			logger.WithError(err).WithField("timezone", c.Business.Timezone).Warn("Unknown business timezone, using UTC")
		}
		return time.UTC
	}
	return loc
}

// ToConnectionConfig converts DatabaseConfig to database.ConnectionConfig
func (c *DatabaseConfig) ToConnectionConfig(logger *logrus.Logger) *database.ConnectionConfig {
	return &database.ConnectionConfig{
		DatabasePath:    c.Path,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		BusyTimeout:     c.BusyTimeout,
		AutoMigrate:     c.AutoMigrate,
		Logger:          logger,
	}
}

// ToStorageConfig converts StorageConfig to storage.Config
func (c *StorageConfig) ToStorageConfig() *storage.Config {
	return &storage.Config{Type: c.Type, BasePath: c.LocalPath}
}

// NewLogger builds the application logger
func NewLogger(c LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(c.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
