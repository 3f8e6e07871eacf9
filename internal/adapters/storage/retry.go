package storage

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig configures exponential backoff for storage operations
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" mapstructure:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" mapstructure:"backoff_factor"`
	Jitter        bool          `json:"jitter" mapstructure:"jitter"`
}

// DefaultRetryConfig returns three attempts starting at 100ms
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Delay returns how long to wait after the given failed attempt (1-based)
func (c *RetryConfig) Delay(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	delay := float64(c.InitialDelay) * math.Pow(factor, float64(attempt-1))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.Jitter {
		delay += rand.Float64() * 0.1 * delay
	}

	return time.Duration(delay)
}

// WithRetry runs op until it succeeds, fails with a non-retryable error, or
// runs out of attempts. The last error is returned.
func WithRetry(ctx context.Context, config *RetryConfig, logger *logrus.Logger, opName string, op func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts || !IsRetryable(lastErr) {
			break
		}

		delay := config.Delay(attempt)
		if logger != nil {
			logger.WithError(lastErr).WithFields(logrus.Fields{
				"operation": opName,
				"attempt":   attempt,
				"delay":     delay,
			}).Warn("Storage operation failed, retrying")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// RetryableFileStorage wraps a FileStorage and retries transient failures
type RetryableFileStorage struct {
	storage FileStorage
	config  *RetryConfig
	logger  *logrus.Logger
}

// NewRetryableFileStorage wraps storage. A nil config uses DefaultRetryConfig.
func NewRetryableFileStorage(storage FileStorage, config *RetryConfig, logger *logrus.Logger) *RetryableFileStorage {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryableFileStorage{storage: storage, config: config, logger: logger}
}

func (r *RetryableFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	return WithRetry(ctx, r.config, r.logger, "store", func(ctx context.Context) error {
		return r.storage.Store(ctx, key, data, opts)
	})
}

func (r *RetryableFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := WithRetry(ctx, r.config, r.logger, "retrieve", func(ctx context.Context) error {
		var err error
		data, err = r.storage.Retrieve(ctx, key)
		return err
	})
	return data, err
}

func (r *RetryableFileStorage) Delete(ctx context.Context, key string) error {
	return WithRetry(ctx, r.config, r.logger, "delete", func(ctx context.Context) error {
		return r.storage.Delete(ctx, key)
	})
}

func (r *RetryableFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := WithRetry(ctx, r.config, r.logger, "exists", func(ctx context.Context) error {
		var err error
		exists, err = r.storage.Exists(ctx, key)
		return err
	})
	return exists, err
}

func (r *RetryableFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	var meta *FileMetadata
	err := WithRetry(ctx, r.config, r.logger, "metadata", func(ctx context.Context) error {
		var err error
		meta, err = r.storage.GetMetadata(ctx, key)
		return err
	})
	return meta, err
}

func (r *RetryableFileStorage) List(ctx context.Context, opts *ListOptions) (*ListResult, error) {
	var result *ListResult
	err := WithRetry(ctx, r.config, r.logger, "list", func(ctx context.Context) error {
		var err error
		result, err = r.storage.List(ctx, opts)
		return err
	})
	return result, err
}

func (r *RetryableFileStorage) Close() error {
	return r.storage.Close()
}
