package storage

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// StorageType names a storage backend
type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeMemory StorageType = "memory"
	// StorageTypeNone disables the bill archive
	StorageTypeNone StorageType = "none"
)

// DefaultBasePath is used by local storage when no path is configured
const DefaultBasePath = "./data/files"

// Factory creates FileStorage instances from configuration
type Factory struct {
	retryConfig *RetryConfig
	logger      *logrus.Logger
}

// NewFactory creates a factory. A nil retryConfig leaves backends unwrapped.
func NewFactory(retryConfig *RetryConfig, logger *logrus.Logger) *Factory {
	return &Factory{retryConfig: retryConfig, logger: logger}
}

// Create builds the configured backend. It returns (nil, nil) for
// StorageTypeNone.
func (f *Factory) Create(config *Config) (FileStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	var (
		backend FileStorage
		err     error
	)

	switch StorageType(strings.ToLower(strings.TrimSpace(config.Type))) {
	case StorageTypeLocal, "":
		basePath := config.BasePath
		if basePath == "" {
			basePath = DefaultBasePath
		}
		backend, err = NewLocalFileStorage(basePath)
	case StorageTypeMemory:
		backend = NewMemoryFileStorage()
	case StorageTypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", config.Type, err)
	}

	if f.retryConfig != nil {
		backend = NewRetryableFileStorage(backend, f.retryConfig, f.logger)
	}

	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{
			"type":      config.Type,
			"base_path": config.BasePath,
		}).Info("Document storage ready")
	}

	return backend, nil
}

// CreateFromConfig builds storage with the default retry policy
func CreateFromConfig(config *Config, logger *logrus.Logger) (FileStorage, error) {
	return NewFactory(DefaultRetryConfig(), logger).Create(config)
}
