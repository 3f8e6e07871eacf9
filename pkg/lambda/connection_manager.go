package lambda

import (
	"context"
	"sync"
	"time"

	"jewellery-billing-api/internal/config"
	"jewellery-billing-api/pkg/server"
)

// staleAfter is how long a warm container may sit idle before its database
// is checked again on the next invocation
const staleAfter = 5 * time.Minute

// ConnectionManager keeps one service container alive across warm
// invocations of a Lambda function
type ConnectionManager struct {
	mu        sync.Mutex
	container *server.Container
	lastUsed  time.Time
	config    *config.Config
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = &ConnectionManager{}
	})
	return globalConnectionManager
}

// Initialize sets the configuration used to build the container. Without
// it GetContainer loads the serverless-adapted configuration itself.
func (cm *ConnectionManager) Initialize(cfg *config.Config) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.config = cfg
}

// GetContainer returns the service container, building it on first use.
// A container idle for longer than staleAfter whose database no longer
// answers is closed and rebuilt. A failed build is retried on the next
// invocation.
func (cm *ConnectionManager) GetContainer(ctx context.Context) (*server.Container, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container != nil && time.Since(cm.lastUsed) >= staleAfter {
		if err := cm.container.Database.HealthCheck(ctx); err != nil {
			cm.container.Logger.WithError(err).Warn("Stale container failed health check, rebuilding")
			cm.closeLocked()
		}
	}

	if cm.container != nil {
		cm.lastUsed = time.Now()
		return cm.container, nil
	}

	if cm.config == nil {
		cfg, err := config.GetOptimizedConfig()
		if err != nil {
			return nil, err
		}
		cm.config = cfg
	}

	container, err := server.NewContainer(ctx, cm.config)
	if err != nil {
		return nil, err
	}

	cm.container = container
	cm.lastUsed = time.Now()
	return container, nil
}

// Cleanup closes the container. The next GetContainer builds a new one.
func (cm *ConnectionManager) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.closeLocked()
}

func (cm *ConnectionManager) closeLocked() error {
	if cm.container == nil {
		return nil
	}

	err := cm.container.Close()
	cm.container = nil
	return err
}
