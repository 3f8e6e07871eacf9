package config

import (
	"os"
	"path/filepath"
	"sync"
)

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = detectServerless()
	})
	return serverlessConfig
}

func detectServerless() *ServerlessConfig {
	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = "dev"
	}
	return &ServerlessConfig{
		IsLambda:     os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",
		FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		Region:       os.Getenv("AWS_REGION"),
		Stage:        stage,
	}
}

// IsServerlessMode returns true if running in AWS Lambda
func IsServerlessMode() bool {
	return GetServerlessConfig().IsLambda
}

// GetDeploymentMode returns "serverless" or "server"
func GetDeploymentMode() string {
	if IsServerlessMode() {
		return "serverless"
	}
	return "server"
}

// AdaptConfigForServerless moves writable paths somewhere a Lambda can
// write. An EFS mount keeps the SQLite file shared between invocations;
// without one the database lives in /tmp and only survives a warm container.
func AdaptConfigForServerless(config *Config, sc *ServerlessConfig) *Config {
	if sc == nil || !sc.IsLambda {
		return config
	}

	root := "/tmp"
	if efs := os.Getenv("EFS_MOUNT_PATH"); efs != "" {
		root = efs
	}

	if !filepath.IsAbs(config.Database.Path) {
		config.Database.Path = filepath.Join(root, filepath.Base(config.Database.Path))
	}

	if config.Storage.Type == "local" && !filepath.IsAbs(config.Storage.LocalPath) {
		config.Storage.LocalPath = filepath.Join(root, "files")
	}

	// one invocation at a time per container
	config.Database.MaxOpenConns = 1
	config.Database.MaxIdleConns = 1

	return config
}

// GetOptimizedConfig loads configuration adapted to the deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	return AdaptConfigForServerless(config, GetServerlessConfig()), nil
}
