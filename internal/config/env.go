package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	databaseURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	versionStore := os.Getenv("VERSION_STORE")
	environment := os.Getenv("ENVIRONMENT")

	if versionStore == "" {
		versionStore = BackendPostgres
	}

	switch versionStore {
	case BackendPostgres:
		if databaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres version store")
		}
	case BackendRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable is required for the redis version store")
		}
	case BackendMemory:
		// nothing to validate; snapshots are lost on restart
	default:
		return nil, fmt.Errorf("unknown VERSION_STORE %q (expected postgres, redis or memory)", versionStore)
	}

	if environment == "" {
		environment = "development"
	}

	return &Config{
		DatabaseURL:  databaseURL,
		RedisURL:     redisURL,
		VersionStore: versionStore,
		Environment:  environment,
	}, nil
}
