package config

// version store backend names
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	DatabaseURL  string
	RedisURL     string
	VersionStore string
	Environment  string
}
