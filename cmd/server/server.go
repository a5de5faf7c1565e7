package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/codeshare/server/internal/config"
	"codeberg.org/codeshare/server/internal/logger"
	"codeberg.org/codeshare/server/internal/registry"
	"codeberg.org/codeshare/server/internal/versions"
	ws "codeberg.org/codeshare/server/internal/ws"
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	server := &Server{
		config:   cfg,
		registry: registry.New(),
	}

	switch cfg.VersionStore {
	case config.BackendPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database config: %w", err)
		}

		// keep the pool small; one connection per in-flight store call
		// is plenty for an append-only log
		poolConfig.MaxConns = 5
		poolConfig.MinConns = 1
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute
		poolConfig.HealthCheckPeriod = 1 * time.Minute

		db, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}

		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		store := versions.NewPostgresStore(db)

		if err := store.Initialize(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize version store schema: %w", err)
		}

		server.db = db
		server.store = store

		logger.Info("using postgres version store")

	case config.BackendRedis:
		store, err := versions.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis version store: %w", err)
		}

		server.redisStore = store
		server.store = store

		logger.Info("using redis version store")

	case config.BackendMemory:
		server.store = versions.NewMemoryStore()

		logger.Warn("using in-memory version store, history is lost on restart")

	default:
		return nil, fmt.Errorf("unknown version store backend %q", cfg.VersionStore)
	}

	hub := ws.NewHub()

	// the coordinator registers one handler per participant event and
	// the disconnect callback for owner bookkeeping
	coordinator := ws.NewCoordinator(server.registry, server.store)
	coordinator.RegisterHandlers(hub)

	server.hub = hub
	server.router = gin.Default()

	RegisterRoutes(server.router, server)

	return server, nil
}

// releases backend connections
func (s *Server) Close() {
	if s.redisStore != nil {
		s.redisStore.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	if s.db != nil {
		s.db.Close()
	}
}
