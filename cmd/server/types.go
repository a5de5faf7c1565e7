package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/codeshare/server/internal/config"
	"codeberg.org/codeshare/server/internal/registry"
	"codeberg.org/codeshare/server/internal/versions"
	ws "codeberg.org/codeshare/server/internal/ws"
)

// holds all dependencies and state for the API server
type Server struct {
	db         *pgxpool.Pool        // nil unless the postgres backend is active
	redisStore *versions.RedisStore // nil unless the redis backend is active
	config     *config.Config
	registry   *registry.Registry
	store      versions.Store
	hub        *ws.Hub
	router     *gin.Engine
}
