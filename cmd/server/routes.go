package main

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"codeberg.org/codeshare/server/api/rest/health"
	"codeberg.org/codeshare/server/api/rest/snapshots"
	apiws "codeberg.org/codeshare/server/api/ws"
	"codeberg.org/codeshare/server/internal/config"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(corsMiddleware(server.config))

	router.GET("/health", health.Handler(server.hub))
	router.GET("/ping", health.PingHandler)

	root := router.Group("")

	// manual save/load, same paths the frontend has always used
	snapshots.RegisterRoutes(root, server.store)

	// realtime collaboration endpoint
	apiws.RegisterRoutes(root, server.hub)

	// bundled frontend
	router.StaticFile("/", "./dist/index.html")
	router.Static("/assets", "./dist/assets")
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")

	if cfg.Environment == "production" {
		corsConfig.AllowOrigins = allowedOrigins()
	} else {
		corsConfig.AllowAllOrigins = true
	}

	return cors.New(corsConfig)
}

func allowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return []string{}
	}

	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return origins
}
