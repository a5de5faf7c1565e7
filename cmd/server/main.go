package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/codeshare/server/internal/config"
	"codeberg.org/codeshare/server/internal/logger"
)

func main() {
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.FatalErr(err, "failed to load configuration")
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.FatalErr(err, "failed to initialize server")
	}
	defer server.Close()

	go server.hub.Run()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", port, "environment", cfg.Environment)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalErr(err, "server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// notify connected participants before tearing down HTTP
	server.hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorErr(err, "forced server shutdown")
	}

	logger.Info("server stopped")
}
