// Package main provides the entrypoint for the AEMET dashboard API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/api"
	"github.com/aemetdash/aemetdash/internal/climatology"
	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/dashboard"
	"github.com/aemetdash/aemetdash/internal/observation"
	"github.com/aemetdash/aemetdash/internal/station"
	"github.com/aemetdash/aemetdash/internal/warning"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aemetdash-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AEMET dashboard API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = "config.yml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load endpoint config")
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("AEMET_API_KEY not set - upstream requests will be rejected")
	}
	log.Info().Str("url_base", cfg.URLBase).Msg("endpoint config loaded")

	// Initialize the per-category OpenData clients and adapters
	stationClient := station.NewClient(station.ClientConfig{
		Config: cfg,
		Logger: log,
	})
	observationClient := observation.NewClient(observation.ClientConfig{
		Config: cfg,
		Logger: log,
	})
	climatologyClient := climatology.NewClient(climatology.ClientConfig{
		Config: cfg,
		Logger: log,
	})
	warningClient := warning.NewClient(warning.ClientConfig{
		Config: cfg,
		Logger: log,
	})

	service := dashboard.NewService(dashboard.ServiceConfig{
		Stations:     stationClient,
		Observations: observationClient,
		Climatology:  climatologyClient,
		Warnings:     warningClient,
		Logger:       log,
	})
	log.Info().Msg("dashboard service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Logger:    log,
		Service:   service,
	})

	// Create HTTP server. The write timeout is generous: historical range
	// fetches stream progress while many chunked upstream requests run.
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
