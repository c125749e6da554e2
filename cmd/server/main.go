package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/monito/backend/config"
	httpDelivery "github.com/monito/backend/internal/delivery/http"
	"github.com/monito/backend/internal/app"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := config.SetupLogger(cfg.Log)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Msg("starting monito backend v1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer a.Close() //nolint:errcheck

	if err := a.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to migrate schema")
		return
	}

	logger.Info().
		Float64("min_confidence", a.Matching.MinConfidence()).
		Int("workers", cfg.Matching.Workers).
		Dur("fresh_window", cfg.Deals.FreshWindow).
		Int("rate_per_ip", cfg.RateLimit.PerIP).
		Msg("services ready")

	handler := httpDelivery.NewHandler(httpDelivery.Services{
		Catalog:  a.Catalog,
		Aliases:  a.Aliases,
		Matching: a.Matching,
		Deals:    a.Deals,
		Ingest:   a.Ingest,
		Cache:    a.Cache,
	}, cfg.Import)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server failed")
		stop()
		a.Close() //nolint:errcheck
		os.Exit(1)
	}
}
