// Package app wires the catalog store, cache and services shared by the HTTP
// server and the operator CLI.
package app

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/monito/backend/config"
	"github.com/monito/backend/internal/domain"
	"github.com/monito/backend/internal/infrastructure/cache"
	"github.com/monito/backend/internal/infrastructure/store"
	"github.com/monito/backend/internal/usecase"
)

// App holds the wired dependencies
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Store domain.CatalogStore
	Cache *cache.MemoryCache

	Catalog  *usecase.CatalogService
	Aliases  *usecase.AliasService
	Matching *usecase.MatchingService
	Deals    *usecase.DealService
	Ingest   *usecase.IngestService
}

// New opens the configured store and builds every service on top of it.
// The schema is not migrated; call Migrate when needed.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	catalogStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	return build(cfg, catalogStore, logger), nil
}

func build(cfg *config.Config, catalogStore domain.CatalogStore, logger zerolog.Logger) *App {
	memoryCache := cache.NewMemoryCache(0)

	aliases := usecase.NewAliasService(
		catalogStore,
		catalogStore,
		memoryCache,
		usecase.AliasServiceConfig{CacheTTL: cfg.Cache.TTL},
		logger,
	)
	matching := usecase.NewMatchingService(
		aliases,
		catalogStore,
		usecase.MatchConfig{
			MinConfidence: cfg.Matching.MinConfidence,
			Workers:       cfg.Matching.Workers,
		},
		logger,
	)
	comparator := usecase.NewDealComparator(usecase.DealConfig{
		FreshWindow:     cfg.Deals.FreshWindow,
		MinSaving:       decimal.NewFromFloat(cfg.Deals.MinSaving),
		MaxAlternatives: cfg.Deals.MaxAlternatives,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    catalogStore,
		Cache:    memoryCache,
		Catalog:  usecase.NewCatalogService(catalogStore, catalogStore, logger),
		Aliases:  aliases,
		Matching: matching,
		Deals:    usecase.NewDealService(matching, catalogStore, catalogStore, comparator, cfg.Matching.Workers, logger),
		Ingest:   usecase.NewIngestService(matching, catalogStore, catalogStore, logger),
	}
}

// Migrate applies the store schema
func (a *App) Migrate(ctx context.Context) error {
	if err := a.Store.Migrate(ctx); err != nil {
		return err
	}
	a.Logger.Info().Str("driver", a.Config.Store.Driver).Msg("schema migrated")
	return nil
}

// Close stops the cache sweeper and closes the store
func (a *App) Close() error {
	a.Cache.Close()
	return a.Store.Close()
}
