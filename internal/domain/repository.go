package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductRepository provides catalog product persistence
type ProductRepository interface {
	// CreateProduct returns ErrProductExists when the name/unit pair is taken.
	CreateProduct(ctx context.Context, p *Product) error
	// GetProduct returns ErrProductNotFound for unknown ids.
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ListProducts returns the catalog ordered by canonical name.
	ListProducts(ctx context.Context) ([]Product, error)
}

// AliasRepository provides alias persistence with a unique (text, language) key
type AliasRepository interface {
	// CreateAlias returns ErrAliasExists when the key is taken.
	CreateAlias(ctx context.Context, a *Alias) error
	// FindAliases returns every alias row for a normalized text, all languages.
	FindAliases(ctx context.Context, aliasText string) ([]Alias, error)
	GetAlias(ctx context.Context, id string) (*Alias, error)
	DeleteAlias(ctx context.Context, id string) error
	ListAliases(ctx context.Context, productID string) ([]Alias, error)
}

// PriceRepository provides append-only price history
type PriceRepository interface {
	// RecordPrice closes the current observation for the supplier/product pair at
	// obs.ValidFrom and inserts obs as the new current one, atomically.
	RecordPrice(ctx context.Context, obs *PriceObservation) error
	// ActivePrices returns current observations for a product, all suppliers.
	ActivePrices(ctx context.Context, productID string) ([]PriceObservation, error)
	// PriceHistory returns every observation for the pair, oldest first.
	PriceHistory(ctx context.Context, supplierID, productID string) ([]PriceObservation, error)
}

// CatalogStore is the persistent store backing the matching core
type CatalogStore interface {
	ProductRepository
	AliasRepository
	PriceRepository
	Migrate(ctx context.Context) error
	Close() error
}
