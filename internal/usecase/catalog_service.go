package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/monito/backend/internal/domain"
)

// CatalogService manages canonical products and exposes their price history
type CatalogService struct {
	products domain.ProductRepository
	prices   domain.PriceRepository
	logger   zerolog.Logger
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(
	products domain.ProductRepository,
	prices domain.PriceRepository,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		prices:   prices,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// CreateProduct stores a product under its normalized name. unit may be any
// recognized unit token; the product keeps its canonical unit.
func (s *CatalogService) CreateProduct(ctx context.Context, name, unit, category string) (*domain.Product, error) {
	canonicalName := Normalize(name)
	if canonicalName == "" {
		return nil, eris.Wrap(domain.ErrInvalidRequest, "product name is empty")
	}
	canonicalUnit, ok := GetCanonicalUnit(unit)
	if !ok {
		return nil, eris.Wrapf(domain.ErrInvalidRequest, "unrecognized unit %q", unit)
	}

	product := &domain.Product{
		ID:            uuid.NewString(),
		CanonicalName: canonicalName,
		CanonicalUnit: canonicalUnit,
		Category:      strings.TrimSpace(category),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", product.ID).
		Str("name", canonicalName).
		Str("unit", canonicalUnit).
		Msg("product created")
	return product, nil
}

// GetProduct returns a product by id
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetProduct(ctx, id)
}

// ListProducts returns the whole catalog
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListProducts(ctx)
}

// ActivePrices returns the current observation of every supplier for a product
func (s *CatalogService) ActivePrices(ctx context.Context, productID string) ([]domain.PriceObservation, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	prices, err := s.prices.ActivePrices(ctx, productID)
	if err != nil {
		return nil, eris.Wrapf(err, "active prices for %s", productID)
	}
	if prices == nil {
		prices = []domain.PriceObservation{}
	}
	return prices, nil
}

// PriceHistory returns a supplier's observations for a product, oldest first
func (s *CatalogService) PriceHistory(ctx context.Context, supplierID, productID string) ([]domain.PriceObservation, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, eris.Wrap(domain.ErrInvalidRequest, "supplier id is required")
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	history, err := s.prices.PriceHistory(ctx, supplierID, productID)
	if err != nil {
		return nil, eris.Wrapf(err, "price history for %s/%s", supplierID, productID)
	}
	if history == nil {
		history = []domain.PriceObservation{}
	}
	return history, nil
}
