package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/monito/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string]interface{}
	getError error
	setError error
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string]interface{})}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			n++
		}
	}
	return n, nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockCatalog is an in-memory catalog store honoring the same uniqueness rules
// as the SQL stores
type MockCatalog struct {
	mu        sync.Mutex
	products  []domain.Product
	aliases   []domain.Alias
	prices    []domain.PriceObservation
	listError error
	findError error
	// raceAlias, when set, is inserted just before CreateAlias reports ErrAliasExists
	raceAlias *domain.Alias
	recordErr error
	findCalls int
	listCalls int
}

func NewMockCatalog(products ...domain.Product) *MockCatalog {
	return &MockCatalog{products: products}
}

func (m *MockCatalog) CreateProduct(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.CanonicalName == p.CanonicalName && existing.CanonicalUnit == p.CanonicalUnit {
			return domain.ErrProductExists
		}
	}
	m.products = append(m.products, *p)
	return nil
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *MockCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listError != nil {
		return nil, m.listError
	}
	out := make([]domain.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *MockCatalog) CreateAlias(ctx context.Context, a *domain.Alias) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceAlias != nil {
		m.aliases = append(m.aliases, *m.raceAlias)
		m.raceAlias = nil
		return domain.ErrAliasExists
	}
	for _, existing := range m.aliases {
		if existing.AliasText == a.AliasText && existing.Language == a.Language {
			return domain.ErrAliasExists
		}
	}
	m.aliases = append(m.aliases, *a)
	return nil
}

func (m *MockCatalog) FindAliases(ctx context.Context, aliasText string) ([]domain.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findError != nil {
		return nil, m.findError
	}
	var out []domain.Alias
	for _, a := range m.aliases {
		if a.AliasText == aliasText {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockCatalog) GetAlias(ctx context.Context, id string) (*domain.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.aliases {
		if m.aliases[i].ID == id {
			a := m.aliases[i]
			return &a, nil
		}
	}
	return nil, domain.ErrAliasNotFound
}

func (m *MockCatalog) DeleteAlias(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.aliases {
		if m.aliases[i].ID == id {
			m.aliases = append(m.aliases[:i], m.aliases[i+1:]...)
			return nil
		}
	}
	return domain.ErrAliasNotFound
}

func (m *MockCatalog) ListAliases(ctx context.Context, productID string) ([]domain.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alias
	for _, a := range m.aliases {
		if a.ProductID == productID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockCatalog) RecordPrice(ctx context.Context, obs *domain.PriceObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	for i := range m.prices {
		p := &m.prices[i]
		if p.SupplierID == obs.SupplierID && p.ProductID == obs.ProductID && p.ValidTo == nil {
			if obs.ValidFrom.Before(p.ValidFrom) {
				return domain.ErrStalePrice
			}
			closedAt := obs.ValidFrom
			p.ValidTo = &closedAt
		}
	}
	m.prices = append(m.prices, *obs)
	return nil
}

func (m *MockCatalog) ActivePrices(ctx context.Context, productID string) ([]domain.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PriceObservation
	for _, p := range m.prices {
		if p.ProductID == productID && p.ValidTo == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockCatalog) PriceHistory(ctx context.Context, supplierID, productID string) ([]domain.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PriceObservation
	for _, p := range m.prices {
		if p.SupplierID == supplierID && p.ProductID == productID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidFrom.Before(out[j].ValidFrom) })
	return out, nil
}

func (m *MockCatalog) addAlias(id, text, lang, productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases = append(m.aliases, domain.Alias{ID: id, AliasText: text, Language: lang, ProductID: productID})
}

// testCatalog is a small produce catalog shared by the service tests
func testCatalog() *MockCatalog {
	return NewMockCatalog(
		domain.Product{ID: "p-carrot", CanonicalName: "carrot", CanonicalUnit: "kg"},
		domain.Product{ID: "p-potato", CanonicalName: "potato", CanonicalUnit: "kg"},
		domain.Product{ID: "p-sweet-potato", CanonicalName: "sweet potato", CanonicalUnit: "kg"},
		domain.Product{ID: "p-red-onion", CanonicalName: "red onion", CanonicalUnit: "kg"},
		domain.Product{ID: "p-white-onion", CanonicalName: "white onion", CanonicalUnit: "kg"},
		domain.Product{ID: "p-chicken-breast", CanonicalName: "chicken breast", CanonicalUnit: "kg"},
	)
}
