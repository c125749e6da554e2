package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/monito/backend/internal/domain"
)

const defaultAliasCacheTTL = time.Hour

// AliasServiceConfig holds configuration for the alias service
type AliasServiceConfig struct {
	CacheTTL time.Duration
}

// AliasService resolves exact, language-tagged synonyms to products
type AliasService struct {
	aliases  domain.AliasRepository
	products domain.ProductRepository
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewAliasService creates a new alias service with dependencies
func NewAliasService(
	aliases domain.AliasRepository,
	products domain.ProductRepository,
	cache domain.CacheRepository,
	config AliasServiceConfig,
	logger zerolog.Logger,
) *AliasService {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultAliasCacheTTL
	}
	return &AliasService{
		aliases:  aliases,
		products: products,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "alias").Logger(),
	}
}

// NormalizeLanguage reduces a BCP 47 tag to its base language ("id-ID" -> "id").
// An empty tag stays empty and means "any language".
func NormalizeLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", eris.Wrapf(domain.ErrInvalidRequest, "language %q", tag)
	}
	base, _ := parsed.Base()
	return base.String(), nil
}

// Lookup resolves raw text to a product id through the alias table.
// An exact (text, language) row wins; otherwise the remaining rows for the text
// resolve only when they all point at the same product.
func (s *AliasService) Lookup(ctx context.Context, raw, lang string) (string, bool, error) {
	text := Normalize(raw)
	if text == "" {
		return "", false, nil
	}
	lang, err := NormalizeLanguage(lang)
	if err != nil {
		return "", false, err
	}

	key := aliasCacheKey(text, lang)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		if productID, ok := cached.(string); ok && productID != "" {
			return productID, true, nil
		}
	}

	rows, err := s.aliases.FindAliases(ctx, text)
	if err != nil {
		return "", false, eris.Wrapf(err, "alias lookup %q", text)
	}

	productID, ambiguous := pickAlias(rows, lang)
	if ambiguous {
		s.logger.Debug().Str("alias", text).Str("language", lang).Msg("ambiguous alias left unresolved")
	}
	if productID == "" {
		return "", false, nil
	}

	if err := s.cache.Set(ctx, key, productID, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("alias", text).Msg("failed to cache alias")
	}
	return productID, true, nil
}

// pickAlias chooses the product for a lookup language among rows sharing one text
func pickAlias(rows []domain.Alias, lang string) (productID string, ambiguous bool) {
	for _, row := range rows {
		if row.Language == lang {
			return row.ProductID, false
		}
	}

	for _, row := range rows {
		if productID == "" {
			productID = row.ProductID
			continue
		}
		if row.ProductID != productID {
			return "", true
		}
	}
	return productID, false
}

// CreateAlias maps aliasText to productID. Re-creating an identical mapping is a
// no-op; mapping an existing alias to another product fails with ErrAliasConflict.
func (s *AliasService) CreateAlias(ctx context.Context, productID, aliasText, lang string) (*domain.Alias, error) {
	text := Normalize(aliasText)
	if text == "" || strings.TrimSpace(productID) == "" {
		return nil, domain.ErrInvalidRequest
	}
	lang, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	existing, err := s.findExact(ctx, text, lang)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.settleExisting(existing, productID)
	}

	alias := &domain.Alias{
		ID:        uuid.NewString(),
		AliasText: text,
		Language:  lang,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.aliases.CreateAlias(ctx, alias); err != nil {
		if !errors.Is(err, domain.ErrAliasExists) {
			return nil, eris.Wrap(err, "create alias")
		}
		// Lost an insert race; the row that won decides the outcome.
		existing, findErr := s.findExact(ctx, text, lang)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, eris.Wrap(err, "create alias")
		}
		return s.settleExisting(existing, productID)
	}

	s.invalidate(ctx, text)
	s.logger.Info().
		Str("alias", text).
		Str("language", lang).
		Str("product_id", productID).
		Msg("alias created")
	return alias, nil
}

func (s *AliasService) settleExisting(existing *domain.Alias, productID string) (*domain.Alias, error) {
	if existing.ProductID == productID {
		return existing, nil
	}
	s.logger.Warn().
		Str("alias", existing.AliasText).
		Str("language", existing.Language).
		Str("existing_product_id", existing.ProductID).
		Str("requested_product_id", productID).
		Msg("alias conflict")
	return existing, eris.Wrapf(domain.ErrAliasConflict, "alias %q (%s) maps to %s",
		existing.AliasText, existing.Language, existing.ProductID)
}

func (s *AliasService) findExact(ctx context.Context, text, lang string) (*domain.Alias, error) {
	rows, err := s.aliases.FindAliases(ctx, text)
	if err != nil {
		return nil, eris.Wrapf(err, "find alias %q", text)
	}
	for i := range rows {
		if rows[i].Language == lang {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// DeleteAlias removes an alias by id
func (s *AliasService) DeleteAlias(ctx context.Context, id string) error {
	alias, err := s.aliases.GetAlias(ctx, id)
	if err != nil {
		return err
	}
	if err := s.aliases.DeleteAlias(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, alias.AliasText)
	s.logger.Info().Str("alias", alias.AliasText).Str("alias_id", id).Msg("alias deleted")
	return nil
}

// ListAliases returns every alias of a product
func (s *AliasService) ListAliases(ctx context.Context, productID string) ([]domain.Alias, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.aliases.ListAliases(ctx, productID)
}

func (s *AliasService) invalidate(ctx context.Context, text string) {
	if _, err := s.cache.DeletePrefix(ctx, aliasCachePrefix(text)); err != nil {
		s.logger.Warn().Err(err).Str("alias", text).Msg("failed to invalidate alias cache")
	}
}

func aliasCachePrefix(text string) string {
	return "alias:" + text + "|"
}

func aliasCacheKey(text, lang string) string {
	return aliasCachePrefix(text) + lang
}
