package usecase

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/monito/backend/internal/domain"
)

// Match reasons reported alongside a score
const (
	ReasonEmpty                     = "empty"
	ReasonCoreNounMismatch          = "core_noun_mismatch"
	ReasonExclusiveModifierMismatch = "exclusive_modifier_mismatch"
	ReasonExact                     = "exact"
	ReasonOverlap                   = "overlap"
)

const (
	maxScore             = 100.0
	defaultMinConfidence = 60.0
)

// nameGuard rejects a query/candidate pair outright, before any scoring
type nameGuard struct {
	name    string
	rejects func(query, candidate string) bool
}

// matchGuards run in order; the first that fires decides the pair
var matchGuards = []nameGuard{
	{name: ReasonCoreNounMismatch, rejects: HasDifferentCoreNoun},
	{name: ReasonExclusiveModifierMismatch, rejects: HasExclusiveModifierMismatch},
}

// Match scores how well candidate names the same product as query, 0 to 100.
// Guards run before scoring so that word overlap can never override a
// category mismatch.
func Match(query, candidate string) domain.MatchScore {
	q := Normalize(query)
	c := Normalize(candidate)
	if q == "" || c == "" {
		return domain.MatchScore{Score: 0, Reason: ReasonEmpty}
	}

	for _, guard := range matchGuards {
		if guard.rejects(q, c) {
			return domain.MatchScore{Score: 0, Reason: guard.name}
		}
	}

	if q == c {
		return domain.MatchScore{Score: maxScore, Reason: ReasonExact}
	}

	return domain.MatchScore{Score: overlapScore(q, c), Reason: ReasonOverlap}
}

// overlapScore is the Jaccard similarity of the two token sets, scaled to 100
func overlapScore(query, candidate string) float64 {
	q := tokenSet(query)
	c := tokenSet(candidate)

	shared := 0
	for token := range q {
		if c[token] {
			shared++
		}
	}
	union := len(q) + len(c) - shared
	if union == 0 {
		return 0
	}
	return math.Min(float64(shared)/float64(union)*maxScore, maxScore)
}

// aliasResolver is the alias lookup the matching service needs
type aliasResolver interface {
	Lookup(ctx context.Context, raw, lang string) (string, bool, error)
}

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidence float64
	Workers       int
}

// MatchingService resolves free text to catalog products
type MatchingService struct {
	aliases       aliasResolver
	products      domain.ProductRepository
	minConfidence float64
	workers       int
	logger        zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(
	aliases aliasResolver,
	products domain.ProductRepository,
	config MatchConfig,
	logger zerolog.Logger,
) *MatchingService {
	threshold := config.MinConfidence
	if threshold <= 0 {
		threshold = defaultMinConfidence
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &MatchingService{
		aliases:       aliases,
		products:      products,
		minConfidence: threshold,
		workers:       workers,
		logger:        logger.With().Str("component", "matching").Logger(),
	}
}

// MinConfidence returns the acceptance threshold
func (s *MatchingService) MinConfidence() float64 {
	return s.minConfidence
}

// Resolve maps raw text to a catalog product. Alias hits short-circuit with full
// confidence. A best match below the threshold is returned together with
// ErrLowConfidence.
func (s *MatchingService) Resolve(ctx context.Context, raw, lang string) (*domain.MatchResult, error) {
	if Normalize(raw) == "" {
		return nil, domain.ErrInvalidRequest
	}
	catalog, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "list products")
	}
	return s.resolveAgainst(ctx, raw, lang, catalog)
}

func (s *MatchingService) resolveAgainst(
	ctx context.Context,
	raw, lang string,
	catalog []domain.Product,
) (*domain.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if Normalize(raw) == "" {
		return nil, domain.ErrInvalidRequest
	}

	productID, ok, err := s.aliases.Lookup(ctx, raw, lang)
	if err != nil {
		return nil, err
	}
	if ok {
		result := &domain.MatchResult{
			Query:     raw,
			ProductID: productID,
			Score:     maxScore,
			Method:    domain.MatchMethodAlias,
		}
		if name, found := productName(catalog, productID); found {
			result.ProductName = name
		} else if product, err := s.products.GetProduct(ctx, productID); err == nil {
			result.ProductName = product.CanonicalName
		}
		return result, nil
	}

	var best *domain.MatchResult
	for i := range catalog {
		score := Match(raw, catalog[i].CanonicalName)
		if score.Score <= 0 {
			continue
		}
		if best == nil || score.Score > best.Score {
			best = &domain.MatchResult{
				Query:       raw,
				ProductID:   catalog[i].ID,
				ProductName: catalog[i].CanonicalName,
				Score:       score.Score,
				Method:      methodFor(score.Reason),
			}
		}
	}

	if best == nil {
		return nil, domain.ErrProductNotFound
	}
	if best.Score < s.minConfidence {
		s.logger.Debug().
			Str("query", raw).
			Str("best", best.ProductName).
			Float64("score", best.Score).
			Msg("best match below threshold")
		return best, domain.ErrLowConfidence
	}
	return best, nil
}

func methodFor(reason string) string {
	if reason == ReasonExact {
		return domain.MatchMethodExact
	}
	return domain.MatchMethodOverlap
}

func productName(catalog []domain.Product, id string) (string, bool) {
	for i := range catalog {
		if catalog[i].ID == id {
			return catalog[i].CanonicalName, true
		}
	}
	return "", false
}

// BatchOutcome is the resolution of one query in a batch. Err carries item-level
// failures (ErrInvalidRequest, ErrProductNotFound, ErrLowConfidence).
type BatchOutcome struct {
	Query  string
	Result *domain.MatchResult
	Err    error
}

// ResolveBatch resolves queries in parallel against one catalog snapshot.
// Item-level failures are reported per outcome; store failures and context
// cancellation abort the batch.
func (s *MatchingService) ResolveBatch(ctx context.Context, queries []string, lang string) ([]BatchOutcome, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	catalog, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "list products")
	}

	outcomes := make([]BatchOutcome, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, query := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.resolveAgainst(gctx, query, lang, catalog)
			if err != nil && !IsItemError(err) {
				return err
			}
			outcomes[i] = BatchOutcome{Query: query, Result: result, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve batch")
	}
	return outcomes, nil
}

// IsItemError reports whether err concerns a single query rather than the batch
func IsItemError(err error) bool {
	return errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrLowConfidence)
}
