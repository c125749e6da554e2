package usecase

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/monito/backend/internal/domain"
)

const (
	defaultFreshWindow     = 7 * 24 * time.Hour
	defaultMaxAlternatives = 3
)

var (
	defaultMinSaving = decimal.RequireFromString("0.05")
	hundred          = decimal.NewFromInt(100)
)

// DealConfig holds the better-deal filtering thresholds
type DealConfig struct {
	// FreshWindow is how far apart a same-supplier quote must be from the
	// scanned item before it counts as an alternative.
	FreshWindow time.Duration
	// MinSaving is the minimum fractional saving (0.05 = 5%).
	MinSaving       decimal.Decimal
	MaxAlternatives int
}

// DealComparator ranks cheaper alternatives for a scanned item
type DealComparator struct {
	freshWindow     time.Duration
	minSaving       decimal.Decimal
	maxAlternatives int
}

// NewDealComparator creates a comparator, filling zero values with defaults
func NewDealComparator(config DealConfig) *DealComparator {
	c := &DealComparator{
		freshWindow:     config.FreshWindow,
		minSaving:       config.MinSaving,
		maxAlternatives: config.MaxAlternatives,
	}
	if c.freshWindow <= 0 {
		c.freshWindow = defaultFreshWindow
	}
	if !c.minSaving.IsPositive() {
		c.minSaving = defaultMinSaving
	}
	if c.maxAlternatives <= 0 {
		c.maxAlternatives = defaultMaxAlternatives
	}
	return c
}

type rankedDeal struct {
	deal      domain.BetterDeal
	unitPrice decimal.Decimal
}

// FindBetterDeals filters and ranks candidates against the scanned item:
// comparable units only, same-supplier quotes only outside the freshness window,
// savings of at least the minimum, cheapest first (newest first on ties),
// truncated to the maximum number of alternatives.
func (c *DealComparator) FindBetterDeals(item domain.ScannedItem, candidates []domain.CandidatePrice) []domain.BetterDeal {
	deals := []domain.BetterDeal{}

	itemPrice, ok := CalculateUnitPrice(item.ScannedPrice, quantityOrOne(item.Quantity), item.Unit)
	if !ok {
		return deals
	}
	canonical, _ := GetCanonicalUnit(item.Unit)

	var ranked []rankedDeal
	for _, candidate := range candidates {
		if !AreUnitsComparable(candidate.Unit, item.Unit) {
			continue
		}
		unitPrice, ok := CalculateUnitPrice(candidate.Amount, quantityOrOne(candidate.Quantity), candidate.Unit)
		if !ok {
			continue
		}
		if c.isRecentSameSupplier(item, candidate) {
			continue
		}
		savings := itemPrice.Sub(unitPrice)
		fraction := savings.Div(itemPrice)
		if fraction.LessThan(c.minSaving) {
			continue
		}

		ranked = append(ranked, rankedDeal{
			unitPrice: unitPrice,
			deal: domain.BetterDeal{
				SupplierID:     candidate.SupplierID,
				ProductID:      candidate.ProductID,
				ProductName:    candidate.ProductName,
				UnitPrice:      unitPrice.Round(2),
				CanonicalUnit:  canonical,
				Savings:        savings.Round(2),
				SavingsPercent: fraction.Mul(hundred).Round(2),
				ObservedAt:     candidate.ObservedAt,
			},
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if cmp := ranked[i].unitPrice.Cmp(ranked[j].unitPrice); cmp != 0 {
			return cmp < 0
		}
		return ranked[i].deal.ObservedAt.After(ranked[j].deal.ObservedAt)
	})

	if len(ranked) > c.maxAlternatives {
		ranked = ranked[:c.maxAlternatives]
	}
	for _, r := range ranked {
		deals = append(deals, r.deal)
	}
	return deals
}

// isRecentSameSupplier reports whether candidate is the scanned supplier's own
// quote from within the freshness window
func (c *DealComparator) isRecentSameSupplier(item domain.ScannedItem, candidate domain.CandidatePrice) bool {
	if item.SupplierID == "" || !strings.EqualFold(item.SupplierID, candidate.SupplierID) {
		return false
	}
	gap := item.ObservedAt.Sub(candidate.ObservedAt)
	if gap < 0 {
		gap = -gap
	}
	return gap < c.freshWindow
}

func quantityOrOne(q decimal.Decimal) decimal.Decimal {
	if q.IsZero() {
		return decimal.NewFromInt(1)
	}
	return q
}

// productResolver is the resolution step the deal service needs
type productResolver interface {
	Resolve(ctx context.Context, raw, lang string) (*domain.MatchResult, error)
}

// DealService compares scanned items against the catalog's active prices
type DealService struct {
	resolver   productResolver
	products   domain.ProductRepository
	prices     domain.PriceRepository
	comparator *DealComparator
	workers    int
	logger     zerolog.Logger
}

// NewDealService creates a new deal service with dependencies
func NewDealService(
	resolver productResolver,
	products domain.ProductRepository,
	prices domain.PriceRepository,
	comparator *DealComparator,
	workers int,
	logger zerolog.Logger,
) *DealService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &DealService{
		resolver:   resolver,
		products:   products,
		prices:     prices,
		comparator: comparator,
		workers:    workers,
		logger:     logger.With().Str("component", "deals").Logger(),
	}
}

// Compare resolves the item's product when needed and returns its cheaper
// alternatives. Unresolvable names and unpriceable units produce a report
// with a note instead of an error.
func (s *DealService) Compare(ctx context.Context, item domain.ScannedItem) (*domain.DealReport, error) {
	if item.ObservedAt.IsZero() {
		item.ObservedAt = time.Now().UTC()
	}
	item.Quantity = quantityOrOne(item.Quantity)

	report := &domain.DealReport{Item: item, Deals: []domain.BetterDeal{}}

	productID := item.ProductID
	if productID == "" {
		result, err := s.resolver.Resolve(ctx, item.RawName, item.Language)
		if err != nil {
			if IsItemError(err) {
				report.Note = "unresolved: " + err.Error()
				return report, nil
			}
			return nil, err
		}
		productID = result.ProductID
		report.MatchScore = result.Score
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if IsItemError(err) {
			report.Note = "unresolved: " + err.Error()
			return report, nil
		}
		return nil, err
	}
	report.ProductID = product.ID
	report.ProductName = product.CanonicalName

	unitPrice, ok := CalculateUnitPrice(item.ScannedPrice, item.Quantity, item.Unit)
	if !ok {
		report.Note = "no unit price for unit " + item.Unit
		return report, nil
	}
	report.Comparable = true
	report.UnitPrice = unitPrice.Round(2)
	report.CanonicalUnit, _ = GetCanonicalUnit(item.Unit)

	active, err := s.prices.ActivePrices(ctx, product.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "active prices for %s", product.ID)
	}

	candidates := make([]domain.CandidatePrice, 0, len(active))
	for _, obs := range active {
		candidates = append(candidates, domain.CandidatePrice{
			SupplierID:  obs.SupplierID,
			ProductID:   obs.ProductID,
			ProductName: product.CanonicalName,
			Amount:      obs.Amount,
			Quantity:    obs.Quantity,
			Unit:        obs.Unit,
			ObservedAt:  obs.ValidFrom,
		})
	}

	report.Deals = s.comparator.FindBetterDeals(item, candidates)
	s.logger.Debug().
		Str("product_id", product.ID).
		Int("candidates", len(candidates)).
		Int("deals", len(report.Deals)).
		Msg("compared item")
	return report, nil
}

// CompareBatch compares items concurrently, preserving input order
func (s *DealService) CompareBatch(ctx context.Context, items []domain.ScannedItem) ([]domain.DealReport, error) {
	reports := make([]domain.DealReport, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.Compare(gctx, item)
			if err != nil {
				return err
			}
			reports[i] = *report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "compare batch")
	}
	return reports, nil
}
