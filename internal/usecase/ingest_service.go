package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/monito/backend/internal/domain"
)

// IngestRequest is one supplier upload of extracted price rows
type IngestRequest struct {
	SupplierID     string                `json:"supplierId"`
	ObservedAt     time.Time             `json:"observedAt"`
	SourceUploadID string                `json:"sourceUploadId,omitempty"`
	Language       string                `json:"language,omitempty"`
	CreateMissing  bool                  `json:"createMissing"`
	Rows           []domain.ExtractedRow `json:"rows"`
}

// RowIssue explains why a row was not recorded
type RowIssue struct {
	Line   int    `json:"line"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// IngestResult summarizes an upload
type IngestResult struct {
	SourceUploadID string     `json:"sourceUploadId"`
	Recorded       int        `json:"recorded"`
	Created        int        `json:"created"`
	Unmatched      []RowIssue `json:"unmatched"`
	Rejected       []RowIssue `json:"rejected"`
}

// batchResolver is the batch resolution step the ingest service needs
type batchResolver interface {
	ResolveBatch(ctx context.Context, queries []string, lang string) ([]BatchOutcome, error)
}

// IngestService records extracted supplier prices against catalog products
type IngestService struct {
	resolver batchResolver
	products domain.ProductRepository
	prices   domain.PriceRepository
	logger   zerolog.Logger
}

// NewIngestService creates a new ingest service with dependencies
func NewIngestService(
	resolver batchResolver,
	products domain.ProductRepository,
	prices domain.PriceRepository,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		resolver: resolver,
		products: products,
		prices:   prices,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

type pendingRow struct {
	row       domain.ExtractedRow
	quantity  decimal.Decimal
	canonical string
}

// Ingest validates, resolves and records every row. Problems with single rows
// are reported in the result and never abort the upload.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.SupplierID) == "" {
		return nil, eris.Wrap(domain.ErrInvalidRequest, "supplier id is required")
	}
	if _, err := NormalizeLanguage(req.Language); err != nil {
		return nil, err
	}
	if req.ObservedAt.IsZero() {
		req.ObservedAt = time.Now().UTC()
	}
	if req.SourceUploadID == "" {
		req.SourceUploadID = uuid.NewString()
	}

	result := &IngestResult{
		SourceUploadID: req.SourceUploadID,
		Unmatched:      []RowIssue{},
		Rejected:       []RowIssue{},
	}

	var pending []pendingRow
	for i, row := range req.Rows {
		if row.Line == 0 {
			row.Line = i + 1
		}
		issue := validateRow(row)
		if issue != "" {
			result.Rejected = append(result.Rejected, RowIssue{Line: row.Line, Name: row.Name, Reason: issue})
			continue
		}
		canonical, _ := GetCanonicalUnit(row.Unit)
		pending = append(pending, pendingRow{row: row, quantity: quantityOrOne(row.Quantity), canonical: canonical})
	}

	names := make([]string, len(pending))
	for i, p := range pending {
		names[i] = p.row.Name
	}
	outcomes, err := s.resolver.ResolveBatch(ctx, names, req.Language)
	if err != nil {
		return nil, err
	}

	created := make(map[string]string)
	for i, p := range pending {
		productID, reason, err := s.productFor(ctx, p, outcomes[i], req.CreateMissing, created, result)
		if err != nil {
			return result, err
		}
		if productID == "" {
			result.Unmatched = append(result.Unmatched, RowIssue{Line: p.row.Line, Name: p.row.Name, Reason: reason})
			continue
		}

		obs := &domain.PriceObservation{
			ID:             uuid.NewString(),
			SupplierID:     req.SupplierID,
			ProductID:      productID,
			Amount:         p.row.Price,
			Unit:           strings.TrimSpace(p.row.Unit),
			Quantity:       p.quantity,
			ValidFrom:      req.ObservedAt,
			SourceUploadID: req.SourceUploadID,
		}
		if err := s.prices.RecordPrice(ctx, obs); err != nil {
			if errors.Is(err, domain.ErrStalePrice) || errors.Is(err, domain.ErrConcurrentUpdate) {
				result.Rejected = append(result.Rejected, RowIssue{Line: p.row.Line, Name: p.row.Name, Reason: err.Error()})
				continue
			}
			return result, eris.Wrapf(err, "record price line %d", p.row.Line)
		}
		result.Recorded++
	}

	s.logger.Info().
		Str("supplier_id", req.SupplierID).
		Str("upload_id", req.SourceUploadID).
		Int("rows", len(req.Rows)).
		Int("recorded", result.Recorded).
		Int("created", result.Created).
		Int("unmatched", len(result.Unmatched)).
		Int("rejected", len(result.Rejected)).
		Msg("price list ingested")
	return result, nil
}

// productFor picks the product for a resolved row, creating it when allowed.
// An empty id with a reason means the row stays unmatched.
func (s *IngestService) productFor(
	ctx context.Context,
	p pendingRow,
	outcome BatchOutcome,
	createMissing bool,
	created map[string]string,
	result *IngestResult,
) (string, string, error) {
	if outcome.Err == nil && outcome.Result != nil {
		return outcome.Result.ProductID, "", nil
	}
	if !createMissing {
		if outcome.Err == nil {
			return "", domain.ErrProductNotFound.Error(), nil
		}
		return "", outcome.Err.Error(), nil
	}

	name := Normalize(p.row.Name)
	key := name + "|" + p.canonical
	if id, ok := created[key]; ok {
		return id, "", nil
	}

	product := &domain.Product{
		ID:            uuid.NewString(),
		CanonicalName: name,
		CanonicalUnit: p.canonical,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, domain.ErrProductExists) {
			return "", err.Error(), nil
		}
		return "", "", eris.Wrapf(err, "create product %q", name)
	}
	created[key] = product.ID
	result.Created++
	return product.ID, "", nil
}

func validateRow(row domain.ExtractedRow) string {
	switch {
	case Normalize(row.Name) == "":
		return "empty name"
	case !row.Price.IsPositive():
		return "price must be positive"
	case row.Quantity.IsNegative():
		return "quantity must be positive"
	}
	if _, ok := GetCanonicalUnit(row.Unit); !ok {
		return "unrecognized unit " + row.Unit
	}
	return ""
}

// observedAtLayouts are the accepted forms of an upload date
var observedAtLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseObservedAt reads an upload date. Dates without a zone are UTC and an
// empty string yields the zero time.
func ParseObservedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range observedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Wrapf(domain.ErrInvalidRequest, "observed-at %q is not a date", s)
}
