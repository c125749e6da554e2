package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/monito/backend/internal/domain"
	"github.com/monito/backend/internal/infrastructure/cache"
	"github.com/monito/backend/internal/infrastructure/pricelist"
	"github.com/monito/backend/internal/usecase"
)

const maxBatchSize = 1000

// Services are the use cases served over HTTP
type Services struct {
	Catalog  *usecase.CatalogService
	Aliases  *usecase.AliasService
	Matching *usecase.MatchingService
	Deals    *usecase.DealService
	Ingest   *usecase.IngestService
	Cache    *cache.MemoryCache
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services Services
	layout   pricelist.Layout
}

// NewHandler creates a new HTTP handler. layout locates columns in uploaded
// price lists.
func NewHandler(services Services, layout pricelist.Layout) *Handler {
	return &Handler{services: services, layout: layout}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrAliasNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAliasConflict),
		errors.Is(err, domain.ErrAliasExists),
		errors.Is(err, domain.ErrProductExists),
		errors.Is(err, domain.ErrStalePrice),
		errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(errors.New(eris.ToString(err, false)))
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": "monito-backend",
		"version": "1.0.0",
	}
	if h.services.Cache != nil {
		body["aliasCache"] = h.services.Cache.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// --- Matching ---

type matchRequest struct {
	Query     string `json:"query"`
	Candidate string `json:"candidate"`
}

// Match scores a query against one candidate name
func (h *Handler) Match(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.Match(req.Query, req.Candidate))
}

type resolveRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

// ResolveResponse is a match result flagged when it fell below the threshold
type ResolveResponse struct {
	*domain.MatchResult
	LowConfidence bool    `json:"lowConfidence"`
	MinConfidence float64 `json:"minConfidence"`
}

// Resolve maps free text to a catalog product
func (h *Handler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.services.Matching.Resolve(c.Request.Context(), req.Query, req.Language)
	if err != nil && !errors.Is(err, domain.ErrLowConfidence) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{
		MatchResult:   result,
		LowConfidence: errors.Is(err, domain.ErrLowConfidence),
		MinConfidence: h.services.Matching.MinConfidence(),
	})
}

type resolveBatchRequest struct {
	Queries  []string `json:"queries"`
	Language string   `json:"language"`
}

// BatchItem is one resolution in a batch response
type BatchItem struct {
	Query         string              `json:"query"`
	Result        *domain.MatchResult `json:"result,omitempty"`
	LowConfidence bool                `json:"lowConfidence"`
	Error         string              `json:"error,omitempty"`
}

// ResolveBatch resolves many queries against one catalog snapshot
func (h *Handler) ResolveBatch(c *gin.Context) {
	var req resolveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Queries) > maxBatchSize {
		respondError(c, eris.Wrapf(domain.ErrInvalidRequest, "at most %d queries per batch", maxBatchSize))
		return
	}

	outcomes, err := h.services.Matching.ResolveBatch(c.Request.Context(), req.Queries, req.Language)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]BatchItem, len(outcomes))
	for i, o := range outcomes {
		items[i] = BatchItem{Query: o.Query, Result: o.Result}
		if o.Err != nil {
			items[i].LowConfidence = errors.Is(o.Err, domain.ErrLowConfidence)
			items[i].Error = o.Err.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// --- Units ---

type unitPriceRequest struct {
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
}

// UnitPrice returns the price of one canonical unit
func (h *Handler) UnitPrice(c *gin.Context) {
	var req unitPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	price, ok := usecase.CalculateUnitPrice(req.TotalPrice, req.Quantity, req.Unit)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "no unit price for the given price, quantity and unit"})
		return
	}
	canonical, _ := usecase.GetCanonicalUnit(req.Unit)
	c.JSON(http.StatusOK, gin.H{"unitPrice": price, "canonicalUnit": canonical})
}

// ConvertUnits converts a quantity between comparable units
func (h *Handler) ConvertUnits(c *gin.Context) {
	qty, err := decimal.NewFromString(c.Query("quantity"))
	if err != nil {
		badRequest(c, eris.Wrap(err, "quantity"))
		return
	}
	from, to := c.Query("from"), c.Query("to")

	converted, ok := usecase.ConvertQuantity(qty, from, to)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "units " + from + " and " + to + " are not comparable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quantity": converted, "unit": to})
}

// ListUnits returns every recognized unit token
func (h *Handler) ListUnits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"units": usecase.Units()})
}

// --- Deals ---

type compareRequest struct {
	Items []domain.ScannedItem `json:"items"`
}

// CompareDeals returns cheaper alternatives for each scanned item
func (h *Handler) CompareDeals(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Items) == 0 || len(req.Items) > maxBatchSize {
		respondError(c, eris.Wrapf(domain.ErrInvalidRequest, "between 1 and %d items required", maxBatchSize))
		return
	}

	reports, err := h.services.Deals.CompareBatch(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// --- Catalog ---

type createProductRequest struct {
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// CreateProduct adds a canonical product
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := h.services.Catalog.CreateProduct(c.Request.Context(), req.Name, req.Unit, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// ListProducts returns the catalog
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.services.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct returns one product
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.services.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListProductAliases returns a product's aliases
func (h *Handler) ListProductAliases(c *gin.Context) {
	aliases, err := h.services.Aliases.ListAliases(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if aliases == nil {
		aliases = []domain.Alias{}
	}
	c.JSON(http.StatusOK, gin.H{"aliases": aliases})
}

// ActivePrices returns the current price of every supplier for a product
func (h *Handler) ActivePrices(c *gin.Context) {
	prices, err := h.services.Catalog.ActivePrices(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

// PriceHistory returns one supplier's observations for a product
func (h *Handler) PriceHistory(c *gin.Context) {
	history, err := h.services.Catalog.PriceHistory(c.Request.Context(), c.Param("supplierId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

type createAliasRequest struct {
	ProductID string `json:"productId"`
	AliasText string `json:"aliasText"`
	Language  string `json:"language"`
}

// CreateAlias maps a synonym to a product; 409 when it maps elsewhere
func (h *Handler) CreateAlias(c *gin.Context) {
	var req createAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	alias, err := h.services.Aliases.CreateAlias(c.Request.Context(), req.ProductID, req.AliasText, req.Language)
	if err != nil {
		if errors.Is(err, domain.ErrAliasConflict) && alias != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "existing": alias})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alias)
}

// DeleteAlias removes an alias
func (h *Handler) DeleteAlias(c *gin.Context) {
	if err := h.services.Aliases.DeleteAlias(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Prices ---

// IngestPrices records extracted rows for a supplier
func (h *Handler) IngestPrices(c *gin.Context) {
	var req usecase.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.ingest(c, req)
}

// UploadPriceList reads a CSV, XLSX or XLS file from a multipart form and
// ingests its rows
func (h *Handler) UploadPriceList(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, eris.Wrap(err, "file"))
		return
	}
	observedAt, err := usecase.ParseObservedAt(c.PostForm("observedAt"))
	if err != nil {
		respondError(c, err)
		return
	}
	createMissing, _ := strconv.ParseBool(c.DefaultPostForm("createMissing", "false"))

	f, err := header.Open()
	if err != nil {
		respondError(c, eris.Wrap(err, "open upload"))
		return
	}
	defer f.Close()

	rows, err := pricelist.Read(f, header.Filename, h.layout)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			badRequest(c, err)
			return
		}
		respondError(c, err)
		return
	}

	h.ingest(c, usecase.IngestRequest{
		SupplierID:     c.PostForm("supplierId"),
		ObservedAt:     observedAt,
		SourceUploadID: c.PostForm("sourceUploadId"),
		Language:       c.PostForm("language"),
		CreateMissing:  createMissing,
		Rows:           rows,
	})
}

func (h *Handler) ingest(c *gin.Context, req usecase.IngestRequest) {
	result, err := h.services.Ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
