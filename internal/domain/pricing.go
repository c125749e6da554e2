package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one supplier's quoted price for a product over a validity
// interval. ValidTo is nil while the observation is the current one.
type PriceObservation struct {
	ID             string          `json:"id"`
	SupplierID     string          `json:"supplierId"`
	ProductID      string          `json:"productId"`
	Amount         decimal.Decimal `json:"amount"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	ValidFrom      time.Time       `json:"validFrom"`
	ValidTo        *time.Time      `json:"validTo,omitempty"`
	SourceUploadID string          `json:"sourceUploadId,omitempty"`
}

// IsCurrent reports whether the observation is still open
func (p PriceObservation) IsCurrent() bool {
	return p.ValidTo == nil
}

// ScannedItem is a line read from an invoice or price list that the caller
// wants compared against the catalog. It is never persisted.
type ScannedItem struct {
	RawName      string          `json:"rawName"`
	Language     string          `json:"language,omitempty"`
	ProductID    string          `json:"productId,omitempty"`
	ScannedPrice decimal.Decimal `json:"scannedPrice"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	SupplierID   string          `json:"supplierId,omitempty"`
	ObservedAt   time.Time       `json:"observedAt"`
}

// CandidatePrice is an active price observation joined with its product name
type CandidatePrice struct {
	SupplierID  string          `json:"supplierId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	ObservedAt  time.Time       `json:"observedAt"`
}

// BetterDeal is a cheaper, comparable alternative to a scanned item
type BetterDeal struct {
	SupplierID     string          `json:"supplierId"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	CanonicalUnit  string          `json:"canonicalUnit"`
	Savings        decimal.Decimal `json:"savings"`
	SavingsPercent decimal.Decimal `json:"savingsPercent"`
	ObservedAt     time.Time       `json:"observedAt"`
}

// DealReport is the comparison outcome for one scanned item
type DealReport struct {
	Item          ScannedItem     `json:"item"`
	ProductID     string          `json:"productId,omitempty"`
	ProductName   string          `json:"productName,omitempty"`
	MatchScore    float64         `json:"matchScore,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	CanonicalUnit string          `json:"canonicalUnit,omitempty"`
	Comparable    bool            `json:"comparable"`
	Deals         []BetterDeal    `json:"deals"`
	Note          string          `json:"note,omitempty"`
}

// ExtractedRow is a (name, price, unit, quantity) tuple produced by upstream
// extraction or by a price-list reader.
type ExtractedRow struct {
	Line     int             `json:"line,omitempty"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
}
