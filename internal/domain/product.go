package domain

import "time"

// Product is a canonical catalog entry. (CanonicalName, CanonicalUnit) is unique.
type Product struct {
	ID            string    `json:"id"`
	CanonicalName string    `json:"canonicalName"`
	CanonicalUnit string    `json:"canonicalUnit"`
	Category      string    `json:"category,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Alias maps a normalized, language-tagged synonym to a product.
// An empty Language means the alias applies to every language.
type Alias struct {
	ID        string    `json:"id"`
	AliasText string    `json:"aliasText"`
	Language  string    `json:"language"`
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Match methods reported in MatchResult.Method
const (
	MatchMethodAlias   = "alias"
	MatchMethodExact   = "exact"
	MatchMethodOverlap = "overlap"
)

// MatchResult represents the result of resolving free text to a catalog product
type MatchResult struct {
	Query       string  `json:"query"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Score       float64 `json:"score"`
	Method      string  `json:"method"`
}

// MatchScore is the outcome of comparing one query against one candidate name.
// Reason names the guard that rejected the pair, or the scoring step used.
type MatchScore struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}
