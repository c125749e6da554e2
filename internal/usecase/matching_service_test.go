package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/monito/backend/internal/domain"
)

func newTestMatchingService(catalog *MockCatalog, minConfidence float64) *MatchingService {
	aliases := newTestAliasService(catalog, NewMockCacheRepository())
	return NewMatchingService(aliases, catalog, MatchConfig{MinConfidence: minConfidence, Workers: 4}, zerolog.Nop())
}

func TestMatch(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		candidate  string
		wantScore  float64
		wantReason string
	}{
		{name: "sweet potato never matches potato", query: "sweet potato", candidate: "potato", wantScore: 0, wantReason: ReasonExclusiveModifierMismatch},
		{name: "red onion never matches white onion", query: "red onion", candidate: "white onion", wantScore: 0, wantReason: ReasonExclusiveModifierMismatch},
		{name: "different core nouns", query: "carrot", candidate: "potato", wantScore: 0, wantReason: ReasonCoreNounMismatch},
		{name: "core noun guard runs first", query: "red carrot", candidate: "white potato", wantScore: 0, wantReason: ReasonCoreNounMismatch},
		{name: "identical after normalization", query: "Wortel!", candidate: "carrot", wantScore: 100, wantReason: ReasonExact},
		{name: "word order overlap", query: "cebolla roja", candidate: "red onion", wantScore: 100, wantReason: ReasonOverlap},
		{name: "descriptive modifier halves overlap", query: "baby carrot", candidate: "carrot", wantScore: 50, wantReason: ReasonOverlap},
		{name: "query without modifiers matches variety", query: "potato", candidate: "sweet potato", wantScore: 50, wantReason: ReasonOverlap},
		{name: "generic fragment matches broadly", query: "fresh", candidate: "fresh carrot", wantScore: 50, wantReason: ReasonOverlap},
		{name: "empty query", query: "  ", candidate: "carrot", wantScore: 0, wantReason: ReasonEmpty},
		{name: "empty candidate", query: "carrot", candidate: "", wantScore: 0, wantReason: ReasonEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Match(tc.query, tc.candidate)
			if got.Score != tc.wantScore {
				t.Errorf("Match(%q, %q).Score = %v, want %v", tc.query, tc.candidate, got.Score, tc.wantScore)
			}
			if got.Reason != tc.wantReason {
				t.Errorf("Match(%q, %q).Reason = %q, want %q", tc.query, tc.candidate, got.Reason, tc.wantReason)
			}
		})
	}
}

func TestMatch_ScoreBounds(t *testing.T) {
	names := []string{"carrot", "baby carrot", "sweet potato", "potato", "red onion", "onion red red", "chicken breast fillet", "", "fresh"}
	for _, q := range names {
		for _, c := range names {
			got := Match(q, c).Score
			if got < 0 || got > 100 {
				t.Errorf("Match(%q, %q) = %v, want within [0, 100]", q, c, got)
			}
		}
	}
}

func TestMatchGuards_Order(t *testing.T) {
	if len(matchGuards) != 2 {
		t.Fatalf("len(matchGuards) = %d, want 2", len(matchGuards))
	}
	if matchGuards[0].name != ReasonCoreNounMismatch || matchGuards[1].name != ReasonExclusiveModifierMismatch {
		t.Errorf("guard order = %s, %s", matchGuards[0].name, matchGuards[1].name)
	}
}

func TestNewMatchingService(t *testing.T) {
	t.Run("uses provided threshold", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{MinConfidence: 75}, zerolog.Nop())
		if svc.MinConfidence() != 75 {
			t.Errorf("MinConfidence() = %v, want 75", svc.MinConfidence())
		}
	})

	t.Run("uses default threshold when zero", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, zerolog.Nop())
		if svc.MinConfidence() != defaultMinConfidence {
			t.Errorf("MinConfidence() = %v, want %v", svc.MinConfidence(), defaultMinConfidence)
		}
		if svc.workers <= 0 {
			t.Errorf("workers = %d, want positive default", svc.workers)
		}
	})
}

func TestMatchingService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("alias hit short-circuits with full confidence", func(t *testing.T) {
		catalog := testCatalog()
		catalog.addAlias("a1", "ubi", "id", "p-sweet-potato")
		svc := newTestMatchingService(catalog, 60)

		got, err := svc.Resolve(ctx, "Ubi", "id")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.ProductID != "p-sweet-potato" || got.Score != 100 || got.Method != domain.MatchMethodAlias {
			t.Errorf("Resolve() = %+v, want alias hit on p-sweet-potato", got)
		}
		if got.ProductName != "sweet potato" {
			t.Errorf("ProductName = %q, want sweet potato", got.ProductName)
		}
	})

	t.Run("exact catalog name", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		got, err := svc.Resolve(ctx, "KENTANG", "id")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.ProductID != "p-potato" || got.Method != domain.MatchMethodExact {
			t.Errorf("Resolve() = %+v, want exact p-potato", got)
		}
	})

	t.Run("guards keep sweet potato away from potato", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		got, err := svc.Resolve(ctx, "kentang manis segar", "id")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.ProductID != "p-sweet-potato" {
			t.Errorf("Resolve() = %s, want p-sweet-potato", got.ProductID)
		}
	})

	t.Run("translated colors pick the right onion", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		got, err := svc.Resolve(ctx, "cebolla blanca", "es")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.ProductID != "p-white-onion" {
			t.Errorf("Resolve() = %s, want p-white-onion", got.ProductID)
		}
	})

	t.Run("below threshold returns best with ErrLowConfidence", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		got, err := svc.Resolve(ctx, "baby carrot", "")
		if !errors.Is(err, domain.ErrLowConfidence) {
			t.Fatalf("Resolve() error = %v, want ErrLowConfidence", err)
		}
		if got == nil || got.ProductID != "p-carrot" || got.Score != 50 {
			t.Errorf("Resolve() = %+v, want p-carrot at 50", got)
		}
	})

	t.Run("nothing comparable", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		if _, err := svc.Resolve(ctx, "durian", ""); !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("Resolve() error = %v, want ErrProductNotFound", err)
		}
	})

	t.Run("blank query", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		if _, err := svc.Resolve(ctx, " - ", ""); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Resolve() error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("catalog failure", func(t *testing.T) {
		catalog := testCatalog()
		catalog.listError = errors.New("db down")
		svc := newTestMatchingService(catalog, 60)
		_, err := svc.Resolve(ctx, "carrot", "")
		if err == nil || IsItemError(err) {
			t.Errorf("Resolve() error = %v, want store error", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := svc.Resolve(cctx, "carrot", ""); !errors.Is(err, context.Canceled) {
			t.Errorf("Resolve() error = %v, want context.Canceled", err)
		}
	})
}

func TestMatchingService_ResolveBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves in input order with item errors", func(t *testing.T) {
		catalog := testCatalog()
		svc := newTestMatchingService(catalog, 60)

		queries := []string{"wortel", "durian", "cebolla roja", "", "ayam dada"}
		got, err := svc.ResolveBatch(ctx, queries, "")
		if err != nil {
			t.Fatalf("ResolveBatch() error = %v", err)
		}
		if len(got) != len(queries) {
			t.Fatalf("len(outcomes) = %d, want %d", len(got), len(queries))
		}

		if got[0].Err != nil || got[0].Result.ProductID != "p-carrot" {
			t.Errorf("outcome[0] = %+v, want p-carrot", got[0])
		}
		if !errors.Is(got[1].Err, domain.ErrProductNotFound) {
			t.Errorf("outcome[1].Err = %v, want ErrProductNotFound", got[1].Err)
		}
		if got[2].Err != nil || got[2].Result.ProductID != "p-red-onion" {
			t.Errorf("outcome[2] = %+v, want p-red-onion", got[2])
		}
		if !errors.Is(got[3].Err, domain.ErrInvalidRequest) {
			t.Errorf("outcome[3].Err = %v, want ErrInvalidRequest", got[3].Err)
		}
		if got[4].Err != nil || got[4].Result.ProductID != "p-chicken-breast" {
			t.Errorf("outcome[4] = %+v, want p-chicken-breast", got[4])
		}
		for i, q := range queries {
			if got[i].Query != q {
				t.Errorf("outcome[%d].Query = %q, want %q", i, got[i].Query, q)
			}
		}
		if catalog.listCalls != 1 {
			t.Errorf("listCalls = %d, want 1 catalog snapshot", catalog.listCalls)
		}
	})

	t.Run("large batch", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		spellings := []string{"wortel", "Carrot!", "zanahoria"}
		queries := make([]string, 200)
		for i := range queries {
			queries[i] = spellings[i%len(spellings)]
		}
		got, err := svc.ResolveBatch(ctx, queries, "")
		if err != nil {
			t.Fatalf("ResolveBatch() error = %v", err)
		}
		for i, o := range got {
			if o.Err != nil || o.Result.ProductID != "p-carrot" {
				t.Fatalf("outcome[%d] = %+v, want p-carrot", i, o)
			}
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		got, err := svc.ResolveBatch(ctx, nil, "")
		if err != nil || len(got) != 0 {
			t.Errorf("ResolveBatch(nil) = %v, %v", got, err)
		}
	})

	t.Run("store failure aborts batch", func(t *testing.T) {
		catalog := testCatalog()
		catalog.findError = errors.New("db down")
		svc := newTestMatchingService(catalog, 60)
		if _, err := svc.ResolveBatch(ctx, []string{"carrot", "potato"}, ""); err == nil {
			t.Error("ResolveBatch() error = nil, want store error")
		}
	})

	t.Run("cancelled batch", func(t *testing.T) {
		svc := newTestMatchingService(testCatalog(), 60)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := svc.ResolveBatch(cctx, []string{"carrot"}, ""); !errors.Is(err, context.Canceled) {
			t.Errorf("ResolveBatch() error = %v, want context.Canceled", err)
		}
	})
}
