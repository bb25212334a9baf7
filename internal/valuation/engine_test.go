package valuation

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store/memory"
)

func newTestEngine() (*Engine, *memory.Store) {
	repo := memory.NewSeeded()
	return NewEngine(repo, nil), repo
}

func mustCreate(t *testing.T, repo *memory.Store, tx domain.Transaction) *domain.Transaction {
	t.Helper()
	created, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	return created
}

func tradeLine(branchID, itemID, variantID, qty, factor int64, subtotal, afterTax int64) domain.LedgerLine {
	return domain.LedgerLine{
		BranchID:         branchID,
		ItemID:           itemID,
		VariantID:        variantID,
		EnteredQty:       qty,
		ConversionFactor: factor,
		TotalQty:         qty * factor,
		Subtotal:         decimal.NewFromInt(subtotal),
		AfterTaxSubtotal: decimal.NewFromInt(afterTax),
	}
}

func TestRecomputeStockCategorySigns(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 100, 1, 1000000, 1100000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchaseReturn, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 10, 1, 100000, 100000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategorySales, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 20, 1, 320000, 320000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategorySalesReturn, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 5, 1, 80000, 80000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategorySell, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 8, 1, 128000, 128000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategorySellReturn, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 3, 1, 48000, 48000)},
	})

	position, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("recompute stock failed: %v", err)
	}

	// 100 - 10 - 20 + 5 - 8 + 3
	if position.RecordedStock != 70 {
		t.Fatalf("expected stock 70, got %d", position.RecordedStock)
	}
}

func TestRecomputeStockTransferMovesBetweenBranches(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 40, 1, 400000, 400000)},
	})
	transfer := tradeLine(2, 1, 1, 15, 1, 0, 0)
	transfer.SourceBranchID = 1
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryTransfer, BranchID: 2, SourceBranchID: 1,
		Lines: []domain.LedgerLine{transfer},
	})

	source, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("recompute source failed: %v", err)
	}
	destination, err := engine.RecomputeStock(ctx, 2, 1)
	if err != nil {
		t.Fatalf("recompute destination failed: %v", err)
	}

	if source.RecordedStock != 25 {
		t.Fatalf("expected source stock 25, got %d", source.RecordedStock)
	}
	if destination.RecordedStock != 15 {
		t.Fatalf("expected destination stock 15, got %d", destination.RecordedStock)
	}
	if source.RecordedStock+destination.RecordedStock != 40 {
		t.Fatalf("transfer must conserve total stock")
	}
}

func TestRecomputeStockCountsAdjustmentGapOncePerSubmission(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	// Two sibling rows from one physical count, both carrying the group gap.
	first := domain.LedgerLine{BranchID: 1, ItemID: 1, VariantID: 1, EnteredQty: 3, ConversionFactor: 1, TotalQty: 3, GapQty: -7, TotalGap: -7, FinalQty: 3}
	second := domain.LedgerLine{BranchID: 1, ItemID: 1, VariantID: 2, EnteredQty: 2, ConversionFactor: 25, TotalQty: 50, GapQty: -7, TotalGap: -7, FinalQty: 2}
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryAdjustment, BranchID: 1,
		Lines: []domain.LedgerLine{first, second},
	})

	position, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("recompute stock failed: %v", err)
	}
	if position.RecordedStock != -7 {
		t.Fatalf("expected gap counted once (-7), got %d", position.RecordedStock)
	}
}

func TestRecomputeStockIsIdempotent(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 2, 4, 25, 1520000, 1520000)},
	})

	first, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("first recompute failed: %v", err)
	}
	second, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("second recompute failed: %v", err)
	}
	if first.RecordedStock != second.RecordedStock {
		t.Fatalf("recompute is not idempotent: %d vs %d", first.RecordedStock, second.RecordedStock)
	}
	if first.RecordedStock != 100 {
		t.Fatalf("expected 100 base units, got %d", first.RecordedStock)
	}
}

func TestRecomputeStockMatchesFullRescan(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	rng := rand.New(rand.NewSource(42))
	var expected int64
	for i := 0; i < 40; i++ {
		qty := int64(rng.Intn(20) + 1)
		line := tradeLine(1, 1, 1, qty, 1, qty*10000, qty*10000)
		category := domain.CategoryPurchase
		if rng.Intn(2) == 1 {
			category = domain.CategorySales
			expected -= qty
		} else {
			expected += qty
		}
		mustCreate(t, repo, domain.Transaction{
			Category: category, BranchID: 1,
			Lines: []domain.LedgerLine{line},
		})
	}

	position, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("recompute stock failed: %v", err)
	}
	if position.RecordedStock != expected {
		t.Fatalf("expected %d from manual tally, got %d", expected, position.RecordedStock)
	}
}

func TestRecomputeStockExcludesTombstonedHistory(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 30, 1, 300000, 300000)},
	})
	drop := mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 99, 1, 990000, 990000)},
	})

	if _, err := repo.SoftDeleteTransaction(ctx, drop.ID, drop.CreatedAt.Add(time.Second)); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	position, err := engine.RecomputeStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("recompute stock failed: %v", err)
	}
	if position.RecordedStock != 30 {
		t.Fatalf("expected tombstoned purchase excluded, got %d", position.RecordedStock)
	}
}

func TestRecomputeCostWeightedAverage(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 10, 1, 100000, 110000)},
	})

	basis, err := engine.RecomputeCost(ctx, 1)
	if err != nil {
		t.Fatalf("recompute cost failed: %v", err)
	}
	if !basis.AverageBaseCost.Equal(decimal.NewFromInt(11000)) {
		t.Fatalf("expected average 11000 (after-tax 110000 over 10 units), got %s", basis.AverageBaseCost)
	}

	item, err := repo.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if !item.AverageBaseCost.Equal(decimal.NewFromInt(11000)) {
		t.Fatalf("item average not persisted: %s", item.AverageBaseCost)
	}

	variants, err := repo.ListVariants(ctx, 1)
	if err != nil {
		t.Fatalf("list variants failed: %v", err)
	}
	for _, v := range variants {
		wantCost := decimal.NewFromInt(11000 * v.ConversionFactor)
		if !v.CostAtConversion.Equal(wantCost) {
			t.Fatalf("variant %d: expected cost %s, got %s", v.ID, wantCost, v.CostAtConversion)
		}
		wantProfit := v.SellPrice.Sub(wantCost)
		if !v.ProfitAmount.Equal(wantProfit) {
			t.Fatalf("variant %d: expected profit %s, got %s", v.ID, wantProfit, v.ProfitAmount)
		}
		wantPct := wantProfit.Div(wantCost).Mul(decimal.NewFromInt(100))
		if !v.ProfitPercentage.Equal(wantPct) {
			t.Fatalf("variant %d: expected profit pct %s, got %s", v.ID, wantPct, v.ProfitPercentage)
		}
	}
}

func TestRecomputeCostReturnsReduceAverage(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 10, 1, 100000, 100000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchaseReturn, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 4, 1, 60000, 60000)},
	})

	basis, err := engine.RecomputeCost(ctx, 1)
	if err != nil {
		t.Fatalf("recompute cost failed: %v", err)
	}
	// (100000 - 60000) / (10 - 4)
	want := decimal.NewFromInt(40000).Div(decimal.NewFromInt(6))
	if !basis.AverageBaseCost.Equal(want) {
		t.Fatalf("expected average %s, got %s", want, basis.AverageBaseCost)
	}
}

func TestRecomputeCostZeroWhenNetQtyNotPositive(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 5, 1, 50000, 50000)},
	})
	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchaseReturn, BranchID: 1,
		Lines: []domain.LedgerLine{tradeLine(1, 1, 1, 5, 1, 50000, 50000)},
	})

	basis, err := engine.RecomputeCost(ctx, 1)
	if err != nil {
		t.Fatalf("recompute cost failed: %v", err)
	}
	if !basis.AverageBaseCost.IsZero() {
		t.Fatalf("expected zero average when net quantity is zero, got %s", basis.AverageBaseCost)
	}

	variants, err := repo.ListVariants(ctx, 1)
	if err != nil {
		t.Fatalf("list variants failed: %v", err)
	}
	for _, v := range variants {
		if !v.ProfitPercentage.IsZero() {
			t.Fatalf("variant %d: profit percentage must be zero when cost is zero, got %s", v.ID, v.ProfitPercentage)
		}
	}
}

func TestRefreshRecomputesAllPairs(t *testing.T) {
	engine, repo := newTestEngine()
	ctx := context.Background()

	mustCreate(t, repo, domain.Transaction{
		Category: domain.CategoryPurchase, BranchID: 1,
		Lines: []domain.LedgerLine{
			tradeLine(1, 1, 1, 12, 1, 120000, 120000),
			tradeLine(1, 2, 3, 7, 1, 140000, 140000),
		},
	})

	err := engine.Refresh(ctx, []Pair{
		{BranchID: 1, ItemID: 1},
		{BranchID: 1, ItemID: 1},
		{BranchID: 1, ItemID: 2},
	}, []int64{1, 2, 2})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	first, err := repo.GetStockPosition(ctx, 1, 1)
	if err != nil {
		t.Fatalf("position 1 missing: %v", err)
	}
	second, err := repo.GetStockPosition(ctx, 1, 2)
	if err != nil {
		t.Fatalf("position 2 missing: %v", err)
	}
	if first.RecordedStock != 12 || second.RecordedStock != 7 {
		t.Fatalf("expected 12 and 7, got %d and %d", first.RecordedStock, second.RecordedStock)
	}

	item, err := repo.GetItem(ctx, 2)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if !item.AverageBaseCost.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("expected average 20000, got %s", item.AverageBaseCost)
	}
}
