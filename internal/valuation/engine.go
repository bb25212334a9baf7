// Package valuation derives stock positions and weighted-average costs from
// the transaction ledger. Every recomputation is a full rescan of the live
// (non-tombstoned) history for its scope, so recomputing is idempotent and a
// stale derived row heals on the next pass.
package valuation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gudangku/backend/internal/cache"
	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
)

const stockCacheTTL = 10 * time.Minute

// Pair identifies one derived stock row.
type Pair struct {
	BranchID int64
	ItemID   int64
}

type Engine struct {
	repo       store.Repository
	stockCache cache.StockCache
	logger     *log.Logger
	now        func() time.Time
}

func NewEngine(repo store.Repository, stockCache cache.StockCache) *Engine {
	if stockCache == nil {
		stockCache = cache.NoopStockCache{}
	}
	return &Engine{
		repo:       repo,
		stockCache: stockCache,
		logger:     log.New(log.Writer(), "[valuation] ", log.LstdFlags),
		now:        time.Now,
	}
}

// RecomputeStock rebuilds the stock position for one (branch, item) pair from
// scratch. Purchases and both return-to-us categories credit the branch,
// outgoing sales and purchase returns debit it, transfers credit the
// destination and debit the source, and adjustments contribute their signed
// gap directly. The result fully overwrites the stored row.
func (e *Engine) RecomputeStock(ctx context.Context, branchID int64, itemID int64) (*domain.StockPosition, error) {
	var total int64

	inbound := []domain.LedgerCategory{domain.CategoryPurchase, domain.CategorySalesReturn, domain.CategorySellReturn}
	outbound := []domain.LedgerCategory{domain.CategoryPurchaseReturn, domain.CategorySales, domain.CategorySell}

	for _, category := range inbound {
		qty, err := e.repo.SumQuantity(ctx, branchID, itemID, category)
		if err != nil {
			return nil, fmt.Errorf("sum %s: %w", category, err)
		}
		total += qty
	}
	for _, category := range outbound {
		qty, err := e.repo.SumQuantity(ctx, branchID, itemID, category)
		if err != nil {
			return nil, fmt.Errorf("sum %s: %w", category, err)
		}
		total -= qty
	}

	transferIn, err := e.repo.SumTransferQuantity(ctx, branchID, itemID, true)
	if err != nil {
		return nil, fmt.Errorf("sum transfer in: %w", err)
	}
	transferOut, err := e.repo.SumTransferQuantity(ctx, branchID, itemID, false)
	if err != nil {
		return nil, fmt.Errorf("sum transfer out: %w", err)
	}
	total += transferIn - transferOut

	gap, err := e.repo.SumAdjustmentGap(ctx, branchID, itemID)
	if err != nil {
		return nil, fmt.Errorf("sum adjustment gap: %w", err)
	}
	total += gap

	position := domain.StockPosition{
		BranchID:      branchID,
		ItemID:        itemID,
		RecordedStock: total,
		UpdatedAt:     e.now().UTC(),
	}
	if err := e.repo.UpsertStockPosition(ctx, position); err != nil {
		return nil, fmt.Errorf("upsert stock position: %w", err)
	}
	if err := e.stockCache.Set(ctx, position, stockCacheTTL); err != nil {
		e.logger.Printf("WARN: refresh stock cache branch=%d item=%d: %v", branchID, itemID, err)
	}
	return &position, nil
}

// RecomputeCost rebuilds the weighted-average base-unit cost for one item and
// re-derives the per-variant cost and profit figures. The average is net
// purchase amount over net purchase quantity; a non-positive net quantity
// resolves to a zero average rather than an error.
func (e *Engine) RecomputeCost(ctx context.Context, itemID int64) (*domain.CostBasis, error) {
	purchases, err := e.repo.PurchaseCostTotals(ctx, itemID, domain.CategoryPurchase)
	if err != nil {
		return nil, fmt.Errorf("purchase totals: %w", err)
	}
	returns, err := e.repo.PurchaseCostTotals(ctx, itemID, domain.CategoryPurchaseReturn)
	if err != nil {
		return nil, fmt.Errorf("purchase return totals: %w", err)
	}

	netQty := purchases.Qty - returns.Qty
	average := decimal.Zero
	if netQty > 0 {
		average = purchases.Amount.Sub(returns.Amount).Div(decimal.NewFromInt(netQty))
	}

	variants, err := e.repo.ListVariants(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	for i := range variants {
		cost := average.Mul(decimal.NewFromInt(variants[i].ConversionFactor))
		profit := variants[i].SellPrice.Sub(cost)
		pct := decimal.Zero
		if cost.IsPositive() {
			pct = profit.Div(cost).Mul(decimal.NewFromInt(100))
		}
		variants[i].CostAtConversion = cost
		variants[i].ProfitAmount = profit
		variants[i].ProfitPercentage = pct
	}

	basis := domain.CostBasis{ItemID: itemID, AverageBaseCost: average}
	if err := e.repo.ApplyCostBasis(ctx, basis, variants); err != nil {
		return nil, fmt.Errorf("apply cost basis: %w", err)
	}
	return &basis, nil
}

// Refresh recomputes every given stock pair and item cost concurrently and
// waits for all of them. Duplicates are collapsed so sibling ledger lines for
// the same pair trigger one recomputation.
func (e *Engine) Refresh(ctx context.Context, pairs []Pair, costItemIDs []int64) error {
	seenPairs := make(map[Pair]bool, len(pairs))
	seenItems := make(map[int64]bool, len(costItemIDs))

	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range pairs {
		if seenPairs[pair] {
			continue
		}
		seenPairs[pair] = true
		pair := pair
		g.Go(func() error {
			if _, err := e.RecomputeStock(gctx, pair.BranchID, pair.ItemID); err != nil {
				return fmt.Errorf("recompute stock branch=%d item=%d: %w", pair.BranchID, pair.ItemID, err)
			}
			return nil
		})
	}
	for _, itemID := range costItemIDs {
		if seenItems[itemID] {
			continue
		}
		seenItems[itemID] = true
		itemID := itemID
		g.Go(func() error {
			if _, err := e.RecomputeCost(gctx, itemID); err != nil {
				return fmt.Errorf("recompute cost item=%d: %w", itemID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
