package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/cache"
	"gudangku/backend/internal/discount"
	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/valuation"
	"gudangku/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var hundred = decimal.NewFromInt(100)

type Service struct {
	repo            store.Repository
	engine          *valuation.Engine
	stockCache      cache.StockCache
	defaultBranchID int64
}

func New(repo store.Repository, engine *valuation.Engine, stockCache cache.StockCache, defaultBranchID int64) *Service {
	if stockCache == nil {
		stockCache = cache.NoopStockCache{}
	}
	if defaultBranchID == 0 {
		defaultBranchID = 1
	}

	return &Service{
		repo:            repo,
		engine:          engine,
		stockCache:      stockCache,
		defaultBranchID: defaultBranchID,
	}
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (domain.Branch, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Branch{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Branch{}, store.ErrInvalidTransaction
	}

	created, err := s.repo.CreateBranch(ctx, domain.Branch{
		Name:    req.Name,
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Branch{}, err
	}

	s.logAudit(ctx, created.ID, "branch_create", "branch", fmt.Sprintf("%d", created.ID), fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) GetItem(ctx context.Context, itemID int64) (domain.Item, []domain.ItemVariant, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, nil, err
	}
	variants, err := s.repo.ListVariants(ctx, itemID)
	if err != nil {
		return domain.Item{}, nil, err
	}
	return *item, variants, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, []domain.ItemVariant, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Item{}, nil, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" || len(req.Variants) == 0 {
		return domain.Item{}, nil, store.ErrInvalidTransaction
	}

	variants := make([]domain.ItemVariant, 0, len(req.Variants))
	for _, v := range req.Variants {
		unitName := strings.TrimSpace(v.UnitName)
		if unitName == "" || v.ConversionFactor < 1 || v.SellPrice.IsNegative() {
			return domain.Item{}, nil, store.ErrInvalidTransaction
		}
		variants = append(variants, domain.ItemVariant{
			UnitName:         unitName,
			ConversionFactor: v.ConversionFactor,
			SellPrice:        v.SellPrice,
		})
	}

	item, created, err := s.repo.CreateItem(ctx, domain.Item{Name: req.Name, Category: req.Category}, variants)
	if err != nil {
		return domain.Item{}, nil, err
	}

	s.logAudit(ctx, 0, "item_create", "item", fmt.Sprintf("%d", item.ID), fmt.Sprintf("name=%s,variants=%d", item.Name, len(created)))
	return *item, created, nil
}

// returnOrigins maps each return category to the category its reference must
// point at.
var returnOrigins = map[domain.LedgerCategory]domain.LedgerCategory{
	domain.CategoryPurchaseReturn: domain.CategoryPurchase,
	domain.CategorySalesReturn:    domain.CategorySales,
	domain.CategorySellReturn:     domain.CategorySell,
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.TradeRequest) (domain.Transaction, error) {
	return s.createTrade(ctx, domain.CategoryPurchase, req)
}

func (s *Service) CreatePurchaseReturn(ctx context.Context, req domain.TradeRequest) (domain.Transaction, error) {
	return s.createTrade(ctx, domain.CategoryPurchaseReturn, req)
}

func (s *Service) CreateSales(ctx context.Context, req domain.TradeRequest) (domain.Transaction, error) {
	return s.createTrade(ctx, domain.CategorySales, req)
}

func (s *Service) CreateSalesReturn(ctx context.Context, req domain.TradeRequest) (domain.Transaction, error) {
	return s.createTrade(ctx, domain.CategorySalesReturn, req)
}

func (s *Service) CreateSell(ctx context.Context, req domain.TradeRequest) (domain.Transaction, error) {
	return s.createTrade(ctx, domain.CategorySell, req)
}

func (s *Service) CreateSellReturn(ctx context.Context, req domain.TradeRequest) (domain.Transaction, error) {
	return s.createTrade(ctx, domain.CategorySellReturn, req)
}

func (s *Service) createTrade(ctx context.Context, category domain.LedgerCategory, req domain.TradeRequest) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("authentication required")
	}

	if req.BranchID == 0 {
		req.BranchID = s.defaultBranchID
	}
	if _, err := s.repo.GetBranch(ctx, req.BranchID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Transaction{}, fmt.Errorf("%w: branch %d", store.ErrNotFound, req.BranchID)
		}
		return domain.Transaction{}, err
	}
	if len(req.Lines) == 0 {
		return domain.Transaction{}, store.ErrInvalidTransaction
	}

	if origin, isReturn := returnOrigins[category]; isReturn {
		if req.ReferenceID == "" {
			return domain.Transaction{}, fmt.Errorf("%w: return requires a reference transaction", store.ErrInvalidTransaction)
		}
		original, err := s.repo.GetTransaction(ctx, req.ReferenceID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if original.Category != origin || original.DeletedAt != nil {
			return domain.Transaction{}, fmt.Errorf("%w: reference %s is not a live %s", store.ErrInvalidTransaction, req.ReferenceID, origin)
		}
	}

	lines, pairs, costItems, err := s.buildTradeLines(ctx, category, req.BranchID, req.Lines)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		ID:          xid.New("txn"),
		Category:    category,
		BranchID:    req.BranchID,
		ReferenceID: req.ReferenceID,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedBy:   actor.Username,
		CreatedAt:   time.Now().UTC(),
		Lines:       lines,
	}
	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logAudit(ctx, req.BranchID, string(category)+"_create", "transaction", created.ID, fmt.Sprintf("lines=%d", len(created.Lines)))

	if err := s.engine.Refresh(ctx, pairs, costItems); err != nil {
		log.Printf("[service] WARN: derived state refresh after %s %s: %v", category, created.ID, err)
		return domain.Transaction{}, err
	}
	return *created, nil
}

// buildTradeLines resolves variants and prices one line at a time: gross in
// entered units, then the discount cascade against the running balance, then
// tax on what remains.
func (s *Service) buildTradeLines(ctx context.Context, category domain.LedgerCategory, branchID int64, inputs []domain.TradeLineInput) ([]domain.LedgerLine, []valuation.Pair, []int64, error) {
	lines := make([]domain.LedgerLine, 0, len(inputs))
	pairs := make([]valuation.Pair, 0, len(inputs))
	var costItems []int64

	for _, input := range inputs {
		if input.Qty < 1 || input.UnitPrice.IsNegative() {
			return nil, nil, nil, store.ErrInvalidTransaction
		}
		if input.TaxPercentage.IsNegative() || input.TaxPercentage.GreaterThan(hundred) {
			return nil, nil, nil, store.ErrInvalidTransaction
		}

		variant, err := s.repo.GetVariant(ctx, input.VariantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, nil, fmt.Errorf("%w: variant %d", store.ErrNotFound, input.VariantID)
			}
			return nil, nil, nil, err
		}

		gross := input.UnitPrice.Mul(decimal.NewFromInt(input.Qty))
		totalDiscount, steps, err := discount.ApplyCascade(gross, input.Discounts)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err)
		}
		subtotal := gross.Sub(totalDiscount)
		afterTax := subtotal.Add(subtotal.Mul(input.TaxPercentage).Div(hundred))

		lines = append(lines, domain.LedgerLine{
			Category:         category,
			BranchID:         branchID,
			ItemID:           variant.ItemID,
			VariantID:        variant.ID,
			EnteredQty:       input.Qty,
			ConversionFactor: variant.ConversionFactor,
			TotalQty:         input.Qty * variant.ConversionFactor,
			UnitPrice:        input.UnitPrice,
			Subtotal:         subtotal,
			TaxPercentage:    input.TaxPercentage,
			AfterTaxSubtotal: afterTax,
			Discounts:        steps,
		})
		pairs = append(pairs, valuation.Pair{BranchID: branchID, ItemID: variant.ItemID})
		if category == domain.CategoryPurchase || category == domain.CategoryPurchaseReturn {
			costItems = append(costItems, variant.ItemID)
		}
	}
	return lines, pairs, costItems, nil
}

// UpdatePurchase replaces the full line set of an existing purchase and
// recomputes every pair touched by either the old or the new lines.
func (s *Service) UpdatePurchase(ctx context.Context, id string, req domain.TradeRequest) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Transaction{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if existing.Category != domain.CategoryPurchase || existing.DeletedAt != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %s is not a live purchase", store.ErrInvalidTransaction, id)
	}
	if len(req.Lines) == 0 {
		return domain.Transaction{}, store.ErrInvalidTransaction
	}

	pairs, costItems := affectedScope(existing)

	lines, newPairs, newCostItems, err := s.buildTradeLines(ctx, domain.CategoryPurchase, existing.BranchID, req.Lines)
	if err != nil {
		return domain.Transaction{}, err
	}
	pairs = append(pairs, newPairs...)
	costItems = append(costItems, newCostItems...)

	updated, err := s.repo.ReplaceTransactionLines(ctx, id, lines, time.Now().UTC())
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logAudit(ctx, existing.BranchID, "purchase_update", "transaction", id, fmt.Sprintf("lines=%d", len(lines)))

	if err := s.engine.Refresh(ctx, pairs, costItems); err != nil {
		log.Printf("[service] WARN: derived state refresh after purchase update %s: %v", id, err)
		return domain.Transaction{}, err
	}
	return *updated, nil
}

// DeleteTransaction tombstones any transaction and recomputes everything its
// live lines touched. Lines stay in place; aggregation skips them through the
// header tombstone.
func (s *Service) DeleteTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Transaction{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if existing.DeletedAt != nil {
		return domain.Transaction{}, store.ErrNotFound
	}

	pairs, costItems := affectedScope(existing)

	deleted, err := s.repo.SoftDeleteTransaction(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logAudit(ctx, existing.BranchID, string(existing.Category)+"_delete", "transaction", id, "")

	if err := s.engine.Refresh(ctx, pairs, costItems); err != nil {
		log.Printf("[service] WARN: derived state refresh after delete %s: %v", id, err)
		return domain.Transaction{}, err
	}
	return *deleted, nil
}

func (s *Service) DeleteTransfer(ctx context.Context, id string) (domain.Transaction, error) {
	return s.deleteWithCategory(ctx, id, domain.CategoryTransfer)
}

// DeleteAdjustment tombstones a whole count submission. The shared group gap
// only makes sense for the submission as a unit, so there is no per-row
// deletion.
func (s *Service) DeleteAdjustment(ctx context.Context, id string) (domain.Transaction, error) {
	return s.deleteWithCategory(ctx, id, domain.CategoryAdjustment)
}

func (s *Service) deleteWithCategory(ctx context.Context, id string, category domain.LedgerCategory) (domain.Transaction, error) {
	existing, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if existing.Category != category {
		return domain.Transaction{}, fmt.Errorf("%w: %s is not a %s", store.ErrInvalidTransaction, id, category)
	}
	return s.DeleteTransaction(ctx, id)
}

// affectedScope collects every (branch, item) pair a transaction's live lines
// touch, plus the items whose cost average depends on it.
func affectedScope(tx *domain.Transaction) ([]valuation.Pair, []int64) {
	pairs := make([]valuation.Pair, 0, len(tx.Lines)*2)
	var costItems []int64
	for _, line := range tx.Lines {
		if line.DeletedAt != nil {
			continue
		}
		pairs = append(pairs, valuation.Pair{BranchID: line.BranchID, ItemID: line.ItemID})
		if line.Category == domain.CategoryTransfer && line.SourceBranchID != 0 {
			pairs = append(pairs, valuation.Pair{BranchID: line.SourceBranchID, ItemID: line.ItemID})
		}
		if line.Category == domain.CategoryPurchase || line.Category == domain.CategoryPurchaseReturn {
			costItems = append(costItems, line.ItemID)
		}
	}
	return pairs, costItems
}

func (s *Service) CreateTransfer(ctx context.Context, req domain.TransferRequest) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("authentication required")
	}

	if req.SourceBranchID == 0 || req.DestinationBranchID == 0 || req.SourceBranchID == req.DestinationBranchID {
		return domain.Transaction{}, store.ErrInvalidTransaction
	}
	for _, branchID := range []int64{req.SourceBranchID, req.DestinationBranchID} {
		if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Transaction{}, fmt.Errorf("%w: branch %d", store.ErrNotFound, branchID)
			}
			return domain.Transaction{}, err
		}
	}
	if len(req.Lines) == 0 {
		return domain.Transaction{}, store.ErrInvalidTransaction
	}

	lines := make([]domain.LedgerLine, 0, len(req.Lines))
	pairs := make([]valuation.Pair, 0, len(req.Lines)*2)
	for _, input := range req.Lines {
		if input.Qty < 1 {
			return domain.Transaction{}, store.ErrInvalidTransaction
		}
		variant, err := s.repo.GetVariant(ctx, input.VariantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Transaction{}, fmt.Errorf("%w: variant %d", store.ErrNotFound, input.VariantID)
			}
			return domain.Transaction{}, err
		}
		lines = append(lines, domain.LedgerLine{
			Category:         domain.CategoryTransfer,
			BranchID:         req.DestinationBranchID,
			SourceBranchID:   req.SourceBranchID,
			ItemID:           variant.ItemID,
			VariantID:        variant.ID,
			EnteredQty:       input.Qty,
			ConversionFactor: variant.ConversionFactor,
			TotalQty:         input.Qty * variant.ConversionFactor,
		})
		pairs = append(pairs,
			valuation.Pair{BranchID: req.SourceBranchID, ItemID: variant.ItemID},
			valuation.Pair{BranchID: req.DestinationBranchID, ItemID: variant.ItemID},
		)
	}

	tx := domain.Transaction{
		ID:             xid.New("txn"),
		Category:       domain.CategoryTransfer,
		BranchID:       req.DestinationBranchID,
		SourceBranchID: req.SourceBranchID,
		Notes:          strings.TrimSpace(req.Notes),
		CreatedBy:      actor.Username,
		CreatedAt:      time.Now().UTC(),
		Lines:          lines,
	}
	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logAudit(ctx, req.SourceBranchID, "transfer_create", "transaction", created.ID, fmt.Sprintf("to=%d,lines=%d", req.DestinationBranchID, len(lines)))

	if err := s.engine.Refresh(ctx, pairs, nil); err != nil {
		log.Printf("[service] WARN: derived state refresh after transfer %s: %v", created.ID, err)
		return domain.Transaction{}, err
	}
	return *created, nil
}

// CreateAdjustment reconciles a physical count against the recorded stock.
// Rows are grouped by owning item; a group whose counted total matches the
// stored position contributes nothing and is skipped, and a submission where
// every group matches is rejected outright.
func (s *Service) CreateAdjustment(ctx context.Context, req domain.AdjustmentRequest) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("authentication required")
	}

	if req.BranchID == 0 {
		req.BranchID = s.defaultBranchID
	}
	if _, err := s.repo.GetBranch(ctx, req.BranchID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Transaction{}, fmt.Errorf("%w: branch %d", store.ErrNotFound, req.BranchID)
		}
		return domain.Transaction{}, err
	}
	if len(req.Items) == 0 {
		return domain.Transaction{}, store.ErrInvalidTransaction
	}

	seen := make(map[int64]bool, len(req.Items))
	for _, input := range req.Items {
		if input.ActualQty < 0 {
			return domain.Transaction{}, store.ErrInvalidTransaction
		}
		if seen[input.VariantID] {
			return domain.Transaction{}, fmt.Errorf("%w: variant %d appears twice", store.ErrDuplicateVariant, input.VariantID)
		}
		seen[input.VariantID] = true
	}

	type countRow struct {
		variant   domain.ItemVariant
		actualQty int64
	}
	groups := make(map[int64][]countRow)
	order := make([]int64, 0, len(req.Items))
	for _, input := range req.Items {
		variant, err := s.repo.GetVariant(ctx, input.VariantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Transaction{}, fmt.Errorf("%w: variant %d", store.ErrNotFound, input.VariantID)
			}
			return domain.Transaction{}, err
		}
		if _, exists := groups[variant.ItemID]; !exists {
			order = append(order, variant.ItemID)
		}
		groups[variant.ItemID] = append(groups[variant.ItemID], countRow{variant: *variant, actualQty: input.ActualQty})
	}

	lines := make([]domain.LedgerLine, 0, len(req.Items))
	pairs := make([]valuation.Pair, 0, len(order))
	for _, itemID := range order {
		var storedStock int64
		position, err := s.repo.GetStockPosition(ctx, req.BranchID, itemID)
		if err == nil {
			storedStock = position.RecordedStock
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.Transaction{}, err
		}

		var countedBase int64
		for _, row := range groups[itemID] {
			countedBase += row.actualQty * row.variant.ConversionFactor
		}
		totalGap := countedBase - storedStock
		if totalGap == 0 {
			continue
		}

		for _, row := range groups[itemID] {
			lines = append(lines, domain.LedgerLine{
				Category:         domain.CategoryAdjustment,
				BranchID:         req.BranchID,
				ItemID:           itemID,
				VariantID:        row.variant.ID,
				EnteredQty:       row.actualQty,
				ConversionFactor: row.variant.ConversionFactor,
				TotalQty:         row.actualQty * row.variant.ConversionFactor,
				GapQty:           totalGap,
				TotalGap:         totalGap,
				FinalQty:         row.actualQty,
			})
		}
		pairs = append(pairs, valuation.Pair{BranchID: req.BranchID, ItemID: itemID})
	}
	if len(lines) == 0 {
		return domain.Transaction{}, store.ErrNothingToAdjust
	}

	tx := domain.Transaction{
		ID:        xid.New("txn"),
		Category:  domain.CategoryAdjustment,
		BranchID:  req.BranchID,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedBy: actor.Username,
		CreatedAt: time.Now().UTC(),
		Lines:     lines,
	}
	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logAudit(ctx, req.BranchID, "adjustment_create", "transaction", created.ID, fmt.Sprintf("items=%d", len(pairs)))

	if err := s.engine.Refresh(ctx, pairs, nil); err != nil {
		log.Printf("[service] WARN: derived state refresh after adjustment %s: %v", created.ID, err)
		return domain.Transaction{}, err
	}
	return *created, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, branchID int64, category domain.LedgerCategory, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListTransactions(ctx, branchID, category, limit)
}

// GetStock serves the derived position through the cache, falling back to the
// stored row. A pair with no history reads as zero stock.
func (s *Service) GetStock(ctx context.Context, branchID int64, itemID int64) (domain.StockPosition, error) {
	if branchID == 0 {
		branchID = s.defaultBranchID
	}

	cached, hit, err := s.stockCache.Get(ctx, branchID, itemID)
	if err != nil {
		log.Printf("[service] WARN: stock cache read branch=%d item=%d: %v", branchID, itemID, err)
	}
	if hit {
		return *cached, nil
	}

	position, err := s.repo.GetStockPosition(ctx, branchID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := s.repo.GetItem(ctx, itemID); err != nil {
			return domain.StockPosition{}, err
		}
		return domain.StockPosition{BranchID: branchID, ItemID: itemID}, nil
	}
	if err != nil {
		return domain.StockPosition{}, err
	}

	if err := s.stockCache.Set(ctx, *position, 10*time.Minute); err != nil {
		log.Printf("[service] WARN: stock cache write branch=%d item=%d: %v", branchID, itemID, err)
	}
	return *position, nil
}

func (s *Service) ListStock(ctx context.Context, branchID int64) ([]domain.StockPosition, error) {
	return s.repo.ListStockPositions(ctx, branchID)
}

func (s *Service) ListAuditLogs(ctx context.Context, branchID int64, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, branchID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, branchID int64, action string, entityType string, entityID string, detail string) {
	if branchID == 0 {
		branchID = s.defaultBranchID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		BranchID:      branchID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
