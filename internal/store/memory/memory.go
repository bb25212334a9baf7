package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/xid"
)

type pairKey struct {
	branchID int64
	itemID   int64
}

type Store struct {
	mu              sync.RWMutex
	branches        map[int64]domain.Branch
	items           map[int64]domain.Item
	variants        map[int64]domain.ItemVariant
	transactions    map[string]*domain.Transaction
	stockPositions  map[pairKey]domain.StockPosition
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
	nextBranchID    int64
	nextItemID      int64
	nextVariantID   int64
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	branches := map[int64]domain.Branch{
		1: {ID: 1, Name: "Gudang Pusat", Address: "Jl. Mawar 1, Jakarta", Active: true},
		2: {ID: 2, Name: "Cabang Bandung", Address: "Jl. Melati 8, Bandung", Active: true},
	}

	items := map[int64]domain.Item{
		1: {ID: 1, Name: "Beras Premium", Category: "grocery", AverageBaseCost: decimal.Zero},
		2: {ID: 2, Name: "Minyak Goreng", Category: "grocery", AverageBaseCost: decimal.Zero},
		3: {ID: 3, Name: "Kopi Bubuk", Category: "beverage", AverageBaseCost: decimal.Zero},
	}

	variants := map[int64]domain.ItemVariant{
		1: {ID: 1, ItemID: 1, UnitName: "kg", ConversionFactor: 1, IsBaseUnit: true, SellPrice: decimal.NewFromInt(16000)},
		2: {ID: 2, ItemID: 1, UnitName: "karung 25kg", ConversionFactor: 25, SellPrice: decimal.NewFromInt(380000)},
		3: {ID: 3, ItemID: 2, UnitName: "liter", ConversionFactor: 1, IsBaseUnit: true, SellPrice: decimal.NewFromInt(19500)},
		4: {ID: 4, ItemID: 2, UnitName: "dus 12L", ConversionFactor: 12, SellPrice: decimal.NewFromInt(226000)},
		5: {ID: 5, ItemID: 3, UnitName: "bungkus", ConversionFactor: 1, IsBaseUnit: true, SellPrice: decimal.NewFromInt(12500)},
	}

	return &Store{
		branches:        branches,
		items:           items,
		variants:        variants,
		transactions:    make(map[string]*domain.Transaction),
		stockPositions:  make(map[pairKey]domain.StockPosition),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
		nextBranchID:    3,
		nextItemID:      4,
		nextVariantID:   6,
	}
}

func (s *Store) CreateBranch(_ context.Context, branch domain.Branch) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if branch.Name == "" {
		return nil, store.ErrInvalidTransaction
	}

	branch.ID = s.nextBranchID
	s.nextBranchID++
	branch.Active = true
	s.branches[branch.ID] = branch
	created := branch
	return &created, nil
}

func (s *Store) GetBranch(_ context.Context, branchID int64) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branch, exists := s.branches[branchID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyBranch := branch
	return &copyBranch, nil
}

func (s *Store) ListBranches(_ context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches := make([]domain.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		branches = append(branches, b)
	}
	slices.SortFunc(branches, func(a, b domain.Branch) int {
		return int(a.ID - b.ID)
	})
	return branches, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item, variants []domain.ItemVariant) (*domain.Item, []domain.ItemVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Name == "" || item.Category == "" || len(variants) == 0 {
		return nil, nil, store.ErrInvalidTransaction
	}
	baseCount := 0
	for _, v := range variants {
		if v.UnitName == "" || v.ConversionFactor < 1 || v.SellPrice.IsNegative() {
			return nil, nil, store.ErrInvalidTransaction
		}
		if v.ConversionFactor == 1 {
			baseCount++
		}
	}
	if baseCount != 1 {
		return nil, nil, store.ErrInvalidTransaction
	}

	item.ID = s.nextItemID
	s.nextItemID++
	item.AverageBaseCost = decimal.Zero
	s.items[item.ID] = item

	created := make([]domain.ItemVariant, 0, len(variants))
	for _, v := range variants {
		v.ID = s.nextVariantID
		s.nextVariantID++
		v.ItemID = item.ID
		v.IsBaseUnit = v.ConversionFactor == 1
		v.CostAtConversion = decimal.Zero
		v.ProfitAmount = decimal.Zero
		v.ProfitPercentage = decimal.Zero
		s.variants[v.ID] = v
		created = append(created, v)
	}

	copyItem := item
	return &copyItem, created, nil
}

func (s *Store) GetItem(_ context.Context, itemID int64) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		return int(a.ID - b.ID)
	})
	return items, nil
}

func (s *Store) GetVariant(_ context.Context, variantID int64) (*domain.ItemVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variant, exists := s.variants[variantID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyVariant := variant
	return &copyVariant, nil
}

func (s *Store) ListVariants(_ context.Context, itemID int64) ([]domain.ItemVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variants := make([]domain.ItemVariant, 0, 4)
	for _, v := range s.variants {
		if v.ItemID == itemID {
			variants = append(variants, v)
		}
	}
	slices.SortFunc(variants, func(a, b domain.ItemVariant) int {
		if a.ConversionFactor != b.ConversionFactor {
			return int(a.ConversionFactor - b.ConversionFactor)
		}
		return int(a.ID - b.ID)
	})
	return variants, nil
}

// ApplyCostBasis writes the item average and all variant derived fields under
// one lock acquisition so readers never observe a half-applied basis.
func (s *Store) ApplyCostBasis(_ context.Context, basis domain.CostBasis, variants []domain.ItemVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[basis.ItemID]
	if !exists {
		return store.ErrNotFound
	}
	for _, v := range variants {
		existing, ok := s.variants[v.ID]
		if !ok || existing.ItemID != basis.ItemID {
			return store.ErrNotFound
		}
	}

	item.AverageBaseCost = basis.AverageBaseCost
	s.items[basis.ItemID] = item
	for _, v := range variants {
		existing := s.variants[v.ID]
		existing.CostAtConversion = v.CostAtConversion
		existing.ProfitAmount = v.ProfitAmount
		existing.ProfitPercentage = v.ProfitPercentage
		s.variants[v.ID] = existing
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Category == "" || len(tx.Lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if tx.ID == "" {
		tx.ID = xid.New("txn")
	}
	if _, exists := s.transactions[tx.ID]; exists {
		return nil, store.ErrInvalidTransaction
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	for i := range tx.Lines {
		if tx.Lines[i].ID == "" {
			tx.Lines[i].ID = xid.New("lin")
		}
		tx.Lines[i].TransactionID = tx.ID
		tx.Lines[i].Category = tx.Category
	}

	stored := cloneTransaction(&tx)
	s.transactions[tx.ID] = stored
	return cloneTransaction(stored), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

// ReplaceTransactionLines tombstones the live lines of a transaction and
// appends the replacements, preserving the full history of the edit.
func (s *Store) ReplaceTransactionLines(_ context.Context, id string, lines []domain.LedgerLine, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[id]
	if !exists || tx.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	if len(lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	deletedAt := at
	for i := range tx.Lines {
		if tx.Lines[i].DeletedAt == nil {
			tx.Lines[i].DeletedAt = &deletedAt
		}
	}
	for _, line := range lines {
		if line.ID == "" {
			line.ID = xid.New("lin")
		}
		line.TransactionID = tx.ID
		line.Category = tx.Category
		line.DeletedAt = nil
		tx.Lines = append(tx.Lines, cloneLine(line))
	}
	return cloneTransaction(tx), nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, id string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[id]
	if !exists || tx.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	deletedAt := at
	tx.DeletedAt = &deletedAt
	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactions(_ context.Context, branchID int64, category domain.LedgerCategory, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 32)
	for _, tx := range s.transactions {
		if tx.DeletedAt != nil {
			continue
		}
		if branchID != 0 && tx.BranchID != branchID && tx.SourceBranchID != branchID {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}
	slices.SortFunc(result, func(a, b domain.Transaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// forEachLiveLine visits every line that still counts toward aggregates:
// neither the line nor its owning transaction may carry a tombstone.
func (s *Store) forEachLiveLine(visit func(tx *domain.Transaction, line domain.LedgerLine)) {
	for _, tx := range s.transactions {
		if tx.DeletedAt != nil {
			continue
		}
		for _, line := range tx.Lines {
			if line.DeletedAt != nil {
				continue
			}
			visit(tx, line)
		}
	}
}

func (s *Store) SumQuantity(_ context.Context, branchID int64, itemID int64, category domain.LedgerCategory) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	s.forEachLiveLine(func(_ *domain.Transaction, line domain.LedgerLine) {
		if line.Category != category || line.BranchID != branchID || line.ItemID != itemID {
			return
		}
		total += line.TotalQty
	})
	return total, nil
}

func (s *Store) SumTransferQuantity(_ context.Context, branchID int64, itemID int64, inbound bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	s.forEachLiveLine(func(_ *domain.Transaction, line domain.LedgerLine) {
		if line.Category != domain.CategoryTransfer || line.ItemID != itemID {
			return
		}
		if inbound && line.BranchID == branchID {
			total += line.TotalQty
		}
		if !inbound && line.SourceBranchID == branchID {
			total += line.TotalQty
		}
	})
	return total, nil
}

// SumAdjustmentGap counts each submission's gap once per item even though
// every sibling variant row of the same physical count carries the group
// total.
func (s *Store) SumAdjustmentGap(_ context.Context, branchID int64, itemID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	counted := make(map[string]bool)
	s.forEachLiveLine(func(tx *domain.Transaction, line domain.LedgerLine) {
		if line.Category != domain.CategoryAdjustment || line.BranchID != branchID || line.ItemID != itemID {
			return
		}
		if counted[tx.ID] {
			return
		}
		counted[tx.ID] = true
		total += line.TotalGap
	})
	return total, nil
}

// PurchaseCostTotals aggregates quantity and money for the cost average.
// Purchases count their after-tax subtotal, purchase returns their subtotal.
func (s *Store) PurchaseCostTotals(_ context.Context, itemID int64, category domain.LedgerCategory) (domain.CostTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if category != domain.CategoryPurchase && category != domain.CategoryPurchaseReturn {
		return domain.CostTotals{}, store.ErrInvalidTransaction
	}

	totals := domain.CostTotals{Amount: decimal.Zero}
	s.forEachLiveLine(func(_ *domain.Transaction, line domain.LedgerLine) {
		if line.Category != category || line.ItemID != itemID {
			return
		}
		totals.Qty += line.TotalQty
		if category == domain.CategoryPurchase {
			totals.Amount = totals.Amount.Add(line.AfterTaxSubtotal)
		} else {
			totals.Amount = totals.Amount.Add(line.Subtotal)
		}
	})
	return totals, nil
}

func (s *Store) UpsertStockPosition(_ context.Context, position domain.StockPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stockPositions[pairKey{position.BranchID, position.ItemID}] = position
	return nil
}

func (s *Store) GetStockPosition(_ context.Context, branchID int64, itemID int64) (*domain.StockPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, exists := s.stockPositions[pairKey{branchID, itemID}]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPosition := position
	return &copyPosition, nil
}

func (s *Store) ListStockPositions(_ context.Context, branchID int64) ([]domain.StockPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]domain.StockPosition, 0, len(s.stockPositions))
	for key, position := range s.stockPositions {
		if branchID != 0 && key.branchID != branchID {
			continue
		}
		positions = append(positions, position)
	}
	slices.SortFunc(positions, func(a, b domain.StockPosition) int {
		if a.BranchID != b.BranchID {
			return int(a.BranchID - b.BranchID)
		}
		return int(a.ItemID - b.ItemID)
	})
	return positions, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, branchID int64, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if branchID != 0 && entry.BranchID != branchID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidTransaction
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidTransaction
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	copyTx := *tx
	copyTx.Lines = make([]domain.LedgerLine, len(tx.Lines))
	for i, line := range tx.Lines {
		copyTx.Lines[i] = cloneLine(line)
	}
	if tx.DeletedAt != nil {
		deletedAt := *tx.DeletedAt
		copyTx.DeletedAt = &deletedAt
	}
	return &copyTx
}

func cloneLine(line domain.LedgerLine) domain.LedgerLine {
	copyLine := line
	if line.DeletedAt != nil {
		deletedAt := *line.DeletedAt
		copyLine.DeletedAt = &deletedAt
	}
	copyLine.Discounts = slices.Clone(line.Discounts)
	return copyLine
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
