package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error) {
	if branch.Name == "" {
		return nil, store.ErrInvalidTransaction
	}

	branch.Active = true
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO branches (name, address, active, created_at)
		VALUES ($1,$2,$3,now())
		RETURNING id
	`, branch.Name, branch.Address, branch.Active).Scan(&branch.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}

	created := branch
	return &created, nil
}

func (s *Store) GetBranch(ctx context.Context, branchID int64) (*domain.Branch, error) {
	var branch domain.Branch
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, active
		FROM branches
		WHERE id = $1
	`, branchID).Scan(&branch.ID, &branch.Name, &branch.Address, &branch.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, active
		FROM branches
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := make([]domain.Branch, 0, 16)
	for rows.Next() {
		var b domain.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Active); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item, variants []domain.ItemVariant) (*domain.Item, []domain.ItemVariant, error) {
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

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	item.AverageBaseCost = decimal.Zero
	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO items (name, category, average_base_cost, created_at)
		VALUES ($1,$2,0,now())
		RETURNING id
	`, item.Name, item.Category).Scan(&item.ID)
	if err != nil {
		return nil, nil, err
	}

	created := make([]domain.ItemVariant, 0, len(variants))
	for _, v := range variants {
		v.ItemID = item.ID
		v.IsBaseUnit = v.ConversionFactor == 1
		v.CostAtConversion = decimal.Zero
		v.ProfitAmount = decimal.Zero
		v.ProfitPercentage = decimal.Zero
		err = pgTx.QueryRowContext(ctx, `
			INSERT INTO item_variants (item_id, unit_name, conversion_factor, is_base_unit, sell_price, cost_at_conversion, profit_amount, profit_percentage)
			VALUES ($1,$2,$3,$4,$5,0,0,0)
			RETURNING id
		`, v.ItemID, v.UnitName, v.ConversionFactor, v.IsBaseUnit, v.SellPrice).Scan(&v.ID)
		if err != nil {
			return nil, nil, err
		}
		created = append(created, v)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, nil, err
	}
	copyItem := item
	return &copyItem, created, nil
}

func (s *Store) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	var item domain.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, average_base_cost
		FROM items
		WHERE id = $1
	`, itemID).Scan(&item.ID, &item.Name, &item.Category, &item.AverageBaseCost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, average_base_cost
		FROM items
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.AverageBaseCost); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetVariant(ctx context.Context, variantID int64) (*domain.ItemVariant, error) {
	var v domain.ItemVariant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, item_id, unit_name, conversion_factor, is_base_unit, sell_price, cost_at_conversion, profit_amount, profit_percentage
		FROM item_variants
		WHERE id = $1
	`, variantID).Scan(&v.ID, &v.ItemID, &v.UnitName, &v.ConversionFactor, &v.IsBaseUnit, &v.SellPrice, &v.CostAtConversion, &v.ProfitAmount, &v.ProfitPercentage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store) ListVariants(ctx context.Context, itemID int64) ([]domain.ItemVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, unit_name, conversion_factor, is_base_unit, sell_price, cost_at_conversion, profit_amount, profit_percentage
		FROM item_variants
		WHERE item_id = $1
		ORDER BY conversion_factor, id
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := make([]domain.ItemVariant, 0, 4)
	for rows.Next() {
		var v domain.ItemVariant
		if err := rows.Scan(&v.ID, &v.ItemID, &v.UnitName, &v.ConversionFactor, &v.IsBaseUnit, &v.SellPrice, &v.CostAtConversion, &v.ProfitAmount, &v.ProfitPercentage); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return variants, nil
}

// ApplyCostBasis writes the item average and all variant derived columns in
// one database transaction.
func (s *Store) ApplyCostBasis(ctx context.Context, basis domain.CostBasis, variants []domain.ItemVariant) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	res, err := pgTx.ExecContext(ctx, `
		UPDATE items
		SET average_base_cost = $2
		WHERE id = $1
	`, basis.ItemID, basis.AverageBaseCost)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	for _, v := range variants {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE item_variants
			SET cost_at_conversion = $3, profit_amount = $4, profit_percentage = $5
			WHERE id = $1 AND item_id = $2
		`, v.ID, basis.ItemID, v.CostAtConversion, v.ProfitAmount, v.ProfitPercentage)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
	}

	return pgTx.Commit()
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.Category == "" || len(tx.Lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if tx.ID == "" {
		tx.ID = xid.New("txn")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, category, branch_id, source_branch_id, reference_id, notes, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, tx.ID, string(tx.Category), tx.BranchID, tx.SourceBranchID, tx.ReferenceID, tx.Notes, tx.CreatedBy, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}

	for i := range tx.Lines {
		if tx.Lines[i].ID == "" {
			tx.Lines[i].ID = xid.New("lin")
		}
		tx.Lines[i].TransactionID = tx.ID
		tx.Lines[i].Category = tx.Category
		if err := insertLine(ctx, pgTx, tx.Lines[i]); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := tx
	return &created, nil
}

func insertLine(ctx context.Context, pgTx *sql.Tx, line domain.LedgerLine) error {
	discounts, err := json.Marshal(line.Discounts)
	if err != nil {
		return err
	}
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO ledger_lines (
			id, transaction_id, category, branch_id, source_branch_id, item_id, variant_id,
			entered_qty, conversion_factor, total_qty,
			unit_price, subtotal, tax_percentage, after_tax_subtotal,
			gap_qty, total_gap, final_qty, discounts
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, line.ID, line.TransactionID, string(line.Category), line.BranchID, line.SourceBranchID,
		line.ItemID, line.VariantID, line.EnteredQty, line.ConversionFactor, line.TotalQty,
		line.UnitPrice, line.Subtotal, line.TaxPercentage, line.AfterTaxSubtotal,
		line.GapQty, line.TotalGap, line.FinalQty, discounts)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var category string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, category, branch_id, source_branch_id, reference_id, notes, created_by, created_at, deleted_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &category, &tx.BranchID, &tx.SourceBranchID, &tx.ReferenceID, &tx.Notes, &tx.CreatedBy, &tx.CreatedAt, &tx.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.Category = domain.LedgerCategory(category)

	lines, err := s.linesByTransaction(ctx, []string{tx.ID})
	if err != nil {
		return nil, err
	}
	tx.Lines = lines[tx.ID]
	return &tx, nil
}

func (s *Store) linesByTransaction(ctx context.Context, ids []string) (map[string][]domain.LedgerLine, error) {
	result := make(map[string][]domain.LedgerLine, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, category, branch_id, source_branch_id, item_id, variant_id,
		       entered_qty, conversion_factor, total_qty,
		       unit_price, subtotal, tax_percentage, after_tax_subtotal,
		       gap_qty, total_gap, final_qty, discounts, deleted_at
		FROM ledger_lines
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.LedgerLine
		var category string
		var discounts []byte
		if err := rows.Scan(&line.ID, &line.TransactionID, &category, &line.BranchID, &line.SourceBranchID,
			&line.ItemID, &line.VariantID, &line.EnteredQty, &line.ConversionFactor, &line.TotalQty,
			&line.UnitPrice, &line.Subtotal, &line.TaxPercentage, &line.AfterTaxSubtotal,
			&line.GapQty, &line.TotalGap, &line.FinalQty, &discounts, &line.DeletedAt); err != nil {
			return nil, err
		}
		line.Category = domain.LedgerCategory(category)
		if len(discounts) > 0 {
			if err := json.Unmarshal(discounts, &line.Discounts); err != nil {
				return nil, err
			}
		}
		result[line.TransactionID] = append(result[line.TransactionID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ReplaceTransactionLines(ctx context.Context, id string, lines []domain.LedgerLine, at time.Time) (*domain.Transaction, error) {
	if len(lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var category string
	err = pgTx.QueryRowContext(ctx, `
		SELECT category
		FROM transactions
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id).Scan(&category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE ledger_lines
		SET deleted_at = $2
		WHERE transaction_id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if line.ID == "" {
			line.ID = xid.New("lin")
		}
		line.TransactionID = id
		line.Category = domain.LedgerCategory(category)
		line.DeletedAt = nil
		if err := insertLine(ctx, pgTx, line); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) SoftDeleteTransaction(ctx context.Context, id string, at time.Time) (*domain.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) ListTransactions(ctx context.Context, branchID int64, category domain.LedgerCategory, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, branch_id, source_branch_id, reference_id, notes, created_by, created_at
		FROM transactions
		WHERE deleted_at IS NULL
		  AND ($1 = 0 OR branch_id = $1 OR source_branch_id = $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, branchID, string(category), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var tx domain.Transaction
		var cat string
		if err := rows.Scan(&tx.ID, &cat, &tx.BranchID, &tx.SourceBranchID, &tx.ReferenceID, &tx.Notes, &tx.CreatedBy, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Category = domain.LedgerCategory(cat)
		transactions = append(transactions, tx)
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.linesByTransaction(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range transactions {
		transactions[i].Lines = lines[transactions[i].ID]
	}
	return transactions, nil
}

func (s *Store) SumQuantity(ctx context.Context, branchID int64, itemID int64, category domain.LedgerCategory) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(l.total_qty), 0)
		FROM ledger_lines l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE l.deleted_at IS NULL AND t.deleted_at IS NULL
		  AND l.category = $3 AND l.branch_id = $1 AND l.item_id = $2
	`, branchID, itemID, string(category)).Scan(&total)
	return total, err
}

func (s *Store) SumTransferQuantity(ctx context.Context, branchID int64, itemID int64, inbound bool) (int64, error) {
	branchColumn := "l.source_branch_id"
	if inbound {
		branchColumn = "l.branch_id"
	}
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(l.total_qty), 0)
		FROM ledger_lines l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE l.deleted_at IS NULL AND t.deleted_at IS NULL
		  AND l.category = 'transfer' AND `+branchColumn+` = $1 AND l.item_id = $2
	`, branchID, itemID).Scan(&total)
	return total, err
}

// SumAdjustmentGap counts each submission's gap once per item; sibling variant
// rows of the same physical count all carry the group total.
func (s *Store) SumAdjustmentGap(ctx context.Context, branchID int64, itemID int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_gap), 0)
		FROM (
			SELECT DISTINCT ON (l.transaction_id) l.total_gap
			FROM ledger_lines l
			JOIN transactions t ON t.id = l.transaction_id
			WHERE l.deleted_at IS NULL AND t.deleted_at IS NULL
			  AND l.category = 'adjustment' AND l.branch_id = $1 AND l.item_id = $2
			ORDER BY l.transaction_id
		) gaps
	`, branchID, itemID).Scan(&total)
	return total, err
}

func (s *Store) PurchaseCostTotals(ctx context.Context, itemID int64, category domain.LedgerCategory) (domain.CostTotals, error) {
	amountColumn := ""
	switch category {
	case domain.CategoryPurchase:
		amountColumn = "l.after_tax_subtotal"
	case domain.CategoryPurchaseReturn:
		amountColumn = "l.subtotal"
	default:
		return domain.CostTotals{}, store.ErrInvalidTransaction
	}

	totals := domain.CostTotals{Amount: decimal.Zero}
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(l.total_qty), 0), COALESCE(SUM(`+amountColumn+`), 0)
		FROM ledger_lines l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE l.deleted_at IS NULL AND t.deleted_at IS NULL
		  AND l.category = $2 AND l.item_id = $1
	`, itemID, string(category)).Scan(&totals.Qty, &totals.Amount)
	return totals, err
}

func (s *Store) UpsertStockPosition(ctx context.Context, position domain.StockPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_positions (branch_id, item_id, recorded_stock, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (branch_id, item_id)
		DO UPDATE SET recorded_stock = EXCLUDED.recorded_stock, updated_at = EXCLUDED.updated_at
	`, position.BranchID, position.ItemID, position.RecordedStock, position.UpdatedAt)
	return err
}

func (s *Store) GetStockPosition(ctx context.Context, branchID int64, itemID int64) (*domain.StockPosition, error) {
	var position domain.StockPosition
	err := s.db.QueryRowContext(ctx, `
		SELECT branch_id, item_id, recorded_stock, updated_at
		FROM stock_positions
		WHERE branch_id = $1 AND item_id = $2
	`, branchID, itemID).Scan(&position.BranchID, &position.ItemID, &position.RecordedStock, &position.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	position.UpdatedAt = position.UpdatedAt.UTC()
	return &position, nil
}

func (s *Store) ListStockPositions(ctx context.Context, branchID int64) ([]domain.StockPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT branch_id, item_id, recorded_stock, updated_at
		FROM stock_positions
		WHERE $1 = 0 OR branch_id = $1
		ORDER BY branch_id, item_id
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make([]domain.StockPosition, 0, 64)
	for rows.Next() {
		var p domain.StockPosition
		if err := rows.Scan(&p.BranchID, &p.ItemID, &p.RecordedStock, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.UpdatedAt = p.UpdatedAt.UTC()
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.BranchID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, branchID int64, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = 0 OR branch_id = $1) AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
		LIMIT $4
	`, branchID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BranchID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidTransaction
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrInvalidTransaction
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
