package store

import (
	"context"
	"errors"
	"time"

	"gudangku/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrNothingToAdjust    = errors.New("nothing to adjust")
	ErrDuplicateVariant   = errors.New("duplicate variant")
)

// Repository is the durable backing for the ledger and everything derived
// from it. Aggregate reads (SumQuantity and friends) must exclude lines that
// are tombstoned either directly or through their owning transaction.
type Repository interface {
	CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error)
	GetBranch(ctx context.Context, branchID int64) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)

	CreateItem(ctx context.Context, item domain.Item, variants []domain.ItemVariant) (*domain.Item, []domain.ItemVariant, error)
	GetItem(ctx context.Context, itemID int64) (*domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetVariant(ctx context.Context, variantID int64) (*domain.ItemVariant, error)
	ListVariants(ctx context.Context, itemID int64) ([]domain.ItemVariant, error)
	ApplyCostBasis(ctx context.Context, basis domain.CostBasis, variants []domain.ItemVariant) error

	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ReplaceTransactionLines(ctx context.Context, id string, lines []domain.LedgerLine, at time.Time) (*domain.Transaction, error)
	SoftDeleteTransaction(ctx context.Context, id string, at time.Time) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, branchID int64, category domain.LedgerCategory, limit int) ([]domain.Transaction, error)

	SumQuantity(ctx context.Context, branchID int64, itemID int64, category domain.LedgerCategory) (int64, error)
	SumTransferQuantity(ctx context.Context, branchID int64, itemID int64, inbound bool) (int64, error)
	SumAdjustmentGap(ctx context.Context, branchID int64, itemID int64) (int64, error)
	PurchaseCostTotals(ctx context.Context, itemID int64, category domain.LedgerCategory) (domain.CostTotals, error)

	UpsertStockPosition(ctx context.Context, position domain.StockPosition) error
	GetStockPosition(ctx context.Context, branchID int64, itemID int64) (*domain.StockPosition, error)
	ListStockPositions(ctx context.Context, branchID int64) ([]domain.StockPosition, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, branchID int64, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
