package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerCategory tags every transaction and ledger line with the movement
// family it belongs to. Stock aggregation treats each category with its own
// sign; see the valuation package.
type LedgerCategory string

const (
	CategoryPurchase       LedgerCategory = "purchase"
	CategoryPurchaseReturn LedgerCategory = "purchase_return"
	CategorySales          LedgerCategory = "sales"
	CategorySalesReturn    LedgerCategory = "sales_return"
	CategorySell           LedgerCategory = "sell"
	CategorySellReturn     LedgerCategory = "sell_return"
	CategoryTransfer       LedgerCategory = "transfer"
	CategoryAdjustment     LedgerCategory = "adjustment"
)

type Branch struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Active  bool   `json:"active"`
}

type BranchCreateRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Item is the master record for a stock-keeping good. AverageBaseCost is a
// derived value owned by the cost averaging engine; master-data flows never
// write it.
type Item struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	AverageBaseCost decimal.Decimal `json:"average_base_cost"`
}

// ItemVariant is one sellable unit of an item. Exactly one variant per item is
// the base unit (ConversionFactor == 1); every ledger quantity converts to
// base units through the conversion factor recorded at write time.
// CostAtConversion, ProfitAmount and ProfitPercentage are derived by the cost
// averaging engine.
type ItemVariant struct {
	ID               int64           `json:"id"`
	ItemID           int64           `json:"item_id"`
	UnitName         string          `json:"unit_name"`
	ConversionFactor int64           `json:"conversion_factor"`
	IsBaseUnit       bool            `json:"is_base_unit"`
	SellPrice        decimal.Decimal `json:"sell_price"`
	CostAtConversion decimal.Decimal `json:"cost_at_conversion"`
	ProfitAmount     decimal.Decimal `json:"profit_amount"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
}

type VariantInput struct {
	UnitName         string          `json:"unit_name"`
	ConversionFactor int64           `json:"conversion_factor"`
	SellPrice        decimal.Decimal `json:"sell_price"`
}

type ItemCreateRequest struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Variants []VariantInput `json:"variants"`
}

// DiscountStep is one percentage discount applied to the running balance of a
// line. Sequence preserves application order; RecordedAmount is the exact
// amount the cascade removed at that step.
type DiscountStep struct {
	Sequence       int             `json:"sequence"`
	Percentage     decimal.Decimal `json:"percentage"`
	RecordedAmount decimal.Decimal `json:"recorded_amount"`
}

// LedgerLine is one item movement in the append-only transaction history.
// Lines are never mutated in place: updates replace the full line set of the
// owning transaction and deletes set DeletedAt. A line is excluded from
// aggregation when either it or its owning transaction carries a tombstone.
//
// GapQty, TotalGap and FinalQty are populated only on adjustment lines:
// GapQty and FinalQty are the operator's counted quantity in variant units,
// TotalGap is the signed variance in base units shared by every sibling row
// of the same physical count for the item.
type LedgerLine struct {
	ID               string          `json:"id"`
	TransactionID    string          `json:"transaction_id"`
	Category         LedgerCategory  `json:"category"`
	BranchID         int64           `json:"branch_id"`
	SourceBranchID   int64           `json:"source_branch_id,omitempty"`
	ItemID           int64           `json:"item_id"`
	VariantID        int64           `json:"variant_id"`
	EnteredQty       int64           `json:"entered_qty"`
	ConversionFactor int64           `json:"conversion_factor"`
	TotalQty         int64           `json:"total_qty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxPercentage    decimal.Decimal `json:"tax_percentage"`
	AfterTaxSubtotal decimal.Decimal `json:"after_tax_subtotal"`
	GapQty           int64           `json:"gap_qty,omitempty"`
	TotalGap         int64           `json:"total_gap,omitempty"`
	FinalQty         int64           `json:"final_qty,omitempty"`
	Discounts        []DiscountStep  `json:"discounts,omitempty"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// Transaction is the header of one ledger event. BranchID is the destination
// branch for transfers and the owning branch for everything else;
// SourceBranchID is set only on transfers. ReferenceID links returns to the
// original transaction.
type Transaction struct {
	ID             string         `json:"id"`
	Category       LedgerCategory `json:"category"`
	BranchID       int64          `json:"branch_id"`
	SourceBranchID int64          `json:"source_branch_id,omitempty"`
	ReferenceID    string         `json:"reference_id,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedBy      string         `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
	Lines          []LedgerLine   `json:"lines"`
}

// StockPosition is the derived stock row for one (branch, item) pair. It is
// reconstructible from the ledger at any time and is only ever written by the
// stock aggregator, always as a full overwrite.
type StockPosition struct {
	BranchID      int64     `json:"branch_id"`
	ItemID        int64     `json:"item_id"`
	RecordedStock int64     `json:"recorded_stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CostBasis is the derived weighted-average base-unit cost for one item.
type CostBasis struct {
	ItemID          int64           `json:"item_id"`
	AverageBaseCost decimal.Decimal `json:"average_base_cost"`
}

// CostTotals is an aggregate read over the purchase or purchase-return
// history of one item: total base-unit quantity and total monetary amount.
type CostTotals struct {
	Qty    int64
	Amount decimal.Decimal
}

type TradeLineInput struct {
	VariantID     int64             `json:"variant_id"`
	Qty           int64             `json:"qty"`
	UnitPrice     decimal.Decimal   `json:"unit_price"`
	Discounts     []decimal.Decimal `json:"discounts,omitempty"`
	TaxPercentage decimal.Decimal   `json:"tax_percentage"`
}

// TradeRequest creates a purchase, sales or sell transaction, or one of their
// returns (ReferenceID pointing at the original).
type TradeRequest struct {
	BranchID    int64            `json:"branch_id"`
	ReferenceID string           `json:"reference_id,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Lines       []TradeLineInput `json:"lines"`
}

type TransferLineInput struct {
	VariantID int64 `json:"variant_id"`
	Qty       int64 `json:"qty"`
}

type TransferRequest struct {
	SourceBranchID      int64               `json:"source_branch_id"`
	DestinationBranchID int64               `json:"destination_branch_id"`
	Notes               string              `json:"notes,omitempty"`
	Lines               []TransferLineInput `json:"lines"`
}

type AdjustmentItemInput struct {
	VariantID int64 `json:"variant_id"`
	ActualQty int64 `json:"actual_qty"`
}

type AdjustmentRequest struct {
	BranchID int64                 `json:"branch_id"`
	Notes    string                `json:"notes,omitempty"`
	Items    []AdjustmentItemInput `json:"items"`
}

type TransactionResponse struct {
	Transaction Transaction `json:"transaction"`
}

type StockResponse struct {
	Stock StockPosition `json:"stock"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type AuditLog struct {
	ID            string    `json:"id"`
	BranchID      int64     `json:"branch_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
