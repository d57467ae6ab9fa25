package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a market order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderRequest is a market order. Amount is the KRW notional for buys
// and the asset quantity for sells.
type OrderRequest struct {
	Ticker string
	Side   Side
	Amount decimal.Decimal
}

// TradeRecord is one ledger row. Exactly one is appended per asset per
// execute attempt, including holds and size-skipped orders.
type TradeRecord struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp     time.Time       `gorm:"column:timestamp;index" json:"timestamp"`
	Decision      string          `gorm:"column:decision" json:"decision"`
	Percentage    decimal.Decimal `gorm:"column:percentage;type:text" json:"percentage"`
	Reason        string          `gorm:"column:reason" json:"reason"`
	CryptoBalance decimal.Decimal `gorm:"column:crypto_balance;type:text" json:"crypto_balance"`
	KRWBalance    decimal.Decimal `gorm:"column:krw_balance;type:text" json:"krw_balance"`
	CryptoPrice   decimal.Decimal `gorm:"column:crypto_price;type:text" json:"crypto_price"`
}

// TableName keeps the table name stable across ledgers.
func (TradeRecord) TableName() string {
	return "trades"
}

// ExecutionResult is what the executor hands back to the orchestrator.
type ExecutionResult struct {
	Record TradeRecord
	// Submitted is true when an order was sent, or the action was hold.
	Submitted bool
}
