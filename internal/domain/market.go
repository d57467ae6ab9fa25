package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle interval identifiers understood by the venue.
const (
	IntervalHour     = "minute60"
	IntervalFourHour = "minute240"
	IntervalDay      = "day"
)

// Candle is one OHLCV sample.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Series is an ordered candle sequence, oldest first.
// A nil Series means the fetch failed.
type Series []Candle

// NewsItem is a headline delivered to the model.
type NewsItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PublishedAt string `json:"published"`

	// Summary is only used for relevance filtering.
	Summary string `json:"-"`
}

// Balances is the account position for one asset at a point in time.
type Balances struct {
	Cash       decimal.Decimal `json:"krw"`
	Asset      decimal.Decimal `json:"crypto"`
	Price      decimal.Decimal `json:"crypto_price"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// NewBalances derives TotalValue = cash + asset*price.
func NewBalances(cash, asset, price decimal.Decimal) Balances {
	return Balances{
		Cash:       cash,
		Asset:      asset,
		Price:      price,
		TotalValue: cash.Add(asset.Mul(price)),
	}
}

// AssetValue returns the quote-currency value of the asset holding.
func (b Balances) AssetValue() decimal.Decimal {
	return b.Asset.Mul(b.Price)
}

// MarketSnapshot is the per-asset, per-cycle decision payload.
// It is built once and never mutated afterwards.
type MarketSnapshot struct {
	Symbol       string           `json:"-"`
	Name         string           `json:"-"`
	ShortTerm    Series           `json:"short_term"`
	MidTerm      Series           `json:"mid_term"`
	LongTerm     Series           `json:"long_term"`
	News         []NewsItem       `json:"news"`
	Balances     *Balances        `json:"current_balance"`
	RecentTrades []TradeRecord    `json:"recent_trades"`
	USDKRW       *decimal.Decimal `json:"usd_krw,omitempty"`
	CollectedAt  time.Time        `json:"collected_at"`
}
