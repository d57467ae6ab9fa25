package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Venue is the exchange boundary. Order submission is not idempotent.
type Venue interface {
	Candles(ctx context.Context, ticker, interval string, count int) (Series, error)
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)
	CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	SubmitMarketOrder(ctx context.Context, order OrderRequest) error
}

// Completer sends one prompt to an inference backend and returns the raw reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewsSource returns headlines for a query.
type NewsSource interface {
	Search(ctx context.Context, query string) ([]NewsItem, error)
}

// Notifier is fire-and-forget. Implementations swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Ledger is the append-only trade history of one asset.
type Ledger interface {
	Append(ctx context.Context, record *TradeRecord) error
	Recent(ctx context.Context, limit int) ([]TradeRecord, error)
}

// LedgerProvider resolves the ledger of an asset.
type LedgerProvider interface {
	LedgerFor(asset AssetConfig) (Ledger, error)
}

// RateSource provides the USD/KRW reference rate.
type RateSource interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}
