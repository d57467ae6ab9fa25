package snapshot

import (
	"context"
	"log/slog"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/news"

	"github.com/shopspring/decimal"
)

// Window is one candle series request.
type Window struct {
	Interval string
	Count    int
}

// Fixed windowing of the three series.
var (
	ShortWindow = Window{Interval: domain.IntervalHour, Count: 24}
	MidWindow   = Window{Interval: domain.IntervalFourHour, Count: 30}
	LongWindow  = Window{Interval: domain.IntervalDay, Count: 30}
)

// DefaultHistory is the number of ledger records carried in a snapshot.
const DefaultHistory = 4

// QuoteCurrency is the cash currency of the KRW market.
const QuoteCurrency = "KRW"

// Builder assembles one asset's snapshot. Every sub-call is best effort:
// a failure is logged and replaced with nil or zero, never retried.
type Builder struct {
	venue   domain.Venue
	news    *news.RateLimitedFetcher
	ledgers domain.LedgerProvider
	rates   domain.RateSource
	history int
	now     func() time.Time
	logger  *slog.Logger
}

// NewBuilder creates a builder. news and rates may be nil.
func NewBuilder(venue domain.Venue, fetcher *news.RateLimitedFetcher, ledgers domain.LedgerProvider, rates domain.RateSource) *Builder {
	return &Builder{
		venue:   venue,
		news:    fetcher,
		ledgers: ledgers,
		rates:   rates,
		history: DefaultHistory,
		now:     time.Now,
		logger:  slog.Default().With("module", "snapshot"),
	}
}

// WithHistory sets how many ledger records are included.
func (b *Builder) WithHistory(n int) *Builder {
	if n > 0 {
		b.history = n
	}
	return b
}

// WithClock replaces the clock used for the news cooldown and timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build never fails; the returned snapshot may be partially nil.
func (b *Builder) Build(ctx context.Context, asset domain.AssetConfig) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		Symbol:       asset.Symbol,
		Name:         asset.Name,
		News:         []domain.NewsItem{},
		RecentTrades: []domain.TradeRecord{},
	}

	snap.ShortTerm = b.series(ctx, asset, "short_term", ShortWindow)
	snap.MidTerm = b.series(ctx, asset, "mid_term", MidWindow)
	snap.LongTerm = b.series(ctx, asset, "long_term", LongWindow)

	snap.Balances = b.balances(ctx, asset)

	if b.news != nil {
		items, _, err := b.news.Fetch(ctx, asset, b.now())
		if err != nil {
			b.warn(asset, "news", err)
		} else {
			snap.News = items
		}
	}

	if records := b.recentTrades(ctx, asset); records != nil {
		snap.RecentTrades = records
	}

	if b.rates != nil {
		rate, err := b.rates.FetchRate(ctx)
		if err != nil {
			b.warn(asset, "usd_krw", err)
		} else {
			snap.USDKRW = &rate
		}
	}

	snap.CollectedAt = b.now()
	b.logger.Info("📦 Snapshot built",
		slog.String("symbol", asset.Symbol),
		slog.Int("short", len(snap.ShortTerm)),
		slog.Int("mid", len(snap.MidTerm)),
		slog.Int("long", len(snap.LongTerm)),
		slog.Int("news", len(snap.News)),
		slog.Bool("balances", snap.Balances != nil),
	)
	return snap
}

func (b *Builder) series(ctx context.Context, asset domain.AssetConfig, phase string, w Window) domain.Series {
	s, err := b.venue.Candles(ctx, asset.Ticker, w.Interval, w.Count)
	if err != nil {
		b.warn(asset, phase, err)
		return nil
	}
	return s
}

// balances returns nil only when every read failed; a single failed
// field is zeroed.
func (b *Builder) balances(ctx context.Context, asset domain.AssetConfig) *domain.Balances {
	failures := 0

	cash, err := b.venue.Balance(ctx, QuoteCurrency)
	if err != nil {
		b.warn(asset, "cash_balance", err)
		cash = decimal.Zero
		failures++
	}
	held, err := b.venue.Balance(ctx, asset.Symbol)
	if err != nil {
		b.warn(asset, "asset_balance", err)
		held = decimal.Zero
		failures++
	}
	price, err := b.venue.CurrentPrice(ctx, asset.Ticker)
	if err != nil {
		b.warn(asset, "price", err)
		price = decimal.Zero
		failures++
	}

	if failures == 3 {
		return nil
	}
	bal := domain.NewBalances(cash, held, price)
	return &bal
}

func (b *Builder) recentTrades(ctx context.Context, asset domain.AssetConfig) []domain.TradeRecord {
	if b.ledgers == nil {
		return nil
	}
	ledger, err := b.ledgers.LedgerFor(asset)
	if err != nil {
		b.warn(asset, "ledger", err)
		return nil
	}
	records, err := ledger.Recent(ctx, b.history)
	if err != nil {
		b.warn(asset, "ledger", err)
		return nil
	}
	return records
}

func (b *Builder) warn(asset domain.AssetConfig, phase string, err error) {
	b.logger.Warn("⚠️ Snapshot component unavailable",
		slog.String("symbol", asset.Symbol),
		slog.String("phase", phase),
		slog.Bool("retriable", domain.IsRetriable(err)),
		slog.Any("error", err),
	)
}
