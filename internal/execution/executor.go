package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra"

	"github.com/shopspring/decimal"
)

// QuoteCurrency is the cash currency of the KRW market.
const QuoteCurrency = "KRW"

// Options are the sizing thresholds of the executor.
type Options struct {
	MinNotional  decimal.Decimal
	SafetyMargin decimal.Decimal
	SettleDelay  time.Duration
}

// OptionsFromConfig reads the thresholds from the trading section.
func OptionsFromConfig(cfg *infra.Config) Options {
	return Options{
		MinNotional:  cfg.Trading.MinNotional,
		SafetyMargin: cfg.Trading.SafetyMargin,
		SettleDelay:  cfg.Trading.SettleDelay,
	}
}

// Executor converts a decision into at most one market order and always
// produces one TradeRecord for a completed attempt.
type Executor struct {
	venue  domain.Venue
	opts   Options
	logger *slog.Logger
}

// NewExecutor creates an executor against venue.
func NewExecutor(venue domain.Venue, opts Options) *Executor {
	return &Executor{
		venue:  venue,
		opts:   opts,
		logger: slog.Default().With("module", "execution"),
	}
}

// Execute reads fresh balances, sizes and gates the order, submits it,
// waits for settlement and re-reads. A failed pre-trade read or a failed
// submission aborts this asset with an error and no record.
func (e *Executor) Execute(ctx context.Context, asset domain.AssetConfig, d domain.Decision) (domain.ExecutionResult, error) {
	cash, err := e.venue.Balance(ctx, QuoteCurrency)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to read cash balance: %w", err)
	}
	held, err := e.venue.Balance(ctx, asset.Symbol)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to read %s balance: %w", asset.Symbol, err)
	}
	price, err := e.venue.CurrentPrice(ctx, asset.Ticker)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to read %s price: %w", asset.Ticker, err)
	}

	fraction := d.Fraction()
	applied := d.Percentage
	submitted := false

	switch d.Action {
	case domain.ActionBuy:
		notional := cash.Mul(e.opts.SafetyMargin).Mul(fraction)
		if notional.GreaterThan(e.opts.MinNotional) {
			order := domain.OrderRequest{Ticker: asset.Ticker, Side: domain.SideBuy, Amount: notional}
			if err := e.venue.SubmitMarketOrder(ctx, order); err != nil {
				return domain.ExecutionResult{}, fmt.Errorf("failed to submit buy: %w", err)
			}
			submitted = true
			e.logger.Info("💰 Buy order submitted",
				slog.String("symbol", asset.Symbol),
				slog.String("notional", notional.StringFixed(0)),
				slog.String("percentage", d.Percentage.String()),
			)
		} else {
			applied = decimal.Zero
			e.logSkip(asset, d, notional)
		}

	case domain.ActionSell:
		qty := held.Mul(fraction)
		value := qty.Mul(price)
		if value.GreaterThan(e.opts.MinNotional) {
			order := domain.OrderRequest{Ticker: asset.Ticker, Side: domain.SideSell, Amount: qty}
			if err := e.venue.SubmitMarketOrder(ctx, order); err != nil {
				return domain.ExecutionResult{}, fmt.Errorf("failed to submit sell: %w", err)
			}
			submitted = true
			e.logger.Info("💸 Sell order submitted",
				slog.String("symbol", asset.Symbol),
				slog.String("quantity", qty.String()),
				slog.String("value", value.StringFixed(0)),
				slog.String("percentage", d.Percentage.String()),
			)
		} else {
			applied = decimal.Zero
			e.logSkip(asset, d, value)
		}

	case domain.ActionHold:
		submitted = true
		e.logger.Info("⏸️ Holding", slog.String("symbol", asset.Symbol))

	default:
		return domain.ExecutionResult{}, fmt.Errorf("%w: action %q", domain.ErrMalformedDecision, d.Action)
	}

	// The order is already on the venue; the record must not depend on ctx.
	post := context.WithoutCancel(ctx)
	if submitted && d.IsTrade() {
		e.settle(ctx)
	}

	record := domain.TradeRecord{
		Timestamp:     time.Now(),
		Decision:      string(d.Action),
		Percentage:    applied,
		Reason:        d.Reason,
		KRWBalance:    e.reread(post, asset, "cash_balance", func(c context.Context) (decimal.Decimal, error) { return e.venue.Balance(c, QuoteCurrency) }),
		CryptoBalance: e.reread(post, asset, "asset_balance", func(c context.Context) (decimal.Decimal, error) { return e.venue.Balance(c, asset.Symbol) }),
		CryptoPrice:   e.reread(post, asset, "price", func(c context.Context) (decimal.Decimal, error) { return e.venue.CurrentPrice(c, asset.Ticker) }),
	}

	return domain.ExecutionResult{Record: record, Submitted: submitted}, nil
}

func (e *Executor) logSkip(asset domain.AssetConfig, d domain.Decision, value decimal.Decimal) {
	e.logger.Info("🪙 Order below minimum notional, skipped",
		slog.String("symbol", asset.Symbol),
		slog.String("action", string(d.Action)),
		slog.String("value", value.StringFixed(2)),
		slog.String("min_notional", e.opts.MinNotional.String()),
	)
}

// settle waits for the venue to reflect the fill. Cancellation only cuts the wait short.
func (e *Executor) settle(ctx context.Context) {
	if e.opts.SettleDelay <= 0 {
		return
	}
	timer := time.NewTimer(e.opts.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (e *Executor) reread(ctx context.Context, asset domain.AssetConfig, phase string, read func(context.Context) (decimal.Decimal, error)) decimal.Decimal {
	v, err := read(ctx)
	if err != nil {
		e.logger.Warn("⚠️ Post-trade read failed, recording zero",
			slog.String("symbol", asset.Symbol),
			slog.String("phase", phase),
			slog.Any("error", err),
		)
		return decimal.Zero
	}
	return v
}
