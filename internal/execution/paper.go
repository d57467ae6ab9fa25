package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"autotrade_go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill is one simulated trade.
type Fill struct {
	ID       string
	Ticker   string
	Side     domain.Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Notional decimal.Decimal
	Fee      decimal.Decimal
	Time     time.Time
}

// PaperVenue simulates order fills against in-memory balances.
// Market data comes from an optional upstream venue (public endpoints only).
// Every upstream price read is remembered, and the last known price stands
// in when the upstream is missing or failing.
type PaperVenue struct {
	mu       sync.Mutex
	market   domain.Venue
	feeRate  decimal.Decimal
	balances map[string]decimal.Decimal
	prices   map[string]decimal.Decimal
	fills    []Fill
}

// NewPaperVenue creates a paper venue. market may be nil.
func NewPaperVenue(market domain.Venue, feeRate decimal.Decimal) *PaperVenue {
	return &PaperVenue{
		market:   market,
		feeRate:  feeRate,
		balances: make(map[string]decimal.Decimal),
		prices:   make(map[string]decimal.Decimal),
	}
}

// Deposit credits a currency balance.
func (p *PaperVenue) Deposit(currency string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[currency] = p.balances[currency].Add(amount)
}

// UpdatePrice records the last known price of a ticker.
func (p *PaperVenue) UpdatePrice(ticker string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[ticker] = price
}

// Fills returns a copy of the simulated trades.
func (p *PaperVenue) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

func (p *PaperVenue) Candles(ctx context.Context, ticker, interval string, count int) (domain.Series, error) {
	if p.market == nil {
		return nil, fmt.Errorf("paper venue has no market data for %s: %w", ticker, domain.ErrEmptyResponse)
	}
	return p.market.Candles(ctx, ticker, interval, count)
}

func (p *PaperVenue) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[currency], nil
}

func (p *PaperVenue) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var marketErr error
	if p.market != nil {
		price, err := p.market.CurrentPrice(ctx, ticker)
		if err == nil {
			p.UpdatePrice(ticker, price)
			return price, nil
		}
		marketErr = err
	}

	p.mu.Lock()
	price, ok := p.prices[ticker]
	p.mu.Unlock()
	if ok {
		if marketErr != nil {
			slog.Warn("⚠️ Paper venue using last known price",
				slog.String("ticker", ticker),
				slog.String("price", price.String()),
				slog.Any("error", marketErr),
			)
		}
		return price, nil
	}
	if marketErr != nil {
		return decimal.Zero, marketErr
	}
	return decimal.Zero, fmt.Errorf("no price for %s: %w", ticker, domain.ErrEmptyResponse)
}

// SubmitMarketOrder fills immediately at the current price. Buys spend
// Amount KRW plus fee; sells deliver Amount units and credit proceeds net of fee.
func (p *PaperVenue) SubmitMarketOrder(ctx context.Context, order domain.OrderRequest) error {
	quote, base, err := splitTicker(order.Ticker)
	if err != nil {
		return err
	}
	if !order.Amount.IsPositive() {
		return fmt.Errorf("invalid order amount %s", order.Amount)
	}

	price, err := p.CurrentPrice(ctx, order.Ticker)
	if err != nil {
		return fmt.Errorf("failed to price order: %w", err)
	}
	if !price.IsPositive() {
		return fmt.Errorf("invalid price %s for %s", price, order.Ticker)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fill := Fill{
		ID:     uuid.NewString(),
		Ticker: order.Ticker,
		Side:   order.Side,
		Price:  price,
		Time:   time.Now(),
	}

	switch order.Side {
	case domain.SideBuy:
		fee := order.Amount.Mul(p.feeRate)
		cost := order.Amount.Add(fee)
		if p.balances[quote].LessThan(cost) {
			return fmt.Errorf("buy %s for %s %s: %w", base, cost, quote, domain.ErrInsufficientBalance)
		}
		qty := order.Amount.Div(price)
		p.balances[quote] = p.balances[quote].Sub(cost)
		p.balances[base] = p.balances[base].Add(qty)
		fill.Quantity, fill.Notional, fill.Fee = qty, order.Amount, fee

	case domain.SideSell:
		if p.balances[base].LessThan(order.Amount) {
			return fmt.Errorf("sell %s %s: %w", order.Amount, base, domain.ErrInsufficientBalance)
		}
		notional := order.Amount.Mul(price)
		fee := notional.Mul(p.feeRate)
		p.balances[base] = p.balances[base].Sub(order.Amount)
		p.balances[quote] = p.balances[quote].Add(notional.Sub(fee))
		fill.Quantity, fill.Notional, fill.Fee = order.Amount, notional, fee

	default:
		return fmt.Errorf("unknown order side %q", order.Side)
	}

	p.fills = append(p.fills, fill)
	slog.Info("📝 Paper fill",
		slog.String("ticker", order.Ticker),
		slog.String("side", string(order.Side)),
		slog.String("qty", fill.Quantity.String()),
		slog.String("price", price.String()),
	)
	return nil
}

// splitTicker turns KRW-XRP into (KRW, XRP).
func splitTicker(ticker string) (string, string, error) {
	quote, base, ok := strings.Cut(ticker, "-")
	if !ok || quote == "" || base == "" {
		return "", "", fmt.Errorf("invalid ticker %q", ticker)
	}
	return quote, base, nil
}
