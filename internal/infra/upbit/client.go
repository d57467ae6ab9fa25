package upbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	BaseURL = "https://api.upbit.com"

	// Upbit rejects volumes with more than 8 decimals.
	volumePrecision = 8
)

// Client is the Upbit REST client (boundary layer). It implements domain.Venue.
type Client struct {
	baseURL string
	http    *resty.Client
	signer  *Signer
	stream  *TickerStream
	logger  *slog.Logger
}

// NewClient creates a new Upbit client from configuration.
// The websocket ticker stream is used as a price fallback when the orderbook call fails.
func NewClient(cfg *infra.Config) *Client {
	baseURL := cfg.Upbit.RestURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	timeout := time.Duration(cfg.Upbit.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", infra.DefaultUserAgent)
	client.SetHeader("Accept", "application/json")

	c := &Client{
		baseURL: baseURL,
		http:    client,
		signer:  NewSigner(cfg.Upbit.AccessKey, cfg.Upbit.SecretKey),
		logger:  slog.Default().With("module", "upbit_client"),
	}
	if cfg.Upbit.WSURL != "" {
		c.stream = NewTickerStream(cfg.Upbit.WSURL, timeout)
	}
	return c
}

// candlePath maps an interval identifier to its REST path.
func candlePath(interval string) (string, error) {
	switch {
	case interval == domain.IntervalDay || interval == "days":
		return "/v1/candles/days", nil
	case interval == "week":
		return "/v1/candles/weeks", nil
	case interval == "month":
		return "/v1/candles/months", nil
	case strings.HasPrefix(interval, "minute"):
		unit, err := strconv.Atoi(strings.TrimPrefix(interval, "minute"))
		if err != nil || unit <= 0 {
			return "", fmt.Errorf("invalid candle interval %q", interval)
		}
		return "/v1/candles/minutes/" + strconv.Itoa(unit), nil
	default:
		return "", fmt.Errorf("invalid candle interval %q", interval)
	}
}

// Candles returns count candles for ticker, oldest first.
func (c *Client) Candles(ctx context.Context, ticker, interval string, count int) (domain.Series, error) {
	path, err := candlePath(interval)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("market", ticker)
	query.Set("count", strconv.Itoa(count))

	var rows []candleResponse
	if err := c.get(ctx, "candles", path, query, false, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("candles %s %s: %w", ticker, interval, domain.ErrEmptyResponse)
	}

	series := make(domain.Series, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse("2006-01-02T15:04:05", r.DateTimeUTC)
		if err != nil {
			ts = time.UnixMilli(r.Timestamp).UTC()
		}
		series = append(series, domain.Candle{
			Timestamp: ts,
			Open:      r.OpeningPrice,
			High:      r.HighPrice,
			Low:       r.LowPrice,
			Close:     r.TradePrice,
			Volume:    r.AccTradeVol,
		})
	}
	// Upbit returns newest first.
	slices.Reverse(series)
	return series, nil
}

// Balance returns the free balance of a currency. A currency the account
// has never held is zero, not an error.
func (c *Client) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	var accounts []accountResponse
	if err := c.get(ctx, "accounts", "/v1/accounts", nil, true, &accounts); err != nil {
		return decimal.Zero, err
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Currency, currency) {
			return a.Balance, nil
		}
	}
	return decimal.Zero, nil
}

// CurrentPrice returns the best ask from the orderbook, falling back to the
// last trade price from a websocket snapshot.
func (c *Client) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	price, err := c.bestAsk(ctx, ticker)
	if err == nil {
		return price, nil
	}
	if c.stream == nil {
		return decimal.Zero, err
	}

	c.logger.Warn("⚠️ Orderbook price failed, trying ticker snapshot",
		slog.String("ticker", ticker), slog.Any("error", err))
	price, perr := c.stream.LastPrice(ctx, ticker)
	if perr != nil {
		return decimal.Zero, fmt.Errorf("orderbook: %w; ticker snapshot: %v", err, perr)
	}
	return price, nil
}

func (c *Client) bestAsk(ctx context.Context, ticker string) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("markets", ticker)

	var books []orderbookResponse
	if err := c.get(ctx, "orderbook", "/v1/orderbook", query, false, &books); err != nil {
		return decimal.Zero, err
	}
	if len(books) == 0 || len(books[0].OrderbookUnits) == 0 {
		return decimal.Zero, fmt.Errorf("orderbook %s: %w", ticker, domain.ErrEmptyResponse)
	}
	return books[0].OrderbookUnits[0].AskPrice, nil
}

// SubmitMarketOrder places a market order. Buys spend order.Amount KRW,
// sells dispose of order.Amount units of the asset.
func (c *Client) SubmitMarketOrder(ctx context.Context, order domain.OrderRequest) error {
	params := url.Values{}
	params.Set("market", order.Ticker)

	switch order.Side {
	case domain.SideBuy:
		params.Set("side", "bid")
		params.Set("ord_type", "price")
		params.Set("price", order.Amount.Truncate(0).String())
	case domain.SideSell:
		params.Set("side", "ask")
		params.Set("ord_type", "market")
		params.Set("volume", order.Amount.Truncate(volumePrecision).String())
	default:
		return fmt.Errorf("unsupported order side %q", order.Side)
	}

	auth, err := c.signer.Authorization(params.Encode())
	if err != nil {
		return err
	}

	var out orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetHeader("Content-Type", "application/json").
		SetBody(valuesBody(params)).
		Post("/v1/orders")
	if err != nil {
		return domain.NewNetworkError("order", err)
	}
	if err := checkResponse("order", resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return fmt.Errorf("failed to parse order response: %w", err)
	}

	c.logger.Info("✅ Order placed",
		slog.String("uuid", out.UUID),
		slog.String("ticker", order.Ticker),
		slog.String("side", string(order.Side)),
		slog.String("amount", order.Amount.String()),
	)
	return nil
}

// get performs a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, private bool, out any) error {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if private {
		auth, err := c.signer.Authorization(query.Encode())
		if err != nil {
			return err
		}
		req.SetHeader("Authorization", auth)
	}

	resp, err := req.Get(path)
	if err != nil {
		return domain.NewNetworkError(op, err)
	}
	if err := checkResponse(op, resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", op, err)
	}
	return nil
}

// checkResponse maps HTTP failures onto domain errors. Throttling and
// server errors are retriable, client errors are not.
func checkResponse(op string, resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	msg := strings.TrimSpace(resp.String())
	var apiErr apiError
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Name != "" {
		msg = apiErr.Error.Name + ": " + apiErr.Error.Message
	}

	err := fmt.Errorf("upbit api error: status=%d %s", resp.StatusCode(), msg)
	if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500 {
		return domain.NewNetworkError(op, err)
	}
	return domain.NewFatalNetworkError(op, err)
}
