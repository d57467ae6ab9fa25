package upbit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	WSURL = "wss://api.upbit.com/websocket/v1"

	// Snapshot frames arrive right after subscribe; anything slower is a failure.
	maxSnapshotFrames = 10
)

// TickerStream reads one ticker snapshot over the websocket API and closes
// the connection. No connection outlives a call.
type TickerStream struct {
	url     string
	timeout time.Duration
}

// NewTickerStream creates a ticker stream for the given websocket endpoint.
func NewTickerStream(wsURL string, timeout time.Duration) *TickerStream {
	if wsURL == "" {
		wsURL = WSURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TickerStream{url: wsURL, timeout: timeout}
}

// LastPrice returns the last trade price of ticker.
func (p *TickerStream) LastPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: p.timeout}
	header := make(http.Header)
	header.Set("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, p.url, header)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("ticker_stream", fmt.Errorf("dial failed: %w", err))
	}
	defer conn.Close()

	sub := []map[string]any{
		{"ticket": "autotrade-" + uuid.NewString()},
		{"type": "ticker", "codes": []string{ticker}, "isOnlySnapshot": true},
		{"format": "DEFAULT"},
	}
	b, _ := json.Marshal(sub)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return decimal.Zero, domain.NewNetworkError("ticker_stream", err)
	}

	deadline, _ := ctx.Deadline()
	conn.SetReadDeadline(deadline)

	for i := 0; i < maxSnapshotFrames; i++ {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return decimal.Zero, domain.NewNetworkError("ticker_stream", err)
		}
		var frame tickerMessage
		if json.Unmarshal(msg, &frame) != nil || frame.Type != "ticker" || frame.Code != ticker {
			continue
		}
		if !frame.TradePrice.IsPositive() {
			return decimal.Zero, fmt.Errorf("ticker %s: %w", ticker, domain.ErrEmptyResponse)
		}
		return frame.TradePrice, nil
	}
	return decimal.Zero, fmt.Errorf("ticker %s: no snapshot frame: %w", ticker, domain.ErrEmptyResponse)
}
