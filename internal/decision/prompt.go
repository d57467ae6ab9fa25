package decision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// DefaultAssetPrompt is the per-asset system prompt. Variables: .name, .symbol.
const DefaultAssetPrompt = `You're a cryptocurrency investment expert for {{.name}} ({{.symbol}}).
You invest according to the following rules:
    1. Most of all, make a lot of money.
    2. Never lose money.
    3. Never miss the opportunity to buy.
    4. Never miss the opportunity to sell.

Analyze the provided data:
    1. Chart Data: multi-timeframe OHLCV data ('short_term': 1h, 'mid_term': 4h, 'long_term': daily).
    2. News Data: recent cryptocurrency news with 'title', 'published' and 'link'.
    3. Current Balance: KRW and {{.symbol}} holdings and the current price.
    4. Recent Trades: your last trades with decisions and their outcomes.
    5. usd_krw, when present, is the USD/KRW reference rate.

Task: based on technical analysis of the chart data and the sentiment of the news, decide whether to buy, sell or hold {{.name}}.
For buy, include a percentage (1-100) of available KRW to use.
For sell, include a percentage (1-100) of holdings to sell.
For hold, the percentage should be 100.

Answer with a single JSON object and nothing else, for example:
{"decision":"buy", "percentage": 50, "reason":"Some technical reason to buy based on analysis result"}
{"decision":"sell", "percentage": 30, "reason":"Some technical reason to sell based on analysis result"}
{"decision":"hold", "percentage": 100, "reason":"Some technical reason to hold based on analysis result"}
`

// DefaultPortfolioPrompt is the centralized system prompt. Variables: .symbols, .names.
const DefaultPortfolioPrompt = `You're a cryptocurrency portfolio manager trading {{.names}} on a KRW market.
The user message maps each symbol ({{.symbols}}) to its market data:
'short_term' (1h), 'mid_term' (4h) and 'long_term' (daily) OHLCV candles, recent 'news',
'current_balance' (KRW cash, holdings, price, total value), 'recent_trades' and an optional 'usd_krw' rate.

All assets share the same KRW cash. Weigh the opportunity cost across assets and decide,
for every symbol, whether to buy, sell or hold.
For buy, percentage (1-100) is the portion of available KRW to use.
For sell, percentage (1-100) is the portion of that asset's holdings to sell.
For hold, the percentage should be 100.

Answer with a single JSON object keyed by symbol and nothing else, for example:
{"BTC": {"decision":"sell", "percentage": 30, "reason":"..."}, "XRP": {"decision":"hold", "percentage": 100, "reason":"..."}}
`

// LoadTemplate reads a prompt override. An empty path yields the built-in template.
func LoadTemplate(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fallback, nil
	}
	return string(data), nil
}

// renderSystem formats tmpl as a Go template system message.
func renderSystem(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(tmpl))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("failed to render prompt: no messages")
	}
	return msgs[0].Content, nil
}
