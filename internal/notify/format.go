package notify

import (
	"fmt"
	"strings"
	"time"

	"autotrade_go/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var actionEmoji = map[string]string{
	string(domain.ActionBuy):  "🟢",
	string(domain.ActionSell): "🔴",
	string(domain.ActionHold): "🟡",
}

// ShouldNotify reports whether an action produces a trade alert.
func ShouldNotify(action domain.Action) bool {
	return action == domain.ActionBuy || action == domain.ActionSell
}

// FormatTradeAlert renders the Slack mrkdwn alert for one executed attempt.
// requested is the decision's percentage; the record may carry 0 when skipped.
func FormatTradeAlert(asset domain.AssetConfig, requested decimal.Decimal, res domain.ExecutionResult) string {
	rec := res.Record
	emoji, ok := actionEmoji[rec.Decision]
	if !ok {
		emoji = "❓"
	}
	status := "SKIPPED"
	if res.Submitted {
		status = "EXECUTED"
	}

	bal := domain.NewBalances(rec.KRWBalance, rec.CryptoBalance, rec.CryptoPrice)
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s Trading Alert* %s\n\n", emoji, asset.Name, emoji)
	fmt.Fprintf(&b, "*Decision:* %s %s%%\n", strings.ToUpper(rec.Decision), requested.StringFixed(1))
	fmt.Fprintf(&b, "*Status:* %s\n", status)
	fmt.Fprintf(&b, "*Timestamp:* %s\n\n", ts.Format("2006-01-02 15:04:05"))
	b.WriteString("*Portfolio Status:*\n")
	fmt.Fprintf(&b, "• %s Balance: `%s` (₩%s)\n", asset.Symbol, rec.CryptoBalance.StringFixed(6), won(bal.AssetValue()))
	fmt.Fprintf(&b, "• KRW Balance: `₩%s`\n", won(rec.KRWBalance))
	fmt.Fprintf(&b, "• Total Value: `₩%s`\n", won(bal.TotalValue))
	fmt.Fprintf(&b, "• Current %s Price: `₩%s`\n\n", asset.Symbol, won(rec.CryptoPrice))
	b.WriteString("*AI Reasoning:*\n")
	fmt.Fprintf(&b, "_%s_\n\n", rec.Reason)
	b.WriteString("---\n")
	fmt.Fprintf(&b, "_Crypto Auto Trading Bot - %s_ 🤖", asset.Symbol)
	return b.String()
}

func won(v decimal.Decimal) string {
	return humanize.Comma(v.Round(0).IntPart())
}
