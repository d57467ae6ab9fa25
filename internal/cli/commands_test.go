package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/engine"
	"autotrade_go/internal/infra/storage"
	"autotrade_go/internal/service"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  data_dir: " + dataDir + "\n" +
		"logging:\n  dir: " + filepath.Join(dir, "logs") + "\n" +
		"trading:\n  mode: centralized\n  interval: 2h\n  assets:\n    - symbol: XRP\n    - symbol: BTC\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, t.TempDir())

	out, err := execute(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	for _, want := range []string{"is valid", "centralized", "2h0m0s", "XRP, BTC"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidate_Missing(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "config", "validate")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLedgerCommand(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, dataDir)

	set := storage.NewLedgerSet(dataDir)
	l, err := set.Open(domain.AssetConfig{Symbol: "XRP"}.Normalize())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	l.Append(context.Background(), &domain.TradeRecord{
		Decision:    "buy",
		Percentage:  decimal.NewFromInt(25),
		Reason:      "breakout",
		KRWBalance:  decimal.NewFromInt(1234567),
		CryptoPrice: decimal.NewFromInt(800),
	})
	set.Close()

	out, err := execute(t, "--config", path, "ledger", "xrp", "--limit", "5")
	if err != nil {
		t.Fatalf("ledger failed: %v", err)
	}
	if !strings.Contains(out, "buy") || !strings.Contains(out, "1,234,567") {
		t.Errorf("unexpected ledger output:\n%s", out)
	}
	if !strings.Contains(out, filepath.Join(dataDir, "coin_auto_trade_xrp.db")) {
		t.Errorf("ledger path missing from output:\n%s", out)
	}

	if _, err := execute(t, "--config", path, "ledger", "DOGE"); err == nil {
		t.Error("expected error for a symbol that is not enabled")
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, engine.CycleReport{
		StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Mode:      "per_asset",
		Assets:    2,
		Decided:   2,
		Executed:  1,
		Skipped:   1,
		Records: map[string]domain.TradeRecord{
			"XRP": {Decision: "buy", Percentage: decimal.NewFromInt(50), Reason: "trend"},
			"BTC": {Decision: "sell", Percentage: decimal.Zero, Reason: "too small"},
		},
	})

	out := buf.String()
	if strings.Index(out, "BTC") > strings.Index(out, "XRP") {
		t.Errorf("records should be sorted by symbol:\n%s", out)
	}
	if !strings.Contains(out, "skipped=1") {
		t.Errorf("counts missing:\n%s", out)
	}

	buf.Reset()
	printReport(&buf, engine.CycleReport{Mode: "centralized"})
	if !strings.Contains(buf.String(), "no decisions") {
		t.Errorf("empty cycle not reported:\n%s", buf.String())
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, []service.AssetStatus{
		{Symbol: "BTC", Stale: true},
		{Symbol: "XRP", Trades: 3, Last: &domain.TradeRecord{Decision: "hold", Timestamp: time.Now()}, TotalValue: decimal.NewFromInt(2500000)},
	})

	out := buf.String()
	if !strings.Contains(out, "never") || !strings.Contains(out, "2,500,000") || !strings.Contains(out, "ok") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}
