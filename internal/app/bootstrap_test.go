package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"autotrade_go/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBootstrap_Initialize(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
storage:
  data_dir: `+filepath.Join(dir, "data")+`
logging:
  dir: `+filepath.Join(dir, "logs")+`
trading:
  paper: true
  assets:
    - symbol: XRP
    - symbol: BTC
`)

	b := NewBootstrap(path)
	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
	if err := b.OpenLedgers(context.Background()); err != nil {
		t.Fatalf("OpenLedgers failed: %v", err)
	}
	for _, name := range []string{"coin_auto_trade_xrp.db", "coin_auto_trade_btc.db"} {
		if _, err := os.Stat(filepath.Join(dir, "data", name)); err != nil {
			t.Errorf("ledger %s not created: %v", name, err)
		}
	}
}

func TestBootstrap_MissingConfig(t *testing.T) {
	b := NewBootstrap(filepath.Join(t.TempDir(), "missing.yaml"))
	if err := b.Initialize(); !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestBootstrap_InitTradingNeedsModelKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	path := writeConfig(t, `
storage:
  data_dir: `+filepath.Join(dir, "data")+`
logging:
  dir: `+filepath.Join(dir, "logs")+`
`)

	b := NewBootstrap(path)
	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	if err := b.InitTrading(context.Background()); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestBootstrap_InitTradingPaper(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SLACK_BOT_TOKEN", "")
	dir := t.TempDir()
	path := writeConfig(t, `
storage:
  data_dir: `+filepath.Join(dir, "data")+`
logging:
  dir: `+filepath.Join(dir, "logs")+`
trading:
  paper: true
  paper_cash: 500000
`)

	b := NewBootstrap(path)
	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	if err := b.InitTrading(context.Background()); err != nil {
		t.Fatalf("InitTrading failed: %v", err)
	}
	if b.Paper == nil || b.Venue != b.Paper {
		t.Fatal("paper mode should install the paper venue")
	}
	cash, err := b.Venue.Balance(context.Background(), "KRW")
	if err != nil || cash.IntPart() != 500000 {
		t.Errorf("paper cash = %s, %v", cash, err)
	}
	if b.Orchestrator == nil {
		t.Error("orchestrator not wired")
	}
}
