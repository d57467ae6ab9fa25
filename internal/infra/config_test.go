package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autotrade_go/internal/domain"

	"github.com/shopspring/decimal"
)

const sampleConfig = `
app:
  name: autotrade-test
trading:
  interval: 2h
  mode: centralized
  min_notional: 5000
  safety_margin: "0.9995"
  assets:
    - symbol: xrp
      name: Ripple
    - symbol: BTC
      name: Bitcoin
      ticker: KRW-BTC
      ledger_id: btc.db
    - symbol: DOGE
      enabled: false
logging:
  level: debug
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.CycleInterval() != 2*time.Hour {
		t.Errorf("interval = %v, want 2h", cfg.CycleInterval())
	}
	if cfg.Trading.Mode != ModeCentralized {
		t.Errorf("mode = %s", cfg.Trading.Mode)
	}
	if !cfg.Trading.MinNotional.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("min notional = %s", cfg.Trading.MinNotional)
	}
	if !cfg.Trading.SafetyMargin.Equal(decimal.RequireFromString("0.9995")) {
		t.Errorf("safety margin = %s", cfg.Trading.SafetyMargin)
	}

	assets := cfg.EnabledAssets()
	if len(assets) != 2 {
		t.Fatalf("expected 2 enabled assets, got %d", len(assets))
	}
	if assets[0].Symbol != "XRP" || assets[0].Ticker != "KRW-XRP" || assets[0].LedgerID != "coin_auto_trade_xrp.db" {
		t.Errorf("unexpected normalized asset %+v", assets[0])
	}
	if assets[1].LedgerID != "btc.db" {
		t.Errorf("explicit ledger id lost: %+v", assets[1])
	}
	if cfg.WorkerCount() != 2 {
		t.Errorf("worker count = %d, want 2", cfg.WorkerCount())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "app:\n  name: x\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.CycleInterval() != 4*time.Hour {
		t.Errorf("default interval = %v, want 4h", cfg.CycleInterval())
	}
	if cfg.Trading.Mode != ModePerAsset {
		t.Errorf("default mode = %s", cfg.Trading.Mode)
	}
	if len(cfg.EnabledAssets()) != 4 {
		t.Errorf("expected default asset set, got %d", len(cfg.EnabledAssets()))
	}
	if cfg.News.Cooldown != time.Hour || cfg.Trading.HistoryLimit != 4 {
		t.Errorf("unexpected defaults: cooldown=%v history=%d", cfg.News.Cooldown, cfg.Trading.HistoryLimit)
	}
}

func TestLoadConfig_LegacyHours(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "trading:\n  trade_interval_hours: 1.5\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CycleInterval() != 90*time.Minute {
		t.Errorf("interval = %v, want 90m", cfg.CycleInterval())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad mode", "trading:\n  mode: swarm\n", "trading.mode"},
		{"duplicate symbol", "trading:\n  assets:\n    - symbol: BTC\n    - symbol: btc\n", "trading.assets"},
		{"all disabled", "trading:\n  assets:\n    - symbol: BTC\n      enabled: false\n", "trading.assets"},
		{"margin above one", "trading:\n  safety_margin: 1.5\n", "trading.safety_margin"},
		{"bad provider", "llm:\n  provider: nope\n", "llm.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := LoadConfig(path)

			var ce *domain.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %s, want %s", ce.Field, tt.field)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("UPBIT_ACCESS_KEY", "env-access")
	t.Setenv("SLACK_CHANNEL_ID", "C123")

	path := writeConfig(t, t.TempDir(), "upbit:\n  access_key: file-access\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Upbit.AccessKey != "env-access" {
		t.Errorf("access key = %s, want env-access", cfg.Upbit.AccessKey)
	}
	if cfg.Slack.Channel != "C123" {
		t.Errorf("slack channel = %s", cfg.Slack.Channel)
	}
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "trading:\n  interval: 1h\n")

	w, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if got := w.Current().CycleInterval(); got != time.Hour {
		t.Fatalf("initial interval = %v", got)
	}

	writeConfig(t, dir, "trading:\n  interval: 30m\n")
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if got := w.Current().CycleInterval(); got != 30*time.Minute {
		t.Errorf("reloaded interval = %v, want 30m", got)
	}

	// A broken file keeps the last good configuration.
	writeConfig(t, dir, "trading:\n  mode: [broken\n")
	later := future.Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if got := w.Current().CycleInterval(); got != 30*time.Minute {
		t.Errorf("interval after bad reload = %v, want 30m", got)
	}
}

func TestConfigWatcher_Unchanged(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "trading:\n  interval: 1h\n")

	w, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	first := w.Current()
	if w.Current() != first {
		t.Error("unchanged file should return the same config pointer")
	}
}

func TestConfigWatcher_OlderModTime(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "trading:\n  interval: 4h\n")

	w, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if got := w.CycleInterval(); got != 4*time.Hour {
		t.Fatalf("initial interval = %v", got)
	}

	// A restored file (cp -p, git checkout) may carry an older mtime.
	writeConfig(t, dir, "trading:\n  interval: 1h\n")
	older := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, older, older); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if got := w.CycleInterval(); got != time.Hour {
		t.Errorf("interval after rewrite with older mtime = %v, want 1h", got)
	}
}

func TestConfigWatcher_SameModTime(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "trading:\n  interval: 4h\n")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	w, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if w.watcher == nil {
		t.Skip("file system watch unavailable")
	}

	writeConfig(t, dir, "trading:\n  interval: 2h\n")
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.CycleInterval() == 2*time.Hour {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("rewrite with identical mtime not picked up: interval = %v", w.CycleInterval())
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "trading:\n  interval: 4h\n")

	w, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	first := w.Current()
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if w.Current() != first {
		t.Error("a sibling file change should not reload the configuration")
	}
}

func TestPromptFileFor(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "llm:\n  prompt_file: asset.tmpl\n  portfolio_prompt_file: book.tmpl\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.PromptFileFor(ModePerAsset); got != "asset.tmpl" {
		t.Errorf("per-asset prompt = %q", got)
	}
	if got := cfg.PromptFileFor(ModeCentralized); got != "book.tmpl" {
		t.Errorf("centralized prompt = %q", got)
	}
}
