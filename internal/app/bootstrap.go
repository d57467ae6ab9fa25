package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/engine"
	"autotrade_go/internal/execution"
	"autotrade_go/internal/infra"
	"autotrade_go/internal/infra/storage"
	"autotrade_go/internal/infra/upbit"
	"autotrade_go/internal/llm"
	"autotrade_go/internal/news"
	"autotrade_go/internal/notify"
	"autotrade_go/internal/snapshot"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string
	Watcher    *infra.ConfigWatcher
	Config     *infra.Config
	Ledgers    *storage.LedgerSet

	Venue        domain.Venue
	Paper        *execution.PaperVenue
	Completer    domain.Completer
	Notifier     domain.Notifier
	Orchestrator *engine.Orchestrator
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads configuration, installs the logger and prepares the
// ledger directory. Every failure here is fatal for the caller.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	watcher, err := infra.NewConfigWatcher(b.ConfigPath)
	if err != nil {
		return err
	}
	b.Watcher = watcher
	b.Config = watcher.Current()

	// 2. Setup Logger
	logger := infra.NewLogger(b.Config)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping autotrade...",
		slog.String("config", b.ConfigPath),
		slog.String("mode", b.Config.Trading.Mode),
		slog.Bool("paper", b.Config.Trading.Paper),
	)

	// 3. Ledger directory
	if err := os.MkdirAll(b.Config.Storage.DataDir, 0755); err != nil {
		b.Watcher.Close()
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	b.Ledgers = storage.NewLedgerSet(b.Config.Storage.DataDir)
	slog.Info("✅ Ledger directory ready", slog.String("dir", b.Config.Storage.DataDir))

	return nil
}

// InitTrading wires the venue, model, news, notifier and orchestrator.
func (b *Bootstrap) InitTrading(ctx context.Context) error {
	cfg := b.Config

	// 1. Venue
	client := upbit.NewClient(cfg)
	if cfg.Trading.Paper {
		b.Paper = execution.NewPaperVenue(client, cfg.Trading.FeeRate)
		b.Paper.Deposit(execution.QuoteCurrency, cfg.Trading.PaperCash)
		b.Venue = b.Paper
		slog.Info("📝 Paper trading enabled", slog.String("cash", cfg.Trading.PaperCash.String()))
	} else {
		if cfg.Upbit.AccessKey == "" || cfg.Upbit.SecretKey == "" {
			slog.Warn("⚠️ Upbit credentials missing, private calls will fail")
		}
		b.Venue = client
	}

	// 2. Model
	completer, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	b.Completer = completer
	slog.Info("✅ Chat model ready", slog.String("provider", cfg.LLM.Provider), slog.String("model", cfg.LLM.Model))

	// 3. News and reference rate
	source := news.NewRSSSource(cfg.News.Feeds, time.Duration(cfg.News.TimeoutSec)*time.Second)
	fetcher := news.NewRateLimitedFetcher(source, news.NewCooldownState(), cfg.News.Cooldown, cfg.News.MaxResults)
	rates := infra.NewExchangeRateClient(cfg.ExchangeRate.URL)

	// 4. Notifier
	slack := notify.NewSlackNotifier(cfg)
	if slack.Enabled() {
		b.Notifier = slack
	} else {
		b.Notifier = notify.LogNotifier{}
	}
	slog.Info("✅ Notifier ready", slog.String("notifier", slack.String()))

	builder := snapshot.NewBuilder(b.Venue, fetcher, b.Ledgers, rates).WithHistory(cfg.Trading.HistoryLimit)

	b.Orchestrator = engine.NewOrchestrator(engine.Dependencies{
		Config:    b.Watcher,
		Builder:   builder,
		Completer: b.Completer,
		Venue:     b.Venue,
		Ledgers:   b.Ledgers,
		Notifier:  b.Notifier,
		Metrics:   infra.GlobalMetrics,
	})
	return nil
}

// OpenLedgers opens every enabled asset's ledger in parallel so an
// unreadable store is reported at startup rather than mid-cycle.
func (b *Bootstrap) OpenLedgers(ctx context.Context) error {
	assets := b.Watcher.Current().EnabledAssets()
	slog.Info("🔄 Opening ledgers...", slog.Int("assets", len(assets)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	semaphore := make(chan struct{}, 5) // Limit concurrent opens

	for _, asset := range assets {
		wg.Add(1)
		go func(asset domain.AssetConfig) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			l, err := b.Ledgers.Open(asset)
			var n int64
			if err == nil {
				n, err = l.Count(ctx)
			}
			if err == nil {
				slog.Debug("📒 Ledger opened",
					slog.String("symbol", asset.Symbol),
					slog.String("path", l.Path()),
					slog.Int64("records", n),
				)
			}
			if err != nil {
				slog.Error("❌ Ledger unavailable", slog.String("symbol", asset.Symbol), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", asset.Symbol, err))
				mu.Unlock()
			}
		}(asset)
	}

	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("✨ Ledgers ready")
	return nil
}

// Close stops the config watch and releases the ledgers.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Watcher != nil {
		errs = append(errs, b.Watcher.Close())
	}
	if b.Ledgers != nil {
		errs = append(errs, b.Ledgers.Close())
	}
	return errors.Join(errs...)
}
