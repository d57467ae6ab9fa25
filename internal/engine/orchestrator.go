package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"autotrade_go/internal/decision"
	"autotrade_go/internal/domain"
	"autotrade_go/internal/execution"
	"autotrade_go/internal/infra"
	"autotrade_go/internal/notify"
)

// Cycle phases.
const (
	PhaseCollect = "collect"
	PhaseDecide  = "decide"
	PhaseExecute = "execute"
	PhaseDone    = "done"
)

// Snapshotter builds one asset's decision payload.
type Snapshotter interface {
	Build(ctx context.Context, asset domain.AssetConfig) domain.MarketSnapshot
}

// CycleReport summarizes one cycle. Skipped counts buy/sell attempts
// stopped by the minimum-notional gate; Cancelled counts assets that never
// ran because the context ended. Every asset that reaches EXECUTE lands in
// exactly one of Executed, Skipped, Failed or Cancelled.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Mode      string
	Assets    int
	Collected int
	Decided   int
	Executed  int
	Skipped   int
	Failed    int
	Cancelled int
	Records   map[string]domain.TradeRecord
}

// Empty reports whether the decide phase produced nothing.
func (r CycleReport) Empty() bool {
	return r.Decided == 0
}

// Dependencies wires the orchestrator's collaborators.
type Dependencies struct {
	Config    *infra.ConfigWatcher
	Builder   Snapshotter
	Completer domain.Completer
	Venue     domain.Venue
	Ledgers   domain.LedgerProvider
	Notifier  domain.Notifier
	Metrics   *infra.Metrics
}

// Orchestrator runs COLLECT → DECIDE → EXECUTE×N → DONE.
type Orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator. A nil notifier logs only; nil
// metrics use the global instance.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = infra.GlobalMetrics
	}
	return &Orchestrator{
		deps:   deps,
		logger: slog.Default().With("module", "orchestrator"),
	}
}

// RunCycle runs one full cycle. It never fails; per-asset problems are
// logged and counted in the report.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleReport {
	cfg := o.deps.Config.Current()
	assets := cfg.EnabledAssets()
	workers := cfg.WorkerCount()

	report := CycleReport{
		StartedAt: time.Now(),
		Mode:      cfg.Trading.Mode,
		Assets:    len(assets),
		Records:   make(map[string]domain.TradeRecord),
	}
	o.logger.Info("🚀 Cycle started",
		slog.Int("assets", len(assets)),
		slog.String("mode", cfg.Trading.Mode),
	)

	// COLLECT
	snapshots := make(map[string]domain.MarketSnapshot, len(assets))
	var mu sync.Mutex
	panics, cancelled := o.fanOut(ctx, PhaseCollect, assets, workers, func(asset domain.AssetConfig) {
		snap := o.deps.Builder.Build(ctx, asset)
		mu.Lock()
		snapshots[asset.Symbol] = snap
		mu.Unlock()
	})
	report.Failed += panics
	report.Cancelled += cancelled
	report.Collected = len(snapshots)

	// DECIDE
	tmpl, err := decision.LoadTemplate(cfg.PromptFileFor(cfg.Trading.Mode), "")
	if err != nil {
		o.logger.Error("❌ Prompt override unreadable, using built-in prompt", slog.Any("error", err))
		tmpl = ""
	}
	eng := decision.NewEngine(o.deps.Completer, cfg.Trading.Mode, workers).WithMetrics(o.deps.Metrics)
	decisions := eng.Decide(ctx, snapshots, tmpl)
	report.Mode = eng.Mode()
	report.Decided = len(decisions)

	if len(decisions) == 0 {
		report.Duration = time.Since(report.StartedAt)
		o.deps.Metrics.RecordCycle(report.Duration, 0)
		o.logger.Info("💤 No decisions this cycle, nothing executed",
			slog.String("phase", PhaseDone),
			slog.Int("collected", report.Collected),
			slog.Duration("duration", report.Duration),
		)
		return report
	}

	// EXECUTE
	executor := execution.NewExecutor(o.deps.Venue, execution.OptionsFromConfig(cfg))
	targets := make([]domain.AssetConfig, 0, len(decisions))
	for _, a := range assets {
		if _, ok := decisions[a.Symbol]; ok {
			targets = append(targets, a)
		}
	}

	var executed, skipped, failed atomic.Int64
	panics, cancelled = o.fanOut(ctx, PhaseExecute, targets, workers, func(asset domain.AssetConfig) {
		d := decisions[asset.Symbol]
		res, ok := o.executeOne(ctx, executor, asset, d)
		if !ok {
			failed.Add(1)
			return
		}
		if d.IsTrade() && !res.Submitted {
			skipped.Add(1)
		} else {
			executed.Add(1)
		}
		mu.Lock()
		report.Records[asset.Symbol] = res.Record
		mu.Unlock()
	})

	report.Executed = int(executed.Load())
	report.Skipped = int(skipped.Load())
	report.Failed += int(failed.Load()) + panics
	report.Cancelled += cancelled
	report.Duration = time.Since(report.StartedAt)
	o.deps.Metrics.RecordCycle(report.Duration, report.Decided)

	m := o.deps.Metrics.Snapshot()
	o.logger.Info("✨ Cycle completed",
		slog.String("phase", PhaseDone),
		slog.Int("decided", report.Decided),
		slog.Int("executed", report.Executed),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("cancelled", report.Cancelled),
		slog.Duration("duration", report.Duration),
		slog.Uint64("cycles_total", m.CyclesRun),
		slog.Uint64("orders_total", m.OrdersSubmitted),
	)
	return report
}

// executeOne runs Execute, then Append, then Notify for one asset.
func (o *Orchestrator) executeOne(ctx context.Context, executor *execution.Executor, asset domain.AssetConfig, d domain.Decision) (domain.ExecutionResult, bool) {
	res, err := executor.Execute(ctx, asset, d)
	if err != nil {
		o.deps.Metrics.RecordError()
		o.logger.Error("❌ Execution failed",
			slog.String("symbol", asset.Symbol),
			slog.String("phase", PhaseExecute),
			slog.String("action", string(d.Action)),
			slog.Bool("retriable", domain.IsRetriable(err)),
			slog.Any("error", err),
		)
		return res, false
	}
	if d.IsTrade() {
		o.deps.Metrics.RecordOrder(res.Submitted)
	}

	// Past this point an order may be live; the record is written regardless of ctx.
	persist := context.WithoutCancel(ctx)
	ledger, err := o.deps.Ledgers.LedgerFor(asset)
	if err == nil {
		err = ledger.Append(persist, &res.Record)
	}
	if err != nil {
		o.deps.Metrics.RecordError()
		o.logger.Error("❌ Trade record not persisted",
			slog.String("symbol", asset.Symbol),
			slog.String("phase", "ledger"),
			slog.String("action", res.Record.Decision),
			slog.Bool("submitted", res.Submitted),
			slog.Any("error", err),
		)
		return res, false
	}

	o.logger.Info("📒 Trade recorded",
		slog.String("symbol", asset.Symbol),
		slog.Uint64("id", uint64(res.Record.ID)),
		slog.String("action", res.Record.Decision),
		slog.String("percentage", res.Record.Percentage.String()),
	)

	if notify.ShouldNotify(d.Action) {
		o.deps.Notifier.Notify(persist, notify.FormatTradeAlert(asset, d.Percentage, res))
	}
	return res, true
}

// fanOut runs fn for every asset on at most workers goroutines and waits
// for all of them. It returns how many workers panicked and how many assets
// were dropped because ctx ended before they ran.
func (o *Orchestrator) fanOut(ctx context.Context, phase string, assets []domain.AssetConfig, workers int, fn func(domain.AssetConfig)) (panics, cancelled int) {
	if workers <= 0 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		panicked atomic.Int64
		dropped  atomic.Int64
	)
	ordered := append([]domain.AssetConfig(nil), assets...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Symbol < ordered[j].Symbol })
	semaphore := make(chan struct{}, workers)

	for _, asset := range ordered {
		wg.Add(1)
		go func(asset domain.AssetConfig) {
			defer wg.Done()
			if ctx.Err() != nil {
				dropped.Add(1)
				o.logger.Warn("⚠️ Cycle cancelled before asset ran",
					slog.String("symbol", asset.Symbol), slog.String("phase", phase))
				return
			}
			select {
			case <-ctx.Done():
				dropped.Add(1)
				o.logger.Warn("⚠️ Cycle cancelled before asset ran",
					slog.String("symbol", asset.Symbol), slog.String("phase", phase))
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					panicked.Add(1)
					o.deps.Metrics.RecordError()
					o.logger.Error("🔥 Worker panicked",
						slog.String("symbol", asset.Symbol),
						slog.String("phase", phase),
						slog.Any("panic", r),
					)
				}
			}()
			fn(asset)
		}(asset)
	}
	wg.Wait()

	return int(panicked.Load()), int(dropped.Load())
}
