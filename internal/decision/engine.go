package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra"
)

const maxRawLog = 500

// Engine turns snapshots into validated decisions through a Completer.
type Engine struct {
	completer domain.Completer
	mode      string
	workers   int
	metrics   *infra.Metrics
	logger    *slog.Logger
}

// NewEngine creates an engine for one mode. workers bounds concurrent
// per-asset calls; zero means one per asset.
func NewEngine(completer domain.Completer, mode string, workers int) *Engine {
	if mode == "" {
		mode = infra.ModePerAsset
	}
	return &Engine{
		completer: completer,
		mode:      mode,
		workers:   workers,
		metrics:   infra.GlobalMetrics,
		logger:    slog.Default().With("module", "decision"),
	}
}

// WithMetrics replaces the metrics sink.
func (e *Engine) WithMetrics(m *infra.Metrics) *Engine {
	e.metrics = m
	return e
}

// Mode returns the configured decision mode.
func (e *Engine) Mode() string {
	return e.mode
}

// Decide returns at most one decision per snapshot symbol. Rejected replies
// and unknown symbols are logged and left out; Decide never fails.
// An empty promptTemplate selects the built-in template of the mode.
func (e *Engine) Decide(ctx context.Context, snapshots map[string]domain.MarketSnapshot, promptTemplate string) map[string]domain.Decision {
	if len(snapshots) == 0 {
		return map[string]domain.Decision{}
	}
	if e.mode == infra.ModeCentralized {
		if promptTemplate == "" {
			promptTemplate = DefaultPortfolioPrompt
		}
		return e.decideCentralized(ctx, snapshots, promptTemplate)
	}
	if promptTemplate == "" {
		promptTemplate = DefaultAssetPrompt
	}
	return e.decidePerAsset(ctx, snapshots, promptTemplate)
}

func (e *Engine) decidePerAsset(ctx context.Context, snapshots map[string]domain.MarketSnapshot, tmpl string) map[string]domain.Decision {
	workers := e.workers
	if workers <= 0 || workers > len(snapshots) {
		workers = len(snapshots)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]domain.Decision, len(snapshots))
	)
	semaphore := make(chan struct{}, workers)

	for symbol, snap := range snapshots {
		wg.Add(1)
		go func(symbol string, snap domain.MarketSnapshot) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					e.metrics.RecordError()
					e.logger.Error("🔥 Decision worker panicked",
						slog.String("symbol", symbol), slog.Any("panic", r))
				}
			}()

			d, err := e.decideOne(ctx, symbol, snap, tmpl)
			if err != nil {
				e.reject(symbol, err)
				return
			}
			mu.Lock()
			out[symbol] = d
			mu.Unlock()
		}(symbol, snap)
	}
	wg.Wait()

	return out
}

func (e *Engine) decideOne(ctx context.Context, symbol string, snap domain.MarketSnapshot, tmpl string) (domain.Decision, error) {
	name := snap.Name
	if name == "" {
		name = symbol
	}
	system, err := renderSystem(ctx, tmpl, map[string]any{"name": name, "symbol": symbol})
	if err != nil {
		return domain.Decision{}, err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	raw, err := e.completer.Complete(ctx, system, string(payload))
	if err != nil {
		return domain.Decision{}, err
	}

	d, err := ParseDecision(raw)
	if err != nil {
		return domain.Decision{}, &domain.DecisionError{Symbol: symbol, Raw: raw, Err: err}
	}

	e.logger.Info("🧠 Decision received",
		slog.String("symbol", symbol),
		slog.String("action", string(d.Action)),
		slog.String("percentage", d.Percentage.String()),
	)
	return d, nil
}

func (e *Engine) decideCentralized(ctx context.Context, snapshots map[string]domain.MarketSnapshot, tmpl string) map[string]domain.Decision {
	symbols := make([]string, 0, len(snapshots))
	for s := range snapshots {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if n := snapshots[s].Name; n != "" {
			names = append(names, n)
		} else {
			names = append(names, s)
		}
	}

	out := make(map[string]domain.Decision, len(snapshots))

	system, err := renderSystem(ctx, tmpl, map[string]any{
		"symbols": strings.Join(symbols, ", "),
		"names":   strings.Join(names, ", "),
	})
	if err != nil {
		e.reject("", err)
		return out
	}

	payload, err := json.Marshal(snapshots)
	if err != nil {
		e.reject("", fmt.Errorf("failed to encode snapshots: %w", err))
		return out
	}

	raw, err := e.completer.Complete(ctx, system, string(payload))
	if err != nil {
		e.reject("", err)
		return out
	}

	decisions, failures, err := ParseDecisionSet(raw)
	if err != nil {
		e.reject("", &domain.DecisionError{Raw: raw, Err: err})
		return out
	}

	for symbol, ferr := range failures {
		e.reject(symbol, &domain.DecisionError{Symbol: symbol, Raw: raw, Err: ferr})
	}

	for symbol, d := range decisions {
		if _, ok := snapshots[symbol]; !ok {
			e.metrics.RecordRejected()
			e.logger.Error("🚫 Decision for unknown symbol discarded",
				slog.String("symbol", symbol),
				slog.String("action", string(d.Action)),
				slog.Any("error", domain.ErrUnknownSymbol),
			)
			continue
		}
		out[symbol] = d
		e.logger.Info("🧠 Decision received",
			slog.String("symbol", symbol),
			slog.String("action", string(d.Action)),
			slog.String("percentage", d.Percentage.String()),
		)
	}

	for _, s := range symbols {
		if _, ok := out[s]; !ok {
			if _, failed := failures[s]; !failed {
				e.logger.Warn("⚠️ No decision returned for asset", slog.String("symbol", s))
			}
		}
	}
	return out
}

// reject logs a failed decision. Malformed replies keep their raw text.
func (e *Engine) reject(symbol string, err error) {
	attrs := []any{
		slog.String("symbol", symbol),
		slog.String("phase", "decide"),
		slog.Any("error", err),
	}

	var de *domain.DecisionError
	if errors.As(err, &de) {
		e.metrics.RecordRejected()
		attrs = append(attrs, slog.String("raw", truncate(de.Raw, maxRawLog)))
		e.logger.Warn("❌ Decision rejected", attrs...)
		return
	}

	e.metrics.RecordError()
	e.logger.Error("❌ Decision call failed", attrs...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
