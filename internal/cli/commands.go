package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"autotrade_go/internal/app"
	"autotrade_go/internal/domain"
	"autotrade_go/internal/engine"
	"autotrade_go/internal/infra"
	"autotrade_go/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

const defaultConfigPath = "configs/config.yaml"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "autotrade",
		Short: "autotrade - LLM-driven crypto trader",
		Long: `autotrade runs a periodic trading cycle over a set of Upbit assets.
Each cycle collects market snapshots, asks a language model for buy/sell/hold
decisions and executes them, appending one ledger row per asset.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Configuration file path")

	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newOnceCmd(&configPath))
	rootCmd.AddCommand(newLedgerCmd(&configPath))
	rootCmd.AddCommand(newStatusCmd(&configPath))
	rootCmd.AddCommand(newConfigCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newRunCmd starts the scheduler and blocks until the context ends.
func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run trading cycles on the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := startTrading(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			scheduler := engine.NewScheduler(b.Orchestrator, b.Watcher)
			scheduler.Run(cmd.Context())

			m := infra.GlobalMetrics.Snapshot()
			slog.Info("👋 Shutting down",
				slog.Uint64("cycles", m.CyclesRun),
				slog.Uint64("orders", m.OrdersSubmitted),
				slog.Uint64("errors", m.ErrorsTotal),
			)
			return nil
		},
	}
}

// newOnceCmd runs a single cycle and prints its report.
func newOnceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run one trading cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := startTrading(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			report := b.Orchestrator.RunCycle(cmd.Context())
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newLedgerCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "ledger [SYMBOL]",
		Short:   "Show recent ledger rows for an asset",
		Example: "  autotrade ledger XRP --limit 10",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := app.NewBootstrap(*configPath)
			if err := b.Initialize(); err != nil {
				return err
			}
			defer b.Close()

			asset, err := findAsset(b.Config, args[0])
			if err != nil {
				return err
			}
			ledger, err := b.Ledgers.Open(asset)
			if err != nil {
				return err
			}
			records, err := ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", asset.Symbol, ledger.Path())
			printLedger(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of rows to show")
	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger freshness for every enabled asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := app.NewBootstrap(*configPath)
			if err := b.Initialize(); err != nil {
				return err
			}
			defer b.Close()

			svc := service.NewStatusService(b.Ledgers)
			statuses := svc.Collect(cmd.Context(), b.Config.EnabledAssets(), b.Config.CycleInterval())
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ %s is valid\n", *configPath)
			fmt.Fprintf(out, "   mode:     %s\n", cfg.Trading.Mode)
			fmt.Fprintf(out, "   interval: %s\n", cfg.CycleInterval())
			fmt.Fprintf(out, "   paper:    %t\n", cfg.Trading.Paper)
			symbols := make([]string, 0, len(cfg.EnabledAssets()))
			for _, a := range cfg.EnabledAssets() {
				symbols = append(symbols, a.Symbol)
			}
			fmt.Fprintf(out, "   assets:   %s\n", strings.Join(symbols, ", "))
			return nil
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autotrade %s\n", Version)
		},
	}
}

func startTrading(ctx context.Context, configPath string) (*app.Bootstrap, error) {
	b := app.NewBootstrap(configPath)
	if err := b.Initialize(); err != nil {
		return nil, err
	}
	if err := b.OpenLedgers(ctx); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.InitTrading(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func findAsset(cfg *infra.Config, symbol string) (domain.AssetConfig, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, a := range cfg.EnabledAssets() {
		if a.Symbol == symbol {
			return a, nil
		}
	}
	return domain.AssetConfig{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
}

func printReport(w io.Writer, r engine.CycleReport) {
	fmt.Fprintf(w, "Cycle %s (%s, %s)\n", r.StartedAt.Format(time.RFC3339), r.Mode, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "assets=%d collected=%d decided=%d executed=%d skipped=%d failed=%d\n",
		r.Assets, r.Collected, r.Decided, r.Executed, r.Skipped, r.Failed)
	if r.Empty() {
		fmt.Fprintln(w, "no decisions this cycle")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tDECISION\tPCT\tPRICE\tREASON")
	for _, symbol := range sortedKeys(r.Records) {
		rec := r.Records[symbol]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", symbol, rec.Decision, rec.Percentage, rec.CryptoPrice, truncate(rec.Reason, 60))
	}
	tw.Flush()
}

func printLedger(w io.Writer, records []domain.TradeRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no trades recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tDECISION\tPCT\tCASH\tHOLDING\tPRICE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, humanize.Time(rec.Timestamp), rec.Decision, rec.Percentage,
			humanize.Commaf(rec.KRWBalance.InexactFloat64()), rec.CryptoBalance, rec.CryptoPrice)
	}
	tw.Flush()
}

func printStatus(w io.Writer, statuses []service.AssetStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tTRADES\tLAST\tDECISION\tVALUE\tSTATE")
	for _, st := range statuses {
		switch {
		case st.Err != nil:
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\terror: %v\n", st.Symbol, st.Err)
		case st.Last == nil:
			fmt.Fprintf(tw, "%s\t0\tnever\t-\t-\tstale\n", st.Symbol)
		default:
			state := "ok"
			if st.Stale {
				state = "stale"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
				st.Symbol, st.Trades, humanize.Time(st.Last.Timestamp), st.Last.Decision,
				humanize.Commaf(st.TotalValue.Round(0).InexactFloat64()), state)
		}
	}
	tw.Flush()
}

func sortedKeys(m map[string]domain.TradeRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
