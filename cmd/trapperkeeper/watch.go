package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/display"
	"github.com/hyperifyio/trapperkeeper/internal/metrics"
	"github.com/hyperifyio/trapperkeeper/internal/monitor"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
)

func watchCmd(g *globalOptions) *cobra.Command {
	var (
		debounce    time.Duration
		reextract   bool
		metricsAddr string
		historyDB   string
		patterns    string
		maxLines    int
		maxBytes    int64
		maxGrowth   float64
	)
	def := monitor.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "watch PATH...",
		Short: "Watch documentation files for changes and threshold violations",
		Long: `Watch files and directories, report debounced changes with size, line count
and growth rate, flag threshold violations and optionally re-run extraction
on every change.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			cfg, err := g.load(func(c *app.Config) {
				if fs.Changed("debounce") {
					c.Debounce = debounce
				}
				if fs.Changed("metrics-addr") {
					c.MetricsAddr = metricsAddr
				}
				if fs.Changed("history-db") {
					c.HistoryDB = historyDB
				}
			})
			if err != nil {
				return err
			}
			history, closeHistory, err := openHistory(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer closeHistory()

			collector := metrics.New()
			var a *app.App
			if reextract {
				if a, err = app.New(cfg, app.WithMetrics(collector)); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			out := display.New(cmd.OutOrStdout())
			var mu sync.Mutex
			handler := func(ev monitor.Event) {
				mu.Lock()
				defer mu.Unlock()
				out.Event(ev)
				if a == nil || (ev.Type != monitor.Created && ev.Type != monitor.Modified) || !parser.CanParse(ev.Path) {
					return
				}
				reextractFile(ctx, a, ev.Path)
			}

			mcfg := def
			mcfg.Debounce = cfg.Debounce
			if fs.Changed("patterns") {
				mcfg.Patterns = app.SplitList(patterns)
			}
			mcfg.Thresholds = monitor.Thresholds{Lines: maxLines, Bytes: maxBytes, GrowthPerHour: maxGrowth}
			for _, p := range args {
				mcfg.Paths = append(mcfg.Paths, absPath(p))
			}
			mon, err := monitor.New(mcfg, history, handler)
			if err != nil {
				return err
			}
			collector.WatchedPaths.Set(float64(len(mon.WatchedPaths())))
			log.Info().Strs("paths", mcfg.Paths).Dur("debounce", mcfg.Debounce).Msg("watching for changes")

			p := pool.New().WithContext(ctx).WithCancelOnError()
			p.Go(mon.Run)
			if cfg.MetricsAddr != "" {
				p.Go(func(ctx context.Context) error { return collector.Serve(ctx, cfg.MetricsAddr) })
			}
			return p.Wait()
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", def.Debounce, "quiet period before a change is reported")
	cmd.Flags().BoolVar(&reextract, "extract", false, "re-run extraction on every change")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "persist growth snapshots in this SQLite database")
	cmd.Flags().StringVar(&patterns, "patterns", "*.md,*.txt", "comma-separated file patterns")
	cmd.Flags().IntVar(&maxLines, "max-lines", def.Thresholds.Lines, "line count threshold")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", def.Thresholds.Bytes, "size threshold in bytes")
	cmd.Flags().Float64Var(&maxGrowth, "max-growth", def.Thresholds.GrowthPerHour, "growth threshold in lines per hour")
	return cmd
}

// reextractFile extracts one changed file and rewrites its output. Failures
// are logged so the watch keeps running.
func reextractFile(ctx context.Context, a *app.App, path string) {
	b, err := a.ExtractFiles(ctx, []string{path})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("re-extraction failed")
		return
	}
	cfg := a.Config()
	if cfg.DryRun {
		return
	}
	if _, err := a.Organize(b, cfg.OutputDir); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("output not written")
	}
}
