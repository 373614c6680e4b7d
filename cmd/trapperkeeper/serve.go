package main

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/mcpserver"
	"github.com/hyperifyio/trapperkeeper/internal/metrics"
)

var errNothingToServe = errors.New("nothing to serve: enable --mcp or set --metrics-addr")

func serveCmd(g *globalOptions) *cobra.Command {
	var (
		serveMCP    bool
		metricsAddr string
		historyDB   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server over stdio and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(func(c *app.Config) {
				if cmd.Flags().Changed("metrics-addr") {
					c.MetricsAddr = metricsAddr
				}
				if cmd.Flags().Changed("history-db") {
					c.HistoryDB = historyDB
				}
			})
			if err != nil {
				return err
			}
			if !serveMCP && cfg.MetricsAddr == "" {
				return errNothingToServe
			}
			history, closeHistory, err := openHistory(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer closeHistory()

			collector := metrics.New()
			a, err := app.New(cfg, app.WithMetrics(collector))
			if err != nil {
				return err
			}

			p := pool.New().WithContext(cmd.Context()).WithCancelOnError()
			if serveMCP {
				mcfg := mcpserver.Config{Detector: a.Detector(), Extract: cfg.ExtractConfig()}
				if history != nil {
					mcfg.History = history
				}
				srv := mcpserver.New(mcfg)
				p.Go(srv.Run)
			}
			if cfg.MetricsAddr != "" {
				p.Go(func(ctx context.Context) error { return collector.Serve(ctx, cfg.MetricsAddr) })
			}
			return p.Wait()
		},
	}
	cmd.Flags().BoolVar(&serveMCP, "mcp", true, "serve MCP tools over stdio")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "SQLite snapshot history used for observed growth")
	return cmd
}
