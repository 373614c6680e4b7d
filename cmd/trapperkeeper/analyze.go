package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/trapperkeeper/internal/analyze"
	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/display"
	"github.com/hyperifyio/trapperkeeper/internal/monitor"
)

func analyzeCmd(g *globalOptions) *cobra.Command {
	var (
		exportPath  string
		format      string
		comparePath string
		days        int
		noGrowth    bool
		noRecommend bool
		historyDB   string
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Report statistics, category distribution and growth of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(func(c *app.Config) {
				if cmd.Flags().Changed("history-db") {
					c.HistoryDB = historyDB
				}
			})
			if err != nil {
				return err
			}
			var opts []app.Option
			history, closeHistory, err := openHistory(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer closeHistory()
			if history != nil {
				opts = append(opts, app.WithHistory(history))
			}
			a, err := app.New(cfg, opts...)
			if err != nil {
				return err
			}

			path := absPath(args[0])
			aopts := analyze.DefaultOptions()
			aopts.Days = days
			aopts.Growth = !noGrowth
			aopts.Recommendations = !noRecommend
			report, err := a.Analyze(path, aopts)
			if err != nil {
				return err
			}
			out := display.New(cmd.OutOrStdout())
			out.Analysis(report)

			if comparePath != "" {
				cmp, err := a.Compare(path, comparePath)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
				out.Comparison(cmp)
			}
			if exportPath != "" {
				if err := analyze.ExportFile(exportPath, report, format); err != nil {
					return fmt.Errorf("export report: %w", err)
				}
				log.Info().Str("path", exportPath).Str("format", format).Msg("report exported")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "", "write the report to this file")
	cmd.Flags().StringVar(&format, "format", "json", "export format: json, yaml")
	cmd.Flags().StringVar(&comparePath, "compare", "", "compare against another document")
	cmd.Flags().IntVar(&days, "days", 30, "growth estimate period in days")
	cmd.Flags().BoolVar(&noGrowth, "no-growth", false, "skip the growth estimate")
	cmd.Flags().BoolVar(&noRecommend, "no-recommendations", false, "skip recommendations")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "SQLite snapshot history recorded by watch")
	return cmd
}

// openHistory restores the snapshot history stored at path. An empty path
// returns a nil history.
func openHistory(path string) (*monitor.History, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	store, err := monitor.OpenStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("history: %w", err)
	}
	h := monitor.NewHistory(store)
	if err := h.Restore(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("history not restored")
	}
	return h, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("history close failed")
		}
	}, nil
}

// absPath matches the absolute paths the monitor records snapshots under.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
