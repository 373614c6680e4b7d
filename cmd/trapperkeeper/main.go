package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/trapperkeeper/internal/app"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFiles   []string
	verbose    bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "trapperkeeper",
		Short: "Extract, categorize and organize long-form Markdown documentation",
		Long: `trapperkeeper splits monolithic documentation files into category-tagged
files, analyzes their growth and structure, validates documentation trees and
watches files for threshold violations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "path to a YAML, JSON or TOML config file")
	rootCmd.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		extractCmd(g),
		organizeCmd(g),
		analyzeCmd(g),
		validateCmd(g),
		watchCmd(g),
		serveCmd(g),
		categoriesCmd(g),
		configCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// load builds the effective configuration: defaults, then the config file,
// then the environment, then the flags applied by apply.
func (g *globalOptions) load(apply func(*app.Config)) (app.Config, error) {
	if err := app.LoadEnvFiles(g.envFiles...); err != nil {
		return app.Config{}, err
	}
	cfg := app.Defaults()
	if g.configPath != "" {
		fc, err := app.LoadConfigFile(g.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	if apply != nil {
		apply(&cfg)
	}
	if g.verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	setLogLevel(cfg.LogLevel)
	return cfg, cfg.Validate()
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trapperkeeper %s\n", app.Version())
		},
	}
}
