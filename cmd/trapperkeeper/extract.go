package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/display"
)

// extractFlags are shared by extract and organize.
type extractFlags struct {
	output        string
	format        string
	categories    string
	minImportance float64
	strategy      string
	noCodeBlocks  bool
	noLinks       bool
	dryRun        bool
	concurrency   int
}

func (f *extractFlags) bind(cmd *cobra.Command) {
	def := app.Defaults()
	cmd.Flags().StringVarP(&f.output, "output", "o", def.OutputDir, "output directory")
	cmd.Flags().StringVar(&f.format, "format", def.Format, "output format: markdown, json, yaml, pdf")
	cmd.Flags().StringVar(&f.categories, "categories", "", "comma-separated categories to keep (empty keeps all)")
	cmd.Flags().Float64Var(&f.minImportance, "min-importance", def.MinImportance, "minimum importance score in [0,1]")
	cmd.Flags().StringVar(&f.strategy, "strategy", def.Strategy, "extraction strategy: default, auto, by_size, by_section, by_type")
	cmd.Flags().BoolVar(&f.noCodeBlocks, "no-code-blocks", false, "do not extract code blocks as separate records")
	cmd.Flags().BoolVar(&f.noLinks, "no-links", false, "do not extract link groups")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "extract and report without writing files")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", def.MaxConcurrent, "files processed in parallel")
}

// apply copies the flags the user set onto cfg.
func (f *extractFlags) apply(cmd *cobra.Command, cfg *app.Config) {
	fs := cmd.Flags()
	if fs.Changed("output") {
		cfg.OutputDir = f.output
	}
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("categories") {
		cfg.Categories = app.SplitList(f.categories)
	}
	if fs.Changed("min-importance") {
		cfg.MinImportance = f.minImportance
	}
	if fs.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if f.noCodeBlocks {
		cfg.CodeBlocks = false
	}
	if f.noLinks {
		cfg.Links = false
	}
	if f.dryRun {
		cfg.DryRun = true
	}
	if fs.Changed("concurrency") {
		cfg.MaxConcurrent = f.concurrency
	}
}

func extractCmd(g *globalOptions) *cobra.Command {
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Extract categorized content from documentation files",
		Long: `Parse each file (directories are expanded to the Markdown and HTML files
below them), extract categorized records and write one file per category
into the output directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(func(c *app.Config) { f.apply(cmd, c) })
			if err != nil {
				return err
			}
			return runExtract(cmd, cfg, args, false)
		},
	}
	f.bind(cmd)
	return cmd
}

func organizeCmd(g *globalOptions) *cobra.Command {
	var (
		groupBy     string
		noIndex     bool
		noRefs      bool
		linkSources bool
	)
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "organize FILE...",
		Short: "Extract, group and index documentation content",
		Long: `Extract records like "extract", then group them by category, by source
document or into a single file, write an index and optionally annotated
copies of the sources linking to every extracted record.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(func(c *app.Config) {
				f.apply(cmd, c)
				if cmd.Flags().Changed("group-by") {
					c.GroupBy = groupBy
				}
				if noIndex {
					c.CreateIndex = false
				}
				if noRefs {
					c.References = false
				}
			})
			if err != nil {
				return err
			}
			return runExtract(cmd, cfg, args, linkSources)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&groupBy, "group-by", app.Defaults().GroupBy, "grouping: category, document, all")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "do not write index.md")
	cmd.Flags().BoolVar(&noRefs, "no-references", false, "do not append reference blocks")
	cmd.Flags().BoolVar(&linkSources, "link-sources", false, "write linked copies of the sources and an extraction index")
	return cmd
}

// runExtract processes args and reports the batch. Individual file failures
// are printed; the command fails only when nothing could be processed.
func runExtract(cmd *cobra.Command, cfg app.Config, args []string, linkSources bool) error {
	paths, err := app.ExpandInputs(args)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	out := display.New(cmd.OutOrStdout())
	b, err := a.ExtractFiles(cmd.Context(), paths)
	if errors.Is(err, app.ErrAllInputsFailed) {
		out.Extraction(b, nil)
		return err
	}
	if err != nil {
		return err
	}
	if cfg.DryRun {
		out.Extraction(b, nil)
		return nil
	}
	res, err := a.Organize(b, cfg.OutputDir)
	if err != nil {
		return err
	}
	if linkSources {
		linked, err := a.LinkSources(b, res, cfg.OutputDir)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, linked...)
	}
	out.Extraction(b, &res)
	return nil
}
