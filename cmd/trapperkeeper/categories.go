package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/display"
	"github.com/hyperifyio/trapperkeeper/internal/parser"
)

func categoriesCmd(g *globalOptions) *cobra.Command {
	var (
		suggestPath string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories or suggest categories for a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(nil)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			out := display.New(cmd.OutOrStdout())
			if suggestPath == "" {
				out.Categories(category.All(), a.Detector().Registry().CustomRules())
				return nil
			}
			doc, err := parser.ParseFile(suggestPath)
			if err != nil {
				return err
			}
			var title string
			if roots := doc.Roots(); len(roots) > 0 {
				title = roots[0].Title
			}
			out.Suggestions(suggestPath, a.Detector().Suggest(doc.Content, title, limit))
			return nil
		},
	}
	cmd.Flags().StringVar(&suggestPath, "suggest", "", "suggest categories for this file")
	cmd.Flags().IntVar(&limit, "limit", 5, "number of suggestions")
	return cmd
}

func configCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(nil)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})
	return cmd
}
