package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/trapperkeeper/internal/analyze"
	"github.com/hyperifyio/trapperkeeper/internal/app"
	"github.com/hyperifyio/trapperkeeper/internal/display"
	"github.com/hyperifyio/trapperkeeper/internal/validate"
)

var errValidationFailed = errors.New("validation found errors")

func validateCmd(g *globalOptions) *cobra.Command {
	var (
		skipRefs      bool
		skipOrphans   bool
		skipStructure bool
		reportPath    string
		patterns      string
	)
	cmd := &cobra.Command{
		Use:   "validate [ROOT]",
		Short: "Check a documentation tree for broken references, orphans and structure",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.load(nil); err != nil {
				return err
			}
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			opts := validate.DefaultOptions(root)
			opts.CheckReferences = !skipRefs
			opts.CheckOrphans = !skipOrphans
			opts.CheckStructure = !skipStructure
			if cmd.Flags().Changed("patterns") {
				opts.Patterns = app.SplitList(patterns)
			}
			rep, err := validate.Validate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			display.New(cmd.OutOrStdout()).Validation(rep)
			if reportPath != "" {
				format := strings.TrimPrefix(filepath.Ext(reportPath), ".")
				if err := analyze.ExportFile(reportPath, rep, format); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			if !rep.OK() {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipRefs, "skip-references", false, "do not check references")
	cmd.Flags().BoolVar(&skipOrphans, "skip-orphans", false, "do not report orphaned files")
	cmd.Flags().BoolVar(&skipStructure, "skip-structure", false, "do not check heading structure")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the report as JSON or YAML, chosen by extension")
	cmd.Flags().StringVar(&patterns, "patterns", "*.md,*.txt", "comma-separated file patterns")
	return cmd
}
