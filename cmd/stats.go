package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabstat-cli/internal/cleaning"
	"github.com/KaramelBytes/tabstat-cli/internal/export"
	"github.com/KaramelBytes/tabstat-cli/internal/stats"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

var (
	stLoad      loadFlags
	stColumns   []string
	stFormat    string
	stPrecision int
	stClean     bool
	stQuiet     bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <files...>",
	Short: "Print mean, median, mode, min and max of numeric columns",
	Long: `Print descriptive statistics for every numeric column (or the --columns subset).
Arguments may be glob patterns; each matched file is summarized in turn.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		precision := cfg.Precision
		if cmd.Flags().Changed("precision") {
			precision = stPrecision
		}
		format := strings.ToLower(stFormat)
		if format != "markdown" && format != "json" {
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", stFormat)
		}
		cols := splitColumns(stColumns)

		out := cmd.OutOrStdout()
		results := make(map[string][]stats.ColumnStatistics, len(files))
		total := len(files)
		for i, path := range files {
			logger.Info("Processing file", zap.Int("index", i+1), zap.Int("total", total), zap.String("file", filepath.Base(path)))
			t, err := stLoad.load(path)
			if err != nil {
				return err
			}
			if stClean {
				if t, err = applyConfiguredPlan(t); err != nil {
					return err
				}
			}
			rows, err := describe(t, cols)
			if err != nil {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			if format == "json" {
				results[path] = rows
				continue
			}
			if total > 1 && !stQuiet {
				fmt.Fprintf(out, "## %s (%d rows)\n\n", t.Name, t.Len())
			}
			fmt.Fprint(out, stats.Markdown(rows, precision))
			if total > 1 && i < total-1 {
				fmt.Fprintln(out)
			}
		}
		if format == "json" {
			var v any = results
			if total == 1 {
				v = results[files[0]]
			}
			b, err := export.PrettyJSON(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		}
		return nil
	},
}

func describe(t *table.Table, cols []string) ([]stats.ColumnStatistics, error) {
	if len(cols) == 0 {
		return stats.DescribeNumeric(t), nil
	}
	return stats.Describe(t, cols)
}

// applyConfiguredPlan runs the configured cleaning pipeline for commands that summarize
// cleaned data without writing it.
func applyConfiguredPlan(t *table.Table) (*table.Table, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		logger.Warn("No cleaning rules configured; summarizing raw data", zap.String("file", t.Name))
		return t, nil
	}
	cleaned, rep, err := cleaning.Apply(t, plan)
	if err != nil {
		return nil, err
	}
	logger.Info("Applied cleaning plan",
		zap.String("file", t.Name),
		zap.Int("imputed", rep.Count(cleaning.OpImpute)),
		zap.Int("dropped", rep.Count(cleaning.OpDropRow)),
		zap.Int("unrepaired", rep.Count(cleaning.OpUnrepaired)))
	return cleaned, nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
	stLoad.register(statsCmd)
	statsCmd.Flags().StringSliceVar(&stColumns, "columns", nil, "numeric columns to summarize, in output order (default: all numeric)")
	statsCmd.Flags().StringVar(&stFormat, "format", "markdown", "output format: markdown | json")
	statsCmd.Flags().IntVar(&stPrecision, "precision", stats.DefaultPrecision, "decimals in markdown output (overrides config)")
	statsCmd.Flags().BoolVar(&stClean, "clean", false, "apply the configured cleaning plan before summarizing")
	statsCmd.Flags().BoolVar(&stQuiet, "quiet", false, "omit per-file headings when summarizing several files")
}
