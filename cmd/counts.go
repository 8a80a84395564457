package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabstat-cli/internal/chart"
	"github.com/KaramelBytes/tabstat-cli/internal/export"
	"github.com/KaramelBytes/tabstat-cli/internal/stats"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

var (
	coLoad     loadFlags
	coColumns  []string
	coFormat   string
	coChartOut string
	coClean    bool
)

var countsCmd = &cobra.Command{
	Use:   "counts <file>",
	Short: "Print value counts of categorical columns",
	Long: `Print per-value counts for the --columns list. Without --columns the heart-disease
categorical columns present in the file are used, or every categorical column if none match.
--format json (or --chart-out) emits the bar-chart grid consumed by a chart renderer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := coLoad.load(args[0])
		if err != nil {
			return err
		}
		if coClean {
			if t, err = applyConfiguredPlan(t); err != nil {
				return err
			}
		}
		cols := countColumns(t, splitColumns(coColumns))
		if len(cols) == 0 {
			return fmt.Errorf("%s has no categorical columns; pass --columns", t.Name)
		}

		grid, skipped, err := chart.DistributionGrid(t, cols, cfg.Chart)
		if err != nil {
			return err
		}
		if len(skipped) > 0 {
			return fmt.Errorf("unknown column(s): %s", strings.Join(skipped, ", "))
		}
		if coChartOut != "" {
			if err := writeChartJSON(coChartOut, grid); err != nil {
				return err
			}
			logger.Info("Wrote chart data", zap.String("path", coChartOut), zap.String("layout", grid.Summary()))
		}

		out := cmd.OutOrStdout()
		switch strings.ToLower(coFormat) {
		case "json":
			return chart.Encode(out, grid)
		case "markdown":
			for i, col := range cols {
				counts, err := stats.ValueCounts(t, col)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprint(out, stats.CountsMarkdown(col, counts))
			}
			return nil
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", coFormat)
		}
	},
}

func countColumns(t *table.Table, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	var cols []string
	for _, c := range chart.DefaultCategorical {
		if _, _, ok := t.Schema().Lookup(c); ok {
			cols = append(cols, c)
		}
	}
	if len(cols) > 0 {
		return cols
	}
	for _, c := range t.Schema().Columns() {
		if c.Kind == table.KindCategorical {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func writeChartJSON(path string, v any) error {
	var buf bytes.Buffer
	if err := chart.Encode(&buf, v); err != nil {
		return err
	}
	if err := export.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write chart data: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(countsCmd)
	coLoad.register(countsCmd)
	countsCmd.Flags().StringSliceVar(&coColumns, "columns", nil, "columns to count (default: heart-disease categorical columns)")
	countsCmd.Flags().StringVar(&coFormat, "format", "markdown", "output format: markdown | json")
	countsCmd.Flags().StringVar(&coChartOut, "chart-out", "", "also write the chart grid JSON to this path")
	countsCmd.Flags().BoolVar(&coClean, "clean", false, "apply the configured cleaning plan before counting")
}
