package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabstat-cli/internal/chart"
	"github.com/KaramelBytes/tabstat-cli/internal/stats"
)

var (
	miLoad     loadFlags
	miFormat   string
	miChartOut string
)

var missingCmd = &cobra.Command{
	Use:   "missing <file>",
	Short: "Summarize missing values per column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := miLoad.load(args[0])
		if err != nil {
			return err
		}
		cols := stats.Missingness(t)
		if err := cfg.Chart.Validate(); err != nil {
			return err
		}
		grid := chart.Grid{Config: cfg.Chart, Charts: []chart.BarChart{chart.FromMissingness(cols)}}
		if miChartOut != "" {
			if err := writeChartJSON(miChartOut, grid); err != nil {
				return err
			}
			logger.Info("Wrote chart data", zap.String("path", miChartOut))
		}

		out := cmd.OutOrStdout()
		switch strings.ToLower(miFormat) {
		case "text":
			fmt.Fprint(out, stats.MissingText(t.Len(), cols))
			return nil
		case "json":
			return chart.Encode(out, struct {
				Rows    int                   `json:"rows"`
				Columns []stats.MissingColumn `json:"columns"`
				Chart   chart.Grid            `json:"chart"`
			}{t.Len(), cols, grid})
		default:
			return fmt.Errorf("unsupported --format: %s (use text|json)", miFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(missingCmd)
	miLoad.register(missingCmd)
	missingCmd.Flags().StringVar(&miFormat, "format", "text", "output format: text | json")
	missingCmd.Flags().StringVar(&miChartOut, "chart-out", "", "also write the missing-values chart JSON to this path")
}
