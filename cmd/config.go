package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabstat-cli/internal/cleaning"
	cfgpkg "github.com/KaramelBytes/tabstat-cli/internal/config"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tabstat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.DecimalSeparator != "" {
			fmt.Fprintf(out, "decimal_separator: %q\n", cfg.DecimalSeparator)
		}
		if cfg.ThousandsSeparator != "" {
			fmt.Fprintf(out, "thousands_separator: %q\n", cfg.ThousandsSeparator)
		}
		fmt.Fprintf(out, "missing_tokens: %s\n", strings.Join(quoteAll(cfg.MissingTokens), ", "))
		fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		fmt.Fprintf(out, "precision: %d\n", cfg.Precision)
		if len(cfg.Schema) > 0 {
			keys := make([]string, 0, len(cfg.Schema))
			for k := range cfg.Schema {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "schema.%s: %s\n", k, cfg.Schema[k])
			}
		}
		if len(cfg.CategoricalColumns) > 0 {
			fmt.Fprintf(out, "categorical_columns: %s\n", strings.Join(cfg.CategoricalColumns, ", "))
		}
		for _, d := range cfg.Cleaning.DropSentinelRows {
			fmt.Fprintf(out, "cleaning.drop_sentinel_rows: %s == %s\n", d.Column, table.FormatNumber(d.Sentinel))
		}
		for _, r := range cfg.Cleaning.Rules {
			fmt.Fprintf(out, "cleaning.rule: %s\n", r)
		}
		fmt.Fprintf(out, "cleaning.empty_group_policy: %s\n", cfg.Cleaning.EmptyGroupPolicy)
		fmt.Fprintf(out, "chart: theme=%s output=%s size=%dx%d columns=%d\n",
			cfg.Chart.Theme, cfg.Chart.Output, cfg.Chart.Width, cfg.Chart.Height, cfg.Chart.Columns)
		if cfg.AuditDB != "" {
			fmt.Fprintf(out, "audit_db: %s\n", cfg.AuditDB)
		}
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch {
		case key == "delimiter":
			cfg.Delimiter = val
		case key == "decimal_separator":
			cfg.DecimalSeparator = val
		case key == "thousands_separator":
			cfg.ThousandsSeparator = val
		case key == "missing_tokens":
			cfg.MissingTokens = strings.Split(val, ",")
		case key == "max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for max_rows: %v", val)
			}
			cfg.MaxRows = i
		case key == "precision":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for precision: %v", val)
			}
			cfg.Precision = i
		case strings.HasPrefix(key, "schema."):
			col := strings.TrimPrefix(key, "schema.")
			k, err := table.ParseKind(val)
			if err != nil {
				return err
			}
			if cfg.Schema == nil {
				cfg.Schema = map[string]string{}
			}
			cfg.Schema[col] = k.String()
		case key == "categorical_columns":
			cfg.CategoricalColumns = splitColumns(strings.Split(val, ","))
		case key == "cleaning.empty_group_policy":
			p, err := cleaning.ParsePolicy(val)
			if err != nil {
				return err
			}
			cfg.Cleaning.EmptyGroupPolicy = p.String()
		case key == "chart.theme":
			cfg.Chart.Theme = val
		case key == "chart.output":
			cfg.Chart.Output = val
		case key == "chart.width", key == "chart.height", key == "chart.columns":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			switch key {
			case "chart.width":
				cfg.Chart.Width = i
			case "chart.height":
				cfg.Chart.Height = i
			default:
				cfg.Chart.Columns = i
			}
		case key == "audit_db":
			cfg.AuditDB = val
		case key == "log_level":
			cfg.LogLevel = val
		case key == "log_format":
			switch val {
			case "console", "json":
				cfg.LogFormat = val
			default:
				return fmt.Errorf("invalid log_format: %s (use console or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}
