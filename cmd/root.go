package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/tabstat-cli/internal/config"
	"github.com/KaramelBytes/tabstat-cli/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration and the logger built from it
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tabstat",
	Short: "tabstat: descriptive statistics and sentinel repair for tabular datasets",
	Long: `tabstat loads a CSV/TSV/XLSX table, reports per-column descriptive statistics,
value counts and missingness, and repairs sentinel values with group-conditional medians.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return loadConfig(cmd) },
}

// Execute is the entry point called by main.main()
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabstat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console | json (overrides config)")
}

func loadConfig(cmd *cobra.Command) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		c.LogLevel = "debug"
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	l, err := logging.New(c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	logger.Debug("Loaded configuration", zap.String("command", cmd.CommandPath()), zap.String("config", cfgFile))
	return nil
}
