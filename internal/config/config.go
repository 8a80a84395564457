package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabstat-cli/internal/chart"
	"github.com/KaramelBytes/tabstat-cli/internal/cleaning"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// Cleaning holds the repair pipeline.
type Cleaning struct {
	DropSentinelRows []cleaning.Drop `mapstructure:"drop_sentinel_rows" yaml:"drop_sentinel_rows"`
	Rules            []cleaning.Rule `mapstructure:"rules" yaml:"rules"`
	EmptyGroupPolicy string          `mapstructure:"empty_group_policy" yaml:"empty_group_policy"`
}

// Global configuration structure.
type Global struct {
	Delimiter          string   `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string   `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	MissingTokens      []string `mapstructure:"missing_tokens" yaml:"missing_tokens"`
	MaxRows            int      `mapstructure:"max_rows" yaml:"max_rows"`
	Precision          int      `mapstructure:"precision" yaml:"precision"`

	// Column name to kind ("numeric" or "categorical").
	Schema             map[string]string `mapstructure:"schema" yaml:"schema,omitempty"`
	CategoricalColumns []string          `mapstructure:"categorical_columns" yaml:"categorical_columns"`

	Cleaning Cleaning           `mapstructure:"cleaning" yaml:"cleaning"`
	Chart    chart.RenderConfig `mapstructure:"chart" yaml:"chart"`
	AuditDB  string             `mapstructure:"audit_db" yaml:"audit_db"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.tabstat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabstat"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defChart := chart.DefaultRenderConfig()
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("missing_tokens", table.DefaultMissingTokens)
	v.SetDefault("max_rows", 0)
	v.SetDefault("precision", 2)
	v.SetDefault("categorical_columns", []string{})
	v.SetDefault("cleaning.empty_group_policy", "keep")
	v.SetDefault("chart.theme", defChart.Theme)
	v.SetDefault("chart.output", defChart.Output)
	v.SetDefault("chart.width", defChart.Width)
	v.SetDefault("chart.height", defChart.Height)
	v.SetDefault("chart.columns", defChart.Columns)
	v.SetDefault("audit_db", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file is fine, a malformed one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := cleaning.ParsePolicy(c.Cleaning.EmptyGroupPolicy); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadOptions translates the file-reading keys into table.LoadOptions.
func (c *Global) LoadOptions() (table.LoadOptions, error) {
	opt := table.DefaultLoadOptions()
	var err error
	if opt.Delimiter, err = singleRune("delimiter", c.Delimiter); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = singleRune("decimal_separator", c.DecimalSeparator); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = singleRune("thousands_separator", c.ThousandsSeparator); err != nil {
		return opt, err
	}
	opt.MissingTokens = c.MissingTokens
	opt.MaxRows = c.MaxRows

	if len(c.Schema) > 0 || len(c.CategoricalColumns) > 0 {
		opt.Declared = make(map[string]table.Kind, len(c.Schema)+len(c.CategoricalColumns))
	}
	for _, col := range c.CategoricalColumns {
		opt.Declared[col] = table.KindCategorical
	}
	for col, k := range c.Schema {
		kind, err := table.ParseKind(k)
		if err != nil {
			return opt, fmt.Errorf("schema.%s: %w", col, err)
		}
		opt.Declared[col] = kind
	}
	return opt, nil
}

// Plan builds the cleaning pipeline.
func (c *Global) Plan() (cleaning.Plan, error) {
	policy, err := cleaning.ParsePolicy(c.Cleaning.EmptyGroupPolicy)
	if err != nil {
		return cleaning.Plan{}, err
	}
	for i, r := range c.Cleaning.Rules {
		if r.Target == "" || r.Group.Column == "" {
			return cleaning.Plan{}, fmt.Errorf("cleaning.rules[%d]: target and group.column are required", i)
		}
	}
	return cleaning.Plan{Drops: c.Cleaning.DropSentinelRows, Rules: c.Cleaning.Rules, Policy: policy}, nil
}

func singleRune(key, s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", key, s)
	}
	return r[0], nil
}
