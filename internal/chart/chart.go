// Package chart builds the data handed to an external chart renderer. It never draws anything
// and holds no process-wide state; every theme or layout choice travels in RenderConfig.
package chart

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tabstat-cli/internal/stats"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// Output targets understood by the renderer.
const (
	OutputInline = "inline"
	OutputFile   = "file"
)

// DefaultCategorical lists the categorical distribution columns of the heart-disease dataset.
var DefaultCategorical = []string{"Sex", "ChestPainType", "FastingBS", "RestingECG", "ExerciseAngina", "ST_Slope", "HeartDisease"}

// RenderConfig is passed verbatim to the renderer.
type RenderConfig struct {
	Theme   string `mapstructure:"theme" yaml:"theme" json:"theme"`
	Output  string `mapstructure:"output" yaml:"output" json:"output"`
	Width   int    `mapstructure:"width" yaml:"width" json:"width"`
	Height  int    `mapstructure:"height" yaml:"height" json:"height"`
	Columns int    `mapstructure:"columns" yaml:"columns" json:"columns"`
}

// DefaultRenderConfig mirrors the dark, two-column layout of the distribution grid.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{Theme: "dark_minimal", Output: OutputInline, Width: 400, Height: 300, Columns: 2}
}

// Validate rejects configurations no renderer could honor.
func (c RenderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Columns <= 0 {
		return fmt.Errorf("chart grid columns must be positive, got %d", c.Columns)
	}
	switch c.Output {
	case OutputInline, OutputFile:
	default:
		return fmt.Errorf("unknown chart output %q", c.Output)
	}
	return nil
}

// BarChart is one bar plot. Labels carry the text drawn above each bar.
type BarChart struct {
	Title      string    `json:"title"`
	XLabel     string    `json:"x_label"`
	YLabel     string    `json:"y_label"`
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
	Labels     []string  `json:"labels,omitempty"`
}

// Grid lays charts out row-major, Config.Columns per row.
type Grid struct {
	Config RenderConfig `json:"config"`
	Charts []BarChart   `json:"charts"`
}

// Rows returns the number of grid rows needed.
func (g Grid) Rows() int {
	if g.Config.Columns <= 0 || len(g.Charts) == 0 {
		return 0
	}
	return (len(g.Charts) + g.Config.Columns - 1) / g.Config.Columns
}

// FromCounts builds a distribution chart for one column.
func FromCounts(column string, counts []stats.CategoryCount) BarChart {
	c := BarChart{
		Title:      fmt.Sprintf("Distribution of %s", column),
		XLabel:     column,
		YLabel:     "Count",
		Categories: make([]string, len(counts)),
		Values:     make([]float64, len(counts)),
		Labels:     make([]string, len(counts)),
	}
	for i, cc := range counts {
		c.Categories[i] = cc.Value
		c.Values[i] = float64(cc.Count)
		c.Labels[i] = fmt.Sprintf("%d", cc.Count)
	}
	return c
}

// FromMissingness builds the per-column missing-percentage chart.
func FromMissingness(cols []stats.MissingColumn) BarChart {
	c := BarChart{
		Title:      "Missing Values by Column",
		XLabel:     "Column",
		YLabel:     "Missing (%)",
		Categories: make([]string, len(cols)),
		Values:     make([]float64, len(cols)),
		Labels:     make([]string, len(cols)),
	}
	for i, m := range cols {
		c.Categories[i] = m.Column
		c.Values[i] = m.Percent
		c.Labels[i] = fmt.Sprintf("%d missing", m.Missing)
	}
	return c
}

// DistributionGrid builds one chart per column. Columns absent from the table are skipped and
// returned so the caller can report them.
func DistributionGrid(t *table.Table, columns []string, cfg RenderConfig) (Grid, []string, error) {
	if err := cfg.Validate(); err != nil {
		return Grid{}, nil, err
	}
	g := Grid{Config: cfg}
	var skipped []string
	for _, col := range columns {
		if _, _, ok := t.Schema().Lookup(col); !ok {
			skipped = append(skipped, col)
			continue
		}
		counts, err := stats.ValueCounts(t, col)
		if err != nil {
			return Grid{}, nil, err
		}
		g.Charts = append(g.Charts, FromCounts(col, counts))
	}
	return g, skipped, nil
}

// Encode writes v as indented JSON.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

// Summary is a short human-readable description of a grid.
func (g Grid) Summary() string {
	titles := make([]string, len(g.Charts))
	for i, c := range g.Charts {
		titles[i] = c.XLabel
	}
	return fmt.Sprintf("%d chart(s) in %d row(s) x %d column(s), theme %s: %s",
		len(g.Charts), g.Rows(), g.Config.Columns, g.Config.Theme, strings.Join(titles, ", "))
}
