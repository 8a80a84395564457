// Package stats computes descriptive statistics, value counts and missingness over a table.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// ColumnStatistics summarizes one numeric column. A statistic is invalid when the
// column has no non-missing values.
type ColumnStatistics struct {
	Column string       `json:"column"`
	Count  int          `json:"count"`
	Mean   table.Number `json:"mean"`
	Median table.Number `json:"median"`
	Mode   table.Number `json:"mode"`
	Min    table.Number `json:"min"`
	Max    table.Number `json:"max"`
}

// Describe summarizes the named columns in the given order. Every column must be numeric.
func Describe(t *table.Table, columns []string) ([]ColumnStatistics, error) {
	out := make([]ColumnStatistics, 0, len(columns))
	for _, name := range columns {
		cells, err := t.Numbers(name)
		if err != nil {
			return nil, fmt.Errorf("describe: %w", err)
		}
		out = append(out, Summarize(name, cells))
	}
	return out, nil
}

// DescribeNumeric summarizes every numeric column in schema order.
func DescribeNumeric(t *table.Table) []ColumnStatistics {
	names := t.Schema().NumericNames()
	out := make([]ColumnStatistics, 0, len(names))
	for _, name := range names {
		cells, _ := t.Numbers(name)
		out = append(out, Summarize(name, cells))
	}
	return out
}

// Summarize computes the statistics of one column's cells, skipping missing values.
func Summarize(name string, cells []table.Number) ColumnStatistics {
	vals := Present(cells)
	s := ColumnStatistics{Column: name, Count: len(vals)}
	if len(vals) == 0 {
		return s
	}
	s.Mean = table.Num(stat.Mean(vals, nil))
	s.Min = table.Num(floats.Min(vals))
	s.Max = table.Num(floats.Max(vals))
	if m, ok := Median(vals); ok {
		s.Median = table.Num(m)
	}
	if m, ok := Mode(vals); ok {
		s.Mode = table.Num(m)
	}
	return s
}

// Present returns the non-missing values in row order.
func Present(cells []table.Number) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Valid {
			out = append(out, c.Float)
		}
	}
	return out
}

// Median returns the middle value, averaging the two middle values for even counts.
// The input is not modified.
func Median(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantile(cp, 0.5), true
}

// Mode returns the most frequent value. Ties go to the value seen first.
func Mode(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	counts := make(map[float64]int, len(vals))
	order := make([]float64, 0, len(vals))
	for _, v := range vals {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestN := order[0], counts[order[0]]
	for _, v := range order[1:] {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best, true
}

func quantile(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
