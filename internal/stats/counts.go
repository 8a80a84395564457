package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// CategoryCount is the number of rows holding one distinct value.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts distinct non-missing values of a column, sorted by value:
// numerically for numeric columns, lexically otherwise.
func ValueCounts(t *table.Table, column string) ([]CategoryCount, error) {
	c, _, ok := t.Schema().Lookup(column)
	if !ok {
		return nil, fmt.Errorf("value counts: %w: %s", table.ErrUnknownColumn, column)
	}
	if c.Kind == table.KindNumeric {
		cells, _ := t.Numbers(column)
		counts := map[float64]int{}
		for _, n := range cells {
			if n.Valid {
				counts[n.Float]++
			}
		}
		keys := make([]float64, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Float64s(keys)
		out := make([]CategoryCount, len(keys))
		for i, k := range keys {
			out[i] = CategoryCount{Value: table.FormatNumber(k), Count: counts[k]}
		}
		return out, nil
	}

	cells, _ := t.Texts(column)
	counts := map[string]int{}
	for _, s := range cells {
		if s.Valid {
			counts[s.String]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// Lookup returns the count for value, or 0.
func Lookup(counts []CategoryCount, value string) int {
	for _, c := range counts {
		if c.Value == value {
			return c.Count
		}
	}
	return 0
}

// MissingColumn is the missing-cell tally of one column.
type MissingColumn struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Missingness tallies missing cells per column in schema order.
func Missingness(t *table.Table) []MissingColumn {
	n := t.Len()
	cols := t.Schema().Columns()
	out := make([]MissingColumn, len(cols))
	for j, c := range cols {
		m := MissingColumn{Column: c.Name, Total: n}
		for r := 0; r < n; r++ {
			if t.Missing(r, j) {
				m.Missing++
			}
		}
		if n > 0 {
			m.Percent = float64(m.Missing) * 100 / float64(n)
		}
		out[j] = m
	}
	return out
}

// MissingText renders the total row count followed by one line per column.
func MissingText(rows int, cols []MissingColumn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total rows in dataset: %d\n\nMissing data summary:\n", rows)
	for _, c := range cols {
		fmt.Fprintf(&b, "%-20s: %5d missing (%6.2f%%)\n", c.Column, c.Missing, c.Percent)
	}
	return b.String()
}
