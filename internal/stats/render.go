package stats

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// DefaultPrecision is the number of decimals used for rendered floats.
const DefaultPrecision = 2

// Markdown renders the statistics as a pipe table: Column | Mean | Median | Mode | Min | Max.
// Undefined statistics render as empty cells.
func Markdown(rows []ColumnStatistics, precision int) string {
	if precision < 0 {
		precision = DefaultPrecision
	}
	headers := []string{"Column", "Mean", "Median", "Mode", "Min", "Max"}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			safeVal(r.Column),
			formatNumber(r.Mean, precision),
			formatNumber(r.Median, precision),
			formatNumber(r.Mode, precision),
			formatNumber(r.Min, precision),
			formatNumber(r.Max, precision),
		}
	}
	return pipeTable(headers, cells, []bool{false, true, true, true, true, true})
}

// CountsMarkdown renders value counts for one column.
func CountsMarkdown(column string, counts []CategoryCount) string {
	cells := make([][]string, len(counts))
	for i, c := range counts {
		cells[i] = []string{safeVal(c.Value), strconv.Itoa(c.Count)}
	}
	return pipeTable([]string{safeVal(column), "Count"}, cells, []bool{false, true})
}

func formatNumber(n table.Number, precision int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float, 'f', precision, 64)
}

// pipeTable lays out a Markdown table with padded columns; right marks right-aligned columns.
func pipeTable(headers []string, rows [][]string, right []bool) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = max(utf8.RuneCountInString(h), 3)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}
	pad := func(s string, i int) string {
		gap := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(s))
		if right[i] {
			return gap + s
		}
		return s + gap
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range headers {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			fmt.Fprintf(&b, " %s |", pad(c, i))
		}
		b.WriteString("\n")
	}
	writeRow(headers)
	b.WriteString("|")
	for i, w := range widths {
		if right[i] {
			b.WriteString(strings.Repeat("-", w+1) + ":|")
		} else {
			b.WriteString(":" + strings.Repeat("-", w+1) + "|")
		}
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
