package table

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Number is a numeric cell. Valid is false when the value is missing.
type Number struct {
	Float float64
	Valid bool
}

// Num returns a present numeric cell.
func Num(v float64) Number { return Number{Float: v, Valid: true} }

// MarshalJSON encodes missing values as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float)
}

// Text is a categorical cell. Valid is false when the value is missing.
type Text struct {
	String string
	Valid  bool
}

// Str returns a present categorical cell.
func Str(s string) Text { return Text{String: s, Valid: true} }

// vector holds one column's cells; exactly one of nums/texts is used, per the column kind.
type vector struct {
	nums  []Number
	texts []Text
}

// Table is an in-memory, column-oriented dataset with a fixed schema.
type Table struct {
	Name     string
	Warnings []string

	schema Schema
	rows   int
	cols   []vector
	// source maps each row to its index in the loaded table; nil means identity.
	source []int
}

func newTable(name string, schema Schema, rows int) *Table {
	t := &Table{Name: name, schema: schema, rows: rows, cols: make([]vector, schema.Len())}
	for i, c := range schema.cols {
		if c.Kind == KindNumeric {
			t.cols[i].nums = make([]Number, rows)
		} else {
			t.cols[i].texts = make([]Text, rows)
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// SourceRow returns the 0-based data row of the loaded table that row r came from.
// Filtering keeps the mapping, so reports can point back into the input file.
func (t *Table) SourceRow(r int) int {
	if t.source == nil {
		return r
	}
	return t.source[r]
}

// Schema returns the table schema.
func (t *Table) Schema() Schema { return t.schema }

// Numbers returns the cells of a numeric column. The slice is shared with the table.
func (t *Table) Numbers(name string) ([]Number, error) {
	c, i, ok := t.schema.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if c.Kind != KindNumeric {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, name)
	}
	return t.cols[i].nums, nil
}

// Texts returns the cells of a categorical column. The slice is shared with the table.
func (t *Table) Texts(name string) ([]Text, error) {
	c, i, ok := t.schema.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if c.Kind != KindCategorical {
		return nil, fmt.Errorf("%w: %s", ErrNotCategorical, name)
	}
	return t.cols[i].texts, nil
}

// Missing reports whether the cell at row, col is missing.
func (t *Table) Missing(row, col int) bool {
	if t.schema.cols[col].Kind == KindNumeric {
		return !t.cols[col].nums[row].Valid
	}
	return !t.cols[col].texts[row].Valid
}

// Cell returns the string form of a cell; missing cells are empty.
func (t *Table) Cell(row, col int) string {
	if t.schema.cols[col].Kind == KindNumeric {
		n := t.cols[col].nums[row]
		if !n.Valid {
			return ""
		}
		return FormatNumber(n.Float)
	}
	s := t.cols[col].texts[row]
	if !s.Valid {
		return ""
	}
	return s.String
}

// SetNumber overwrites one numeric cell.
func (t *Table) SetNumber(name string, row int, v Number) error {
	nums, err := t.Numbers(name)
	if err != nil {
		return err
	}
	if row < 0 || row >= t.rows {
		return fmt.Errorf("row %d out of range [0,%d)", row, t.rows)
	}
	nums[row] = v
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := newTable(t.Name, t.schema, t.rows)
	for i := range t.cols {
		copy(out.cols[i].nums, t.cols[i].nums)
		copy(out.cols[i].texts, t.cols[i].texts)
	}
	out.Warnings = append([]string(nil), t.Warnings...)
	if t.source != nil {
		out.source = append([]int(nil), t.source...)
	}
	return out
}

// Filter returns a new table holding only the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	idx := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		if keep(r) {
			idx = append(idx, r)
		}
	}
	out := newTable(t.Name, t.schema, len(idx))
	out.source = make([]int, len(idx))
	for j, r := range idx {
		out.source[j] = t.SourceRow(r)
	}
	for i, v := range t.cols {
		numeric := t.schema.cols[i].Kind == KindNumeric
		for j, r := range idx {
			if numeric {
				out.cols[i].nums[j] = v.nums[r]
			} else {
				out.cols[i].texts[j] = v.texts[r]
			}
		}
	}
	out.Warnings = append([]string(nil), t.Warnings...)
	return out
}

// FormatNumber renders a float in its shortest round-trip form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
