package table

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the declared type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// ParseKind accepts the kind names used in config files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "int", "integer":
		return KindNumeric, nil
	case "categorical", "category", "string", "text":
		return KindCategorical, nil
	default:
		return 0, fmt.Errorf("unknown column kind %q (use numeric|categorical)", s)
	}
}

var (
	// ErrUnknownColumn is returned when a column name is not part of the schema.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotNumeric is returned when a numeric operation targets a categorical column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrNotCategorical is returned when a text accessor targets a numeric column.
	ErrNotCategorical = errors.New("column is not categorical")
)

// SchemaError reports a header or value that violates the declared schema.
type SchemaError struct {
	Column string
	Row    int // 1-based data row, 0 for header problems
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema: column %q row %d: %s (value %q)", e.Column, e.Row, e.Reason, e.Value)
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// Column is a named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Schema is an ordered set of uniquely named columns.
type Schema struct {
	cols  []Column
	index map[string]int
}

// NewSchema validates column names and builds the lookup index.
func NewSchema(cols ...Column) (Schema, error) {
	s := Schema{cols: make([]Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for _, c := range cols {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return Schema{}, &SchemaError{Column: c.Name, Reason: "empty column name"}
		}
		if _, dup := s.index[name]; dup {
			return Schema{}, &SchemaError{Column: name, Reason: "duplicate column name"}
		}
		s.index[name] = len(s.cols)
		s.cols = append(s.cols, Column{Name: name, Kind: c.Kind})
	}
	return s, nil
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.cols) }

// Columns returns a copy of the column list.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Names returns column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// NumericNames returns the names of numeric columns in schema order.
func (s Schema) NumericNames() []string {
	var out []string
	for _, c := range s.cols {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Lookup finds a column by exact name.
func (s Schema) Lookup(name string) (Column, int, bool) {
	i, ok := s.index[strings.TrimSpace(name)]
	if !ok {
		return Column{}, -1, false
	}
	return s.cols[i], i, true
}

// Equal reports whether both schemas have the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.cols) != len(o.cols) {
		return false
	}
	for i := range s.cols {
		if s.cols[i] != o.cols[i] {
			return false
		}
	}
	return true
}
