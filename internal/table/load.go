package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions controls how a file is decoded into a Table.
type LoadOptions struct {
	// Delimiter for delimited files. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. Zero values are resolved once per column from its values.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MissingTokens are compared case-insensitively after trimming. Nil means DefaultMissingTokens.
	MissingTokens []string
	// MaxRows limits data rows kept; 0 means unlimited.
	MaxRows int
	// Declared pins column kinds; undeclared columns are inferred.
	Declared map[string]Kind
	// XLSX sheet selection. SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultLoadOptions returns the options used when nothing is configured.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{SheetIndex: 1}
}

// Reader decodes one file format into a header and raw records.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt LoadOptions) (header []string, records [][]string, err error)
}

var registry []Reader

// Register adds a reader; earlier registrations win.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(xlsxReader{})
	Register(delimitedReader{})
}

// Load reads the file at path with the first matching reader, falling back to delimited text.
func Load(path string, opt LoadOptions) (*Table, error) {
	var rd Reader = delimitedReader{}
	for _, r := range registry {
		if r.CanRead(path) {
			rd = r
			break
		}
	}
	header, records, err := rd.Read(path, opt)
	if err != nil {
		return nil, err
	}
	return FromRecords(filepath.Base(path), header, records, opt)
}

type delimitedReader struct{}

func (delimitedReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || ext == ".tsv" || ext == ".txt"
}

func (delimitedReader) Read(path string, opt LoadOptions) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDelimited(f, delimiterFor(path, opt.Delimiter))
}

// ReadDelimited reads a header line followed by records. An empty input yields no header.
func ReadDelimited(r io.Reader, delim rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func delimiterFor(path string, delim rune) rune {
	if delim != 0 {
		return delim
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// FromRecords validates raw string records against the declared kinds and builds a typed Table.
func FromRecords(name string, header []string, records [][]string, opt LoadOptions) (*Table, error) {
	if len(header) == 0 {
		return &Table{Name: name}, nil
	}
	ncol := len(header)
	names := make([]string, ncol)
	pos := make(map[string]int, ncol)
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		pos[names[i]] = i
	}
	for col := range opt.Declared {
		if _, ok := pos[strings.TrimSpace(col)]; ok {
			continue
		}
		if !containsFold(names, strings.TrimSpace(col)) {
			return nil, &SchemaError{Column: col, Reason: "declared column not found in header"}
		}
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	var warnings []string
	if len(records) > maxRows {
		warnings = append(warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", maxRows, len(records)))
		records = records[:maxRows]
	}
	for i, rec := range records {
		if len(rec) > ncol {
			return nil, &SchemaError{Row: i + 1, Value: strings.Join(rec[ncol:], ","),
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(rec), ncol)}
		}
	}

	missing := newMissingSet(opt.MissingTokens)
	cell := func(row, col int) string {
		rec := records[row]
		if col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	cols := make([]Column, ncol)
	locales := make([]locale, ncol)
	for j := 0; j < ncol; j++ {
		kind, declared := lookupDeclared(opt.Declared, names[j])
		cols[j] = Column{Name: names[j], Kind: kind}
		if declared && kind == KindCategorical {
			continue
		}
		var rows []int
		var values []string
		for r := range records {
			if v := cell(r, j); !missing.has(v) {
				rows = append(rows, r)
				values = append(values, v)
			}
		}
		loc, conflict := columnLocale(values, opt.DecimalSeparator, opt.ThousandsSeparator)
		numeric := true
		for i, v := range values {
			if _, ok := loc.parse(v); !ok {
				if declared {
					return nil, &SchemaError{Column: names[j], Row: rows[i] + 1, Value: v, Reason: "value is not numeric"}
				}
				numeric = false
				break
			}
		}
		if !numeric {
			cols[j].Kind = KindCategorical
			continue
		}
		if conflict >= 0 {
			return nil, &SchemaError{Column: names[j], Row: rows[conflict] + 1, Value: values[conflict],
				Reason: fmt.Sprintf("decimal separator conflicts with %q used earlier in the column", loc.dec)}
		}
		cols[j].Kind = KindNumeric
		locales[j] = loc
	}
	schema, err := NewSchema(cols...)
	if err != nil {
		return nil, err
	}

	t := newTable(name, schema, len(records))
	t.Warnings = warnings
	for j, c := range schema.cols {
		for r := range records {
			v := cell(r, j)
			if missing.has(v) {
				continue
			}
			if c.Kind == KindCategorical {
				t.cols[j].texts[r] = Str(v)
				continue
			}
			x, _ := locales[j].parse(v)
			t.cols[j].nums[r] = Num(x)
		}
	}
	return t, nil
}

// lookupDeclared matches exactly first, then case-insensitively; config files fold key case.
func lookupDeclared(declared map[string]Kind, name string) (Kind, bool) {
	if k, ok := declared[name]; ok {
		return k, true
	}
	for col, k := range declared {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return k, true
		}
	}
	return 0, false
}

func containsFold(names []string, s string) bool {
	for _, n := range names {
		if strings.EqualFold(n, s) {
			return true
		}
	}
	return false
}
