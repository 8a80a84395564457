// Package export writes tables back to disk as delimited text or Parquet.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// WriteCSV writes a header row followed by every data row. Missing cells are empty.
func WriteCSV(w io.Writer, t *table.Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := cw.Write(t.Schema().Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	n := t.Schema().Len()
	rec := make([]string, n)
	for r := 0; r < t.Len(); r++ {
		for c := 0; c < n; c++ {
			rec[c] = t.Cell(r, c)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParquetSchema maps numeric columns to optional DOUBLE leaves and categorical columns to
// optional STRING leaves.
func ParquetSchema(t *table.Table) *parquet.Schema {
	group := make(parquet.Group)
	for _, c := range t.Schema().Columns() {
		if c.Kind == table.KindNumeric {
			group[c.Name] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		} else {
			group[c.Name] = parquet.Optional(parquet.String())
		}
	}
	name := strings.TrimSuffix(t.Name, filepath.Ext(t.Name))
	if name == "" {
		name = "table"
	}
	return parquet.NewSchema(name, group)
}

// WriteParquet writes t as a single Parquet file.
func WriteParquet(w io.Writer, t *table.Table) error {
	schema := ParquetSchema(t)
	cols := t.Schema().Columns()

	// Group fields are ordered by name; leaf indexes follow that order.
	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return cols[order[a]].Name < cols[order[b]].Name })

	rows := make([]parquet.Row, t.Len())
	for r := range rows {
		row := make(parquet.Row, len(cols))
		for leaf, ci := range order {
			if t.Missing(r, ci) {
				row[leaf] = parquet.NullValue().Level(0, 0, leaf)
				continue
			}
			row[leaf] = cellValue(t, r, ci, cols[ci].Kind).Level(0, 1, leaf)
		}
		rows[r] = row
	}

	pw := parquet.NewWriter(w, schema)
	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func cellValue(t *table.Table, row, col int, kind table.Kind) parquet.Value {
	name := t.Schema().Columns()[col].Name
	if kind == table.KindNumeric {
		nums, _ := t.Numbers(name)
		return parquet.ValueOf(nums[row].Float)
	}
	texts, _ := t.Texts(name)
	return parquet.ValueOf(texts[row].String)
}

// WriteFile writes t to path, choosing Parquet for ".parquet" and delimited text otherwise.
// The file is replaced atomically.
func WriteFile(path string, t *table.Table, delimiter rune) error {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		err = WriteParquet(&buf, t)
	case ".tsv":
		if delimiter == 0 {
			delimiter = '\t'
		}
		err = WriteCSV(&buf, t, delimiter)
	default:
		err = WriteCSV(&buf, t, delimiter)
	}
	if err != nil {
		return err
	}
	return SafeWriteFile(path, buf.Bytes())
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}
