package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// loadFlags are the file-reading flags shared by every command that reads a table.
type loadFlags struct {
	delimiter   string
	decimal     string
	thousands   string
	maxRows     int
	sheetName   string
	sheetIndex  int
	schema      []string
	categorical []string
}

func (lf *loadFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed by extension if omitted)")
	c.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().IntVar(&lf.maxRows, "max-rows", 0, "maximum rows to process (0 = config value, unlimited by default)")
	c.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().StringSliceVar(&lf.schema, "schema", nil, "column kind declarations as name=numeric|categorical (repeatable)")
	c.Flags().StringSliceVar(&lf.categorical, "categorical", nil, "columns to read as categorical even when they look numeric")
}

// options merges the configured defaults with any flags given on the command line.
func (lf *loadFlags) options() (table.LoadOptions, error) {
	opt, err := cfg.LoadOptions()
	if err != nil {
		return opt, err
	}
	if lf.delimiter != "" {
		switch lf.delimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", `\t`, "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		case "|":
			opt.Delimiter = '|'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", lf.delimiter)
		}
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}
	if lf.maxRows > 0 {
		opt.MaxRows = lf.maxRows
	}
	opt.SheetName = lf.sheetName
	if lf.sheetIndex > 0 {
		opt.SheetIndex = lf.sheetIndex
	}

	if len(lf.schema) > 0 || len(lf.categorical) > 0 {
		declared := make(map[string]table.Kind, len(opt.Declared)+len(lf.schema)+len(lf.categorical))
		for k, v := range opt.Declared {
			declared[k] = v
		}
		for _, col := range lf.categorical {
			declared[strings.TrimSpace(col)] = table.KindCategorical
		}
		for _, decl := range lf.schema {
			name, kind, ok := strings.Cut(decl, "=")
			if !ok {
				return opt, fmt.Errorf("invalid --schema %q (use name=numeric|categorical)", decl)
			}
			k, err := table.ParseKind(kind)
			if err != nil {
				return opt, fmt.Errorf("--schema %s: %w", name, err)
			}
			declared[strings.TrimSpace(name)] = k
		}
		opt.Declared = declared
	}
	return opt, nil
}

// load reads one table and logs any loader warnings.
func (lf *loadFlags) load(path string) (*table.Table, error) {
	opt, err := lf.options()
	if err != nil {
		return nil, err
	}
	t, err := table.Load(path, opt)
	if err != nil {
		return nil, err
	}
	for _, w := range t.Warnings {
		logger.Warn("Loader warning", zap.String("file", t.Name), zap.String("warning", w))
	}
	logger.Debug("Loaded table",
		zap.String("file", path),
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Schema().Len()),
		zap.Strings("numeric", t.Schema().NumericNames()))
	return t, nil
}

// expandInputs resolves glob patterns and literal paths into a sorted, de-duplicated list.
// A literal path must exist; a pattern must match at least one file.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		var matches []string
		if strings.ContainsAny(arg, "*?[") {
			m, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("input pattern %q: %w", arg, err)
			}
			if len(m) == 0 {
				return nil, fmt.Errorf("input pattern %q: %w", arg, os.ErrNotExist)
			}
			matches = m
		} else {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("input %s: %w", arg, err)
			}
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files given")
	}
	sort.Strings(files)
	return files, nil
}

func splitColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
