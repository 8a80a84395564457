package table

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".xlsx")
}

// Read extracts the selected worksheet as string records. Formulas are read by cached value.
func (xlsxReader) Read(p string, opt LoadOptions) ([]string, [][]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx %s: %w", p, err)
	}
	defer zr.Close()

	var wb workbook
	if err := decodeZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, nil, err
	}
	var rels relationships
	if err := decodeZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, nil, err
	}
	var sst sharedStrings
	if err := decodeZipXML(&zr.Reader, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, nil, err
	}

	target, err := wb.sheetTarget(rels, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	f := findZipFile(&zr.Reader, target)
	if f == nil {
		return nil, nil, fmt.Errorf("%s: worksheet %s missing from archive", filepath.Base(p), target)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open worksheet: %w", err)
	}
	defer rc.Close()

	rows, err := readSheetRows(rc, sst.values())
	if err != nil {
		return nil, nil, fmt.Errorf("read worksheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

type workbook struct {
	Sheets []struct {
		Name    string     `xml:"name,attr"`
		SheetID int        `xml:"sheetId,attr"`
		Attrs   []xml.Attr `xml:",any,attr"`
	} `xml:"sheets>sheet"`
}

// rid returns the r:id attribute regardless of which relationships namespace the file uses.
func rid(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Local == "id" {
			return a.Value
		}
	}
	return ""
}

type relationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type sharedStrings struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

func (s sharedStrings) values() []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		if len(it.Runs) == 0 {
			out[i] = it.T
			continue
		}
		var b strings.Builder
		for _, r := range it.Runs {
			b.WriteString(r.T)
		}
		out[i] = b.String()
	}
	return out
}

func (wb workbook) sheetTarget(rels relationships, name string, index int) (string, error) {
	byID := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		byID[r.ID] = r.Target
	}
	if name != "" {
		available := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, name) {
				if t, ok := byID[rid(s.Attrs)]; ok {
					return normalizeRelPath(t), nil
				}
			}
			available = append(available, s.Name)
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(available, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range wb.Sheets {
		if s.SheetID == index {
			if t, ok := byID[rid(s.Attrs)]; ok {
				return normalizeRelPath(t), nil
			}
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

// normalizeRelPath maps relationship targets such as "/xl/worksheets/sheet1.xml" or
// "worksheets/sheet1.xml" to archive entry names.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// decodeZipXML unmarshals an archive entry; a missing entry leaves v untouched.
func decodeZipXML(zr *zip.Reader, name string, v any) error {
	f := findZipFile(zr, name)
	if f == nil {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

type sheetCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline struct {
		T string `xml:"t"`
	} `xml:"is"`
}

// readSheetRows streams <row> elements so large sheets are not unmarshalled as one tree.
func readSheetRows(r io.Reader, shared []string) ([][]string, error) {
	dec := xml.NewDecoder(r)
	var rows [][]string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row struct {
			Cells []sheetCell `xml:"c"`
		}
		if err := dec.DecodeElement(&row, &se); err != nil {
			return nil, err
		}
		var out []string
		for i, c := range row.Cells {
			idx := i
			if c.Ref != "" {
				idx = colIndexFromRef(c.Ref)
			}
			if idx < 0 {
				continue
			}
			for len(out) <= idx {
				out = append(out, "")
			}
			out[idx] = c.text(shared)
		}
		rows = append(rows, out)
	}
}

func (c sheetCell) text(shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline.T
	default:
		return c.Value
	}
}

// colIndexFromRef converts a cell reference like "C12" to a 0-based column index.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			idx = idx*26 + int(ch-'A'+1)
		case ch >= 'a' && ch <= 'z':
			idx = idx*26 + int(ch-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}
