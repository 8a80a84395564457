package table

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// DefaultMissingTokens are the cell values treated as missing when LoadOptions.MissingTokens is nil.
var DefaultMissingTokens = []string{"", "NA", "N/A", "NaN", "null"}

type missingSet map[string]struct{}

func newMissingSet(tokens []string) missingSet {
	if tokens == nil {
		tokens = DefaultMissingTokens
	}
	m := make(missingSet, len(tokens)+1)
	m[""] = struct{}{}
	for _, tok := range tokens {
		m[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return m
}

func (m missingSet) has(v string) bool {
	_, ok := m[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// locale is the number format of one column. A zero thou strips every separator other than dec.
type locale struct {
	dec, thou rune
}

func normalizeNumber(s string) string {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "%", "")
	return strings.TrimSpace(strings.ReplaceAll(raw, "\u00A0", " "))
}

// parse reads s as a number in this locale. "12%" reads as 12.
func (l locale) parse(s string) (float64, bool) {
	raw := normalizeNumber(s)
	if raw == "" {
		return 0, false
	}
	if l.thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != l.dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if l.thou != l.dec {
		raw = strings.ReplaceAll(raw, string(l.thou), "")
	}
	if l.dec != '.' {
		raw = strings.ReplaceAll(raw, string(l.dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// decimalHint returns the decimal separator a single value implies, or 0 when the value
// reads the same way in both conventions or could be either ("1,500").
func decimalHint(s string) rune {
	raw := normalizeNumber(s)
	commas, dots := strings.Count(raw, ","), strings.Count(raw, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			return ','
		}
		return '.'
	case commas > 1:
		return '.'
	case dots > 1:
		return ','
	case commas == 1:
		if groupsThousands(raw, ',') {
			return 0
		}
		return ','
	case dots == 1:
		if groupsThousands(raw, '.') {
			return 0
		}
		return '.'
	}
	return 0
}

// groupsThousands reports whether the single sep in raw could be a thousands separator:
// one to three leading digits without a leading zero, then exactly three digits.
func groupsThousands(raw string, sep rune) bool {
	head, tail, _ := strings.Cut(strings.TrimLeft(raw, "+-"), string(sep))
	if len(head) == 0 || len(head) > 3 || head[0] == '0' || len(tail) != 3 {
		return false
	}
	return allDigits(head) && allDigits(tail)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// columnLocale picks one locale for all values of a column. Explicit separators win; otherwise
// the first value that implies a decimal separator decides, and '.' is the fallback. It returns
// the index of the first value that implies the other convention, or -1.
func columnLocale(values []string, dec, thou rune) (locale, int) {
	if dec == 0 {
		switch thou {
		case ',':
			dec = '.'
		case '.':
			dec = ','
		}
	}
	conflict := -1
	for i, v := range values {
		h := decimalHint(v)
		if h == 0 {
			continue
		}
		if dec == 0 {
			dec = h
			continue
		}
		if h != dec {
			conflict = i
			break
		}
	}
	if dec == 0 {
		dec = '.'
	}
	if thou == dec {
		thou = 0
	}
	return locale{dec: dec, thou: thou}, conflict
}
