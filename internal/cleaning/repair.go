// Package cleaning repairs sentinel values in a table using medians computed within row groups.
package cleaning

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tabstat-cli/internal/stats"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// Policy decides what happens when a group has no usable values to take a median from.
type Policy int

const (
	// PolicyKeep leaves the sentinels of an empty group in place and reports them as unrepaired.
	PolicyKeep Policy = iota
	// PolicyFail aborts the repair with a *DataQualityError.
	PolicyFail
)

func (p Policy) String() string {
	if p == PolicyFail {
		return "fail"
	}
	return "keep"
}

// ParsePolicy accepts "keep" (or empty) and "fail".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return PolicyKeep, nil
	case "fail":
		return PolicyFail, nil
	default:
		return PolicyKeep, fmt.Errorf("unknown empty-group policy %q (want keep or fail)", s)
	}
}

// DataQualityError reports a group that has sentinels but no values to repair them with.
type DataQualityError struct {
	Column    string
	Group     string
	Sentinels int
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: group %q has %d %s sentinel(s) and no other values to take a median from",
		e.Group, e.Sentinels, e.Column)
}

// ErrNoValues is matched by every *DataQualityError.
var ErrNoValues = errors.New("group has no non-sentinel values")

func (e *DataQualityError) Is(target error) bool { return target == ErrNoValues }

// Predicate is a boolean test "Column == Equals". Numeric columns compare numerically,
// categorical columns by exact string. A missing cell never matches.
type Predicate struct {
	Column string `mapstructure:"column" yaml:"column" json:"column"`
	Equals string `mapstructure:"equals" yaml:"equals" json:"equals"`
}

func (p Predicate) labels() (string, string) {
	return fmt.Sprintf("%s == %s", p.Column, p.Equals), fmt.Sprintf("%s != %s", p.Column, p.Equals)
}

// eval returns one membership flag per row.
func (p Predicate) eval(t *table.Table) ([]bool, error) {
	c, _, ok := t.Schema().Lookup(p.Column)
	if !ok {
		return nil, fmt.Errorf("group column: %w: %s", table.ErrUnknownColumn, p.Column)
	}
	out := make([]bool, t.Len())
	if c.Kind == table.KindNumeric {
		want, err := strconv.ParseFloat(strings.TrimSpace(p.Equals), 64)
		if err != nil {
			return nil, fmt.Errorf("group value %q is not numeric for column %s", p.Equals, p.Column)
		}
		cells, _ := t.Numbers(p.Column)
		for i, n := range cells {
			out[i] = n.Valid && n.Float == want
		}
		return out, nil
	}
	cells, _ := t.Texts(p.Column)
	for i, s := range cells {
		out[i] = s.Valid && s.String == p.Equals
	}
	return out, nil
}

// Rule replaces Target cells equal to Sentinel with the median of Target within the
// row's Group partition.
type Rule struct {
	Target   string    `mapstructure:"target" yaml:"target" json:"target"`
	Group    Predicate `mapstructure:"group" yaml:"group" json:"group"`
	Sentinel float64   `mapstructure:"sentinel" yaml:"sentinel" json:"sentinel"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s: replace %s by median within %s", r.Target, table.FormatNumber(r.Sentinel), r.Group.Column)
}

// Operation kinds.
const (
	OpImpute     = "median_impute"
	OpUnrepaired = "unrepaired"
	OpDropRow    = "drop_row"
)

// Operation records one change, or one refused change, made to a table.
// Row is the 0-based data row of the loaded table, whatever rows were dropped before.
type Operation struct {
	Kind     string       `json:"operation"`
	Column   string       `json:"column"`
	Row      int          `json:"row"`
	Group    string       `json:"group,omitempty"`
	Original table.Number `json:"original"`
	New      table.Number `json:"new"`
	Reason   string       `json:"reason"`
	// At is zero until the caller stamps the report.
	At time.Time `json:"at,omitzero"`
}

// Report lists operations in the order they were applied.
type Report struct {
	Operations []Operation `json:"operations"`
}

// Count returns how many operations have the given kind.
func (r Report) Count(kind string) int {
	n := 0
	for _, op := range r.Operations {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Stamp sets the time of every operation.
func (r *Report) Stamp(at time.Time) {
	for i := range r.Operations {
		r.Operations[i].At = at
	}
}

func (r *Report) merge(o Report) { r.Operations = append(r.Operations, o.Operations...) }

// Repair applies one rule to a copy of t. Only sentinel cells of the target column change;
// non-sentinel and missing cells, the row count and the column set are preserved.
func Repair(t *table.Table, rule Rule, policy Policy) (*table.Table, Report, error) {
	if _, err := t.Numbers(rule.Target); err != nil {
		return nil, Report{}, fmt.Errorf("repair target: %w", err)
	}
	member, err := rule.Group.eval(t)
	if err != nil {
		return nil, Report{}, err
	}
	out := t.Clone()
	target, _ := out.Numbers(rule.Target)
	trueLabel, falseLabel := rule.Group.labels()

	var rep Report
	for _, in := range []bool{true, false} {
		label := falseLabel
		if in {
			label = trueLabel
		}
		var vals []float64
		var sentinels []int
		for i, n := range target {
			if member[i] != in || !n.Valid {
				continue
			}
			if n.Float == rule.Sentinel {
				sentinels = append(sentinels, i)
			} else {
				vals = append(vals, n.Float)
			}
		}
		if len(sentinels) == 0 {
			continue
		}
		med, ok := stats.Median(vals)
		if !ok {
			if policy == PolicyFail {
				return nil, Report{}, &DataQualityError{Column: rule.Target, Group: label, Sentinels: len(sentinels)}
			}
			for _, i := range sentinels {
				rep.Operations = append(rep.Operations, Operation{
					Kind: OpUnrepaired, Column: rule.Target, Row: t.SourceRow(i), Group: label,
					Original: target[i], New: target[i],
					Reason: "group has no non-sentinel values",
				})
			}
			continue
		}
		for _, i := range sentinels {
			rep.Operations = append(rep.Operations, Operation{
				Kind: OpImpute, Column: rule.Target, Row: t.SourceRow(i), Group: label,
				Original: target[i], New: table.Num(med),
				Reason: fmt.Sprintf("sentinel %s replaced by group median", table.FormatNumber(rule.Sentinel)),
			})
			target[i] = table.Num(med)
		}
	}
	return out, rep, nil
}

// DropSentinelRows returns a copy of t without the rows whose numeric column equals sentinel.
func DropSentinelRows(t *table.Table, column string, sentinel float64) (*table.Table, Report, error) {
	cells, err := t.Numbers(column)
	if err != nil {
		return nil, Report{}, fmt.Errorf("drop rows: %w", err)
	}
	var rep Report
	out := t.Filter(func(r int) bool {
		if cells[r].Valid && cells[r].Float == sentinel {
			rep.Operations = append(rep.Operations, Operation{
				Kind: OpDropRow, Column: column, Row: t.SourceRow(r), Original: cells[r],
				Reason: fmt.Sprintf("%s equals %s", column, table.FormatNumber(sentinel)),
			})
			return false
		}
		return true
	})
	return out, rep, nil
}
