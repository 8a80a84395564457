package cleaning

import (
	"fmt"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// Drop removes rows whose Column equals Sentinel.
type Drop struct {
	Column   string  `mapstructure:"column" yaml:"column" json:"column"`
	Sentinel float64 `mapstructure:"sentinel" yaml:"sentinel" json:"sentinel"`
}

// Plan is an ordered cleaning pipeline: every drop runs first, then every rule in order.
type Plan struct {
	Drops  []Drop
	Rules  []Rule
	Policy Policy
}

// Empty reports whether the plan would leave a table unchanged.
func (p Plan) Empty() bool { return len(p.Drops) == 0 && len(p.Rules) == 0 }

// Apply runs the plan against t and returns the cleaned table with the combined report.
// t is never modified.
func Apply(t *table.Table, p Plan) (*table.Table, Report, error) {
	cur := t
	var rep Report
	for _, d := range p.Drops {
		next, r, err := DropSentinelRows(cur, d.Column, d.Sentinel)
		if err != nil {
			return nil, Report{}, err
		}
		cur = next
		rep.merge(r)
	}
	for i, rule := range p.Rules {
		next, r, err := Repair(cur, rule, p.Policy)
		if err != nil {
			return nil, Report{}, fmt.Errorf("rule %d (%s): %w", i+1, rule.Target, err)
		}
		cur = next
		rep.merge(r)
	}
	if cur == t {
		cur = t.Clone()
	}
	return cur, rep, nil
}
