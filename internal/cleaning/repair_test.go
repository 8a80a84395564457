package cleaning

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

func heart(t *testing.T, records [][]string) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords("heart.csv", []string{"Cholesterol", "HeartDisease", "Sex"}, records, table.DefaultLoadOptions())
	require.NoError(t, err)
	return tbl
}

var cholRule = Rule{Target: "Cholesterol", Group: Predicate{Column: "HeartDisease", Equals: "0"}, Sentinel: 0}

func floats(t *testing.T, tbl *table.Table, col string) []table.Number {
	t.Helper()
	n, err := tbl.Numbers(col)
	require.NoError(t, err)
	return n
}

func TestRepairUsesOwnGroupMedian(t *testing.T) {
	in := heart(t, [][]string{{"0", "0", "M"}, {"200", "0", "F"}, {"0", "1", "M"}, {"240", "1", "F"}})

	out, rep, err := Repair(in, cholRule, PolicyKeep)
	require.NoError(t, err)

	assert.Equal(t, []table.Number{table.Num(200), table.Num(200), table.Num(240), table.Num(240)}, floats(t, out, "Cholesterol"))
	assert.Equal(t, []table.Number{table.Num(0), table.Num(200), table.Num(0), table.Num(240)}, floats(t, in, "Cholesterol"), "input must be unchanged")
	assert.Equal(t, in.Len(), out.Len())
	assert.True(t, in.Schema().Equal(out.Schema()))

	require.Len(t, rep.Operations, 2)
	assert.Equal(t, OpImpute, rep.Operations[0].Kind)
	assert.Equal(t, 0, rep.Operations[0].Row)
	assert.Equal(t, "HeartDisease == 0", rep.Operations[0].Group)
	assert.Equal(t, 2, rep.Operations[1].Row)
	assert.Equal(t, "HeartDisease != 0", rep.Operations[1].Group)
	assert.Equal(t, table.Num(240), rep.Operations[1].New)
}

func TestRepairLeavesNonSentinelAndMissingCells(t *testing.T) {
	in := heart(t, [][]string{{"180", "0", "M"}, {"NA", "0", "F"}, {"0", "0", "M"}, {"220", "0", "F"}, {"310", "1", "M"}})
	out, rep, err := Repair(in, cholRule, PolicyKeep)
	require.NoError(t, err)

	got := floats(t, out, "Cholesterol")
	assert.Equal(t, table.Num(180), got[0])
	assert.False(t, got[1].Valid)
	assert.Equal(t, table.Num(200), got[2])
	assert.Equal(t, table.Num(220), got[3])
	assert.Equal(t, table.Num(310), got[4])
	assert.Equal(t, 1, rep.Count(OpImpute))

	sex, err := out.Texts("Sex")
	require.NoError(t, err)
	assert.Equal(t, table.Str("F"), sex[1])
}

func TestRepairEmptyGroupKeepPolicy(t *testing.T) {
	in := heart(t, [][]string{{"0", "1", "M"}, {"0", "1", "F"}, {"200", "0", "M"}})
	out, rep, err := Repair(in, cholRule, PolicyKeep)
	require.NoError(t, err)

	got := floats(t, out, "Cholesterol")
	assert.Equal(t, []table.Number{table.Num(0), table.Num(0), table.Num(200)}, got)
	assert.Equal(t, 2, rep.Count(OpUnrepaired))
	assert.Equal(t, 0, rep.Count(OpImpute))
}

func TestRepairEmptyGroupFailPolicy(t *testing.T) {
	in := heart(t, [][]string{{"0", "1", "M"}, {"200", "0", "M"}})
	_, _, err := Repair(in, cholRule, PolicyFail)

	var dq *DataQualityError
	require.True(t, errors.As(err, &dq), "want DataQualityError, got %v", err)
	assert.Equal(t, "Cholesterol", dq.Column)
	assert.Equal(t, "HeartDisease != 0", dq.Group)
	assert.Equal(t, 1, dq.Sentinels)
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestRepairCategoricalGroupAndMissingGroupValue(t *testing.T) {
	in := heart(t, [][]string{{"0", "", "M"}, {"100", "", "M"}, {"300", "1", "F"}, {"0", "", ""}})
	rule := Rule{Target: "Cholesterol", Group: Predicate{Column: "Sex", Equals: "M"}}
	out, _, err := Repair(in, rule, PolicyKeep)
	require.NoError(t, err)

	// Row 3 has no Sex, so it joins the "!= M" partition whose only value is 300.
	assert.Equal(t, []table.Number{table.Num(100), table.Num(100), table.Num(300), table.Num(300)}, floats(t, out, "Cholesterol"))
}

func TestRepairRejectsBadRule(t *testing.T) {
	in := heart(t, [][]string{{"0", "0", "M"}})

	_, _, err := Repair(in, Rule{Target: "Sex", Group: cholRule.Group}, PolicyKeep)
	assert.ErrorIs(t, err, table.ErrNotNumeric)

	_, _, err = Repair(in, Rule{Target: "Cholesterol", Group: Predicate{Column: "Nope"}}, PolicyKeep)
	assert.ErrorIs(t, err, table.ErrUnknownColumn)

	_, _, err = Repair(in, Rule{Target: "Cholesterol", Group: Predicate{Column: "HeartDisease", Equals: "yes"}}, PolicyKeep)
	assert.Error(t, err)
}

func TestApplyDropsThenRepairs(t *testing.T) {
	tbl, err := table.FromRecords("heart.csv",
		[]string{"RestingBP", "Cholesterol", "HeartDisease"},
		[][]string{{"140", "0", "0"}, {"0", "500", "0"}, {"130", "200", "0"}, {"120", "0", "1"}, {"150", "260", "1"}},
		table.DefaultLoadOptions())
	require.NoError(t, err)

	plan := Plan{Drops: []Drop{{Column: "RestingBP", Sentinel: 0}}, Rules: []Rule{cholRule}}
	out, rep, err := Apply(tbl, plan)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Len())
	// The dropped row's 500 must not feed the median.
	assert.Equal(t, []table.Number{table.Num(200), table.Num(200), table.Num(260), table.Num(260)}, floats(t, out, "Cholesterol"))
	assert.Equal(t, 1, rep.Count(OpDropRow))
	assert.Equal(t, 2, rep.Count(OpImpute))
	assert.Equal(t, OpDropRow, rep.Operations[0].Kind)
	assert.Equal(t, 5, tbl.Len())

	same, rep, err := Apply(tbl, Plan{})
	require.NoError(t, err)
	assert.Empty(t, rep.Operations)
	assert.NotSame(t, tbl, same)
}

func TestApplyReportsInputRowIndices(t *testing.T) {
	tbl, err := table.FromRecords("heart.csv",
		[]string{"RestingBP", "Cholesterol", "HeartDisease"},
		[][]string{{"0", "100", "0"}, {"130", "200", "0"}, {"120", "0", "0"}, {"999", "0", "1"}, {"110", "0", "1"}, {"125", "300", "1"}},
		table.DefaultLoadOptions())
	require.NoError(t, err)

	plan := Plan{
		Drops: []Drop{{Column: "RestingBP", Sentinel: 0}, {Column: "RestingBP", Sentinel: 999}},
		Rules: []Rule{cholRule},
	}
	_, rep, err := Apply(tbl, plan)
	require.NoError(t, err)

	type opRow struct {
		Kind string
		Row  int
	}
	var got []opRow
	for _, op := range rep.Operations {
		got = append(got, opRow{op.Kind, op.Row})
		assert.True(t, op.At.IsZero())
	}
	assert.Equal(t, []opRow{{OpDropRow, 0}, {OpDropRow, 3}, {OpImpute, 2}, {OpImpute, 4}}, got)

	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rep.Stamp(at)
	for _, op := range rep.Operations {
		assert.Equal(t, at, op.At)
	}
}

func TestRepairOnlyTouchesSentinelCells(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(12)
		records := make([][]string, n)
		for i := range records {
			chol := "NA"
			if rng.Intn(5) > 0 {
				chol = fmt.Sprint(rng.Intn(4) * 100)
			}
			records[i] = []string{chol, fmt.Sprint(rng.Intn(2)), []string{"M", "F"}[rng.Intn(2)]}
		}
		in := heart(t, records)
		out, rep, err := Repair(in, cholRule, PolicyKeep)
		require.NoError(t, err)
		require.Equal(t, in.Len(), out.Len())

		before, after := floats(t, in, "Cholesterol"), floats(t, out, "Cholesterol")
		sentinels := 0
		for i := range before {
			if before[i].Valid && before[i].Float == cholRule.Sentinel {
				sentinels++
				continue
			}
			assert.Equal(t, before[i], after[i], "iteration %d row %d", iter, i)
		}
		assert.Equal(t, sentinels, rep.Count(OpImpute)+rep.Count(OpUnrepaired), "iteration %d", iter)
	}
}

func TestApplyWrapsRuleErrors(t *testing.T) {
	in := heart(t, [][]string{{"0", "1", "M"}})
	_, _, err := Apply(in, Plan{Rules: []Rule{cholRule}, Policy: PolicyFail})
	var dq *DataQualityError
	require.ErrorAs(t, err, &dq)
	assert.Contains(t, err.Error(), "rule 1 (Cholesterol)")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyKeep, p)
	p, err = ParsePolicy("FAIL")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)
	assert.Equal(t, "fail", p.String())
	_, err = ParsePolicy("guess")
	assert.Error(t, err)
}
