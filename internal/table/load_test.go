package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var heartRows = []string{
	"Age,Sex,ChestPainType,RestingBP,Cholesterol,FastingBS,RestingECG,MaxHR,ExerciseAngina,Oldpeak,ST_Slope,HeartDisease",
	"40,M,ATA,140,289,0,Normal,172,N,0,Up,0",
	"49,F,NAP,160,180,0,Normal,156,N,1,Flat,1",
	"37,M,ATA,130,0,0,ST,98,N,0,Up,0",
	"48,F,ASY,138,214,0,Normal,108,Y,1.5,Flat,1",
	"54,M,NAP,0,NA,0,Normal,122,N,0,Up,0",
}

func writeCSV(t *testing.T, name string, rows []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	return path
}

func TestLoadCSVInfersSchema(t *testing.T) {
	tbl, err := Load(writeCSV(t, "heart-disease.csv", heartRows), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, "heart-disease.csv", tbl.Name)
	assert.Equal(t, 5, tbl.Len())
	assert.Equal(t,
		[]string{"Age", "RestingBP", "Cholesterol", "FastingBS", "MaxHR", "Oldpeak", "HeartDisease"},
		tbl.Schema().NumericNames())

	sex, _, ok := tbl.Schema().Lookup("Sex")
	require.True(t, ok)
	assert.Equal(t, KindCategorical, sex.Kind)

	chol, err := tbl.Numbers("Cholesterol")
	require.NoError(t, err)
	assert.Equal(t, []Number{Num(289), Num(180), Num(0), Num(214), {}}, chol)

	oldpeak, err := tbl.Numbers("Oldpeak")
	require.NoError(t, err)
	assert.Equal(t, Num(1.5), oldpeak[3])
}

func TestLoadTSVSniffsDelimiter(t *testing.T) {
	rows := []string{"a\tb", "1\tx", "2\ty"}
	tbl, err := Load(writeCSV(t, "data.tsv", rows), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Schema().Names())
	assert.Equal(t, "x", tbl.Cell(0, 1))
}

func TestFromRecordsDeclaredSchema(t *testing.T) {
	header := []string{"FastingBS", "Cholesterol"}
	records := [][]string{{"0", "200"}, {"1", "240"}}
	opt := DefaultLoadOptions()
	opt.Declared = map[string]Kind{"FastingBS": KindCategorical}

	tbl, err := FromRecords("t", header, records, opt)
	require.NoError(t, err)

	fbs, err := tbl.Texts("FastingBS")
	require.NoError(t, err)
	assert.Equal(t, []Text{Str("0"), Str("1")}, fbs)

	_, err = tbl.Numbers("FastingBS")
	assert.ErrorIs(t, err, ErrNotNumeric)
	_, err = tbl.Numbers("Nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestFromRecordsRejectsBadDeclaredNumeric(t *testing.T) {
	opt := DefaultLoadOptions()
	opt.Declared = map[string]Kind{"Cholesterol": KindNumeric}
	_, err := FromRecords("t", []string{"Cholesterol"}, [][]string{{"200"}, {"high"}}, opt)

	var se *SchemaError
	require.True(t, errors.As(err, &se), "want SchemaError, got %v", err)
	assert.Equal(t, "Cholesterol", se.Column)
	assert.Equal(t, 2, se.Row)
	assert.Equal(t, "high", se.Value)
}

func TestFromRecordsRejectsUnknownDeclaredColumn(t *testing.T) {
	opt := DefaultLoadOptions()
	opt.Declared = map[string]Kind{"Missing": KindNumeric}
	_, err := FromRecords("t", []string{"a"}, [][]string{{"1"}}, opt)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Missing", se.Column)
}

func TestFromRecordsHeaderAndRowShape(t *testing.T) {
	_, err := FromRecords("t", []string{"a", "a"}, nil, DefaultLoadOptions())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "duplicate")

	_, err = FromRecords("t", []string{"a"}, [][]string{{"1", "2"}}, DefaultLoadOptions())
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Row)

	tbl, err := FromRecords("t", []string{"a", "b"}, [][]string{{"1"}}, DefaultLoadOptions())
	require.NoError(t, err)
	assert.True(t, tbl.Missing(0, 1))
}

func TestFromRecordsMaxRowsAndAllMissing(t *testing.T) {
	opt := DefaultLoadOptions()
	opt.MaxRows = 2
	tbl, err := FromRecords("t", []string{"a", "b"}, [][]string{{"1", ""}, {"2", "NA"}, {"3", "null"}}, opt)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"processed only 2/3 rows due to MaxRows"}, tbl.Warnings)

	b, _, _ := tbl.Schema().Lookup("b")
	assert.Equal(t, KindNumeric, b.Kind)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	tbl, err := Load(path, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Schema().Len())
}

func TestLocaleParse(t *testing.T) {
	tests := []struct {
		in   string
		loc  locale
		want float64
		ok   bool
	}{
		{"1.5", locale{dec: '.'}, 1.5, true},
		{"1.234,5", locale{dec: ','}, 1234.5, true},
		{"1,234.5", locale{dec: '.'}, 1234.5, true},
		{"0,5", locale{dec: ',', thou: '.'}, 0.5, true},
		{"1.000,0", locale{dec: ',', thou: '.'}, 1000, true},
		{"1 234,5", locale{dec: ','}, 1234.5, true},
		{"12.5%", locale{dec: '.'}, 12.5, true},
		{"-3", locale{dec: '.'}, -3, true},
		{"abc", locale{dec: '.'}, 0, false},
		{"Inf", locale{dec: '.'}, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.loc.parse(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestDecimalHint(t *testing.T) {
	tests := map[string]rune{
		"1,234.5":   '.',
		"1.234,5":   ',',
		"1,5":       ',',
		"2.25":      '.',
		"1,500":     0,
		"1.500":     0,
		"0.125":     '.',
		"1234.567":  '.',
		"1,234,567": '.',
		"1.234.567": ',',
		"42":        0,
	}
	for in, want := range tests {
		assert.Equal(t, string(want), string(decimalHint(in)), in)
	}
}

func TestFromRecordsResolvesLocalePerColumn(t *testing.T) {
	header := []string{"Salary", "Rate"}
	records := [][]string{{"1,234.5", "0,5"}, {"1,500", "1.000,25"}, {"2,000", "2,000"}}

	tbl, err := FromRecords("t", header, records, DefaultLoadOptions())
	require.NoError(t, err)
	salary, err := tbl.Numbers("Salary")
	require.NoError(t, err)
	assert.Equal(t, []Number{Num(1234.5), Num(1500), Num(2000)}, salary)
	rate, err := tbl.Numbers("Rate")
	require.NoError(t, err)
	assert.Equal(t, []Number{Num(0.5), Num(1000.25), Num(2)}, rate)

	opt := DefaultLoadOptions()
	opt.DecimalSeparator = ','
	tbl, err = FromRecords("t", []string{"x"}, [][]string{{"1.500"}, {"2,5"}}, opt)
	require.NoError(t, err)
	xs, _ := tbl.Numbers("x")
	assert.Equal(t, []Number{Num(1500), Num(2.5)}, xs)

	// With nothing to disambiguate, '.' is the decimal separator.
	tbl, err = FromRecords("t", []string{"x"}, [][]string{{"1,500"}, {"2,000"}}, DefaultLoadOptions())
	require.NoError(t, err)
	xs, _ = tbl.Numbers("x")
	assert.Equal(t, []Number{Num(1500), Num(2000)}, xs)
}

func TestFromRecordsRejectsMixedDecimalSeparators(t *testing.T) {
	_, err := FromRecords("t", []string{"Salary"}, [][]string{{"1,234.5"}, {"NA"}, {"1,5"}}, DefaultLoadOptions())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Salary", se.Column)
	assert.Equal(t, 3, se.Row)
	assert.Equal(t, "1,5", se.Value)

	opt := DefaultLoadOptions()
	opt.DecimalSeparator = ','
	_, err = FromRecords("t", []string{"x"}, [][]string{{"1,234.5"}}, opt)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Row)

	// Text columns that merely contain separators stay categorical.
	tbl, err := FromRecords("t", []string{"v"}, [][]string{{"1.2"}, {"v1,3"}}, DefaultLoadOptions())
	require.NoError(t, err)
	v, _, _ := tbl.Schema().Lookup("v")
	assert.Equal(t, KindCategorical, v.Kind)
}

func TestFilterAndClone(t *testing.T) {
	tbl, err := FromRecords("t", []string{"x", "s"}, [][]string{{"1", "a"}, {"0", "b"}, {"3", ""}}, DefaultLoadOptions())
	require.NoError(t, err)

	xs, _ := tbl.Numbers("x")
	kept := tbl.Filter(func(r int) bool { return xs[r].Float != 0 })
	assert.Equal(t, 2, kept.Len())
	assert.Equal(t, "3", kept.Cell(1, 0))
	assert.True(t, kept.Missing(1, 1))
	assert.True(t, kept.Schema().Equal(tbl.Schema()))
	assert.Equal(t, 2, kept.SourceRow(1))
	again := kept.Filter(func(r int) bool { return r == 1 })
	assert.Equal(t, 2, again.SourceRow(0))
	assert.Equal(t, 2, again.Clone().SourceRow(0))
	assert.Equal(t, 1, tbl.SourceRow(1))

	cp := tbl.Clone()
	require.NoError(t, cp.SetNumber("x", 0, Num(9)))
	assert.Equal(t, Num(1), xs[0])
	assert.Error(t, cp.SetNumber("x", 5, Num(1)))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Numeric")
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, k)
	k, err = ParseKind("category")
	require.NoError(t, err)
	assert.Equal(t, KindCategorical, k)
	_, err = ParseKind("blob")
	assert.Error(t, err)
}
