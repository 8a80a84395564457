package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords("heart.csv",
		[]string{"Sex", "Cholesterol", "Oldpeak"},
		[][]string{{"M", "289", "0"}, {"F", "NA", "1.5"}, {"", "214", "-0.1"}},
		table.DefaultLoadOptions())
	require.NoError(t, err)
	return tbl
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample(t), 0))
	assert.Equal(t, "Sex,Cholesterol,Oldpeak\nM,289,0\nF,,1.5\n,214,-0.1\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, sample(t), ';'))
	assert.Contains(t, buf.String(), "M;289;0\n")
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, sample(t)))

	f, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.NumRows())

	var names []string
	for _, field := range f.Schema().Fields() {
		names = append(names, field.Name())
		assert.True(t, field.Optional(), field.Name())
	}
	assert.ElementsMatch(t, []string{"Sex", "Cholesterol", "Oldpeak"}, names)
}

func TestWriteFileRoundTripsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clean.csv")
	require.NoError(t, WriteFile(path, sample(t), 0))

	back, err := table.Load(path, table.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, back.Len())
	chol, err := back.Numbers("Cholesterol")
	require.NoError(t, err)
	assert.False(t, chol[1].Valid)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileParquetExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.parquet")
	require.NoError(t, WriteFile(path, sample(t), 0))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(b[:4]))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 3})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"rows\": 3\n}", string(b))
}
