package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "occurrence.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestRead_InfersSchema(t *testing.T) {
	path := writeTSV(t,
		"gbifID\tdecimalLatitude\tdecimalLongitude\tyear\thasCoordinate\tlocality",
		"1\t-33.85\t151.2\t2004\ttrue\tSydney",
		"2\t21\t-157.8\t\tfalse\tOahu",
		"3\t\t\t1999\ttrue\t",
	)

	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Height())
	assert.Equal(t, []Field{
		{Name: "gbifID", Kind: KindInt64},
		{Name: "decimalLatitude", Kind: KindFloat64},
		{Name: "decimalLongitude", Kind: KindFloat64},
		{Name: "year", Kind: KindInt64},
		{Name: "hasCoordinate", Kind: KindBool},
		{Name: "locality", Kind: KindString},
	}, tbl.Schema())

	lat, ok := tbl.Column("decimalLatitude")
	require.True(t, ok)
	v, ok := lat.Float64(1)
	assert.True(t, ok)
	assert.Equal(t, 21.0, v)
	_, ok = lat.Float64(2)
	assert.False(t, ok)

	year, _ := tbl.Column("year")
	_, ok = year.Int64(1)
	assert.False(t, ok)
}

func TestRead_UnknownColumn(t *testing.T) {
	path := writeTSV(t, "a\tb", "1\t2")
	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)

	_, ok := tbl.Column("decimalLatitude")
	assert.False(t, ok)
}

func TestRead_ColumnProjection(t *testing.T) {
	path := writeTSV(t,
		"gbifID\tyear\tmonth",
		"10\t2020\t4",
	)
	tbl, err := Read(context.Background(), path, Options{Columns: []string{"month", "missing"}})
	require.NoError(t, err)

	require.Len(t, tbl.Columns(), 1)
	assert.Equal(t, "month", tbl.Columns()[0].Name)
	assert.Equal(t, 1, tbl.Height())
}

func TestRead_RaggedRowsPadWithNull(t *testing.T) {
	path := writeTSV(t,
		"decimalLatitude\tdecimalLongitude\tday",
		"10.5\t20.5",
		"11.5\t21.5\t3\textra",
	)
	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)

	day, _ := tbl.Column("day")
	assert.True(t, day.IsNull(0))
	n, ok := day.Int64(1)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestRead_CustomDelimiter(t *testing.T) {
	path := writeTSV(t, "a,b", "1,2.5")
	tbl, err := Read(context.Background(), path, Options{Delimiter: ','})
	require.NoError(t, err)

	b, ok := tbl.Column("b")
	require.True(t, ok)
	assert.Equal(t, KindFloat64, b.Kind)
}

func TestRead_StripsBOM(t *testing.T) {
	path := writeTSV(t, "\ufeffgbifID\tyear", "1\t2000")
	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)

	_, ok := tbl.Column("gbifID")
	assert.True(t, ok)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "nope.tsv"), Options{})
	require.Error(t, err)

	var ie *IngestError
	require.True(t, errors.As(err, &ie))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRead_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Read(context.Background(), path, Options{})
	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "missing header row")
}

func TestRead_BareQuoteInField(t *testing.T) {
	path := writeTSV(t,
		"decimalLatitude\toccurrenceRemarks",
		"-33.9\tshark approx 8' 6\" long",
		"21.3\t",
	)
	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Height())
	col, ok := tbl.Column("occurrenceRemarks")
	require.True(t, ok)
	text, ok := col.Text(0)
	require.True(t, ok)
	assert.Equal(t, "shark approx 8' 6\" long", text)
}

func TestRead_MalformedQuoting(t *testing.T) {
	path := writeTSV(t,
		"a\tb",
		"1\t\"quoted\"trailing",
		"2\t3",
	)
	_, err := Read(context.Background(), path, Options{StrictQuotes: true})

	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, path, ie.Path)
	assert.Positive(t, ie.Line)
}

func TestRead_CancelledContext(t *testing.T) {
	path := writeTSV(t, "a", "1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, path, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		sample int
		want   Kind
	}{
		{"all null", []string{"", ""}, -1, KindNull},
		{"ints", []string{"1", "", "-4"}, -1, KindInt64},
		{"int then float", []string{"1", "2.5"}, -1, KindFloat64},
		{"bools", []string{"TRUE", "false"}, -1, KindBool},
		{"bool and int", []string{"true", "1"}, -1, KindString},
		{"nan is text", []string{"NaN"}, -1, KindString},
		{"text", []string{"1", "abc"}, -1, KindString},
		{"sample stops early", []string{"1", "2", "abc"}, 2, KindInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferKind(tt.values, tt.sample))
		})
	}
}

func TestColumn_BeyondSampleReadsNull(t *testing.T) {
	c := NewColumn("decimalLatitude", []string{"1.5", "2.5", "north"}, 2)
	assert.Equal(t, KindFloat64, c.Kind)

	_, ok := c.Float64(2)
	assert.False(t, ok)
	s, ok := c.Text(2)
	assert.True(t, ok)
	assert.Equal(t, "north", s)
}

func TestColumn_Int64Narrowing(t *testing.T) {
	c := NewColumn("year", []string{"2004.0", "2004.5", "1e30", "7"}, -1)

	n, ok := c.Int64(0)
	assert.True(t, ok)
	assert.Equal(t, int64(2004), n)

	_, ok = c.Int64(1)
	assert.False(t, ok)
	_, ok = c.Int64(2)
	assert.False(t, ok)

	n, ok = c.Int64(3)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
}

func TestNew_MismatchedLengths(t *testing.T) {
	_, err := New(
		NewColumn("a", []string{"1", "2"}, -1),
		NewColumn("b", []string{"1"}, -1),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "float64", KindFloat64.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
