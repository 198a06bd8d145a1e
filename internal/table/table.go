package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultInferSchemaLength is the number of data rows sampled for type inference.
const DefaultInferSchemaLength = 100_000

// Options configures Read.
type Options struct {
	Delimiter    rune
	StrictQuotes bool
	Encoding     string

	// InferSchemaLength bounds the rows sampled per column. Zero means
	// DefaultInferSchemaLength, negative means every row.
	InferSchemaLength int

	// Columns restricts the retained columns. Empty keeps all of them.
	Columns []string

	// ArchiveMember names the file read from a .zip input. Empty means
	// DefaultArchiveMember.
	ArchiveMember string
}

// IngestError reports an input file that could not be opened or parsed.
type IngestError struct {
	Path string
	Line int
	Err  error
}

func (e *IngestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ingest %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Kind is the inferred type of a column.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Field is one entry of a table schema.
type Field struct {
	Name string
	Kind Kind
}

// Column is a named sequence of optional values. An empty field is null.
type Column struct {
	Name   string
	Kind   Kind
	values []string
}

// NewColumn builds a column from raw values and infers its kind from the
// first sample values (all of them when sample is negative).
func NewColumn(name string, values []string, sample int) *Column {
	c := &Column{Name: name, values: values}
	c.Kind = inferKind(values, sample)
	return c
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	return len(c.values)
}

// IsNull reports whether row i holds no value.
func (c *Column) IsNull(i int) bool {
	return i < 0 || i >= len(c.values) || c.values[i] == ""
}

// Text returns the raw text at row i.
func (c *Column) Text(i int) (string, bool) {
	if c.IsNull(i) {
		return "", false
	}
	return c.values[i], true
}

// Float64 returns row i as a finite float. Integer text widens; anything
// that does not parse reads as null.
func (c *Column) Float64(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	return parseFloat(c.values[i])
}

// Int64 returns row i as an integer. Integral float text narrows; anything
// else reads as null.
func (c *Column) Int64(i int) (int64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	v := c.values[i]
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, true
	}
	f, ok := parseFloat(v)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Table is a column-oriented view of a delimited file.
type Table struct {
	columns []*Column
	index   map[string]int
	height  int
}

// New assembles a table from columns of equal length.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if i == 0 {
			t.height = c.Len()
		} else if c.Len() != t.height {
			return nil, eris.Errorf("table: column %q has %d rows, want %d", c.Name, c.Len(), t.height)
		}
		if _, dup := t.index[c.Name]; !dup {
			t.index[c.Name] = i
		}
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Height returns the number of data rows.
func (t *Table) Height() int {
	return t.height
}

// Column looks up a column by header name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Columns returns the columns in header order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Schema returns the name and inferred kind of every column.
func (t *Table) Schema() []Field {
	fields := make([]Field, len(t.columns))
	for i, c := range t.columns {
		fields[i] = Field{Name: c.Name, Kind: c.Kind}
	}
	return fields
}

// Read parses the delimited file at path into a Table. The first row is the
// header. A .zip path is read as a Darwin Core archive. Open and parse
// failures are returned as *IngestError.
func Read(ctx context.Context, path string, opts Options) (*Table, error) {
	f, err := openInput(path, opts.ArchiveMember)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	sample := opts.InferSchemaLength
	if sample == 0 {
		sample = DefaultInferSchemaLength
	}

	rowCh, errCh := StreamRows(ctx, f, StreamOptions{
		Delimiter:    opts.Delimiter,
		StrictQuotes: opts.StrictQuotes,
		Encoding:     opts.Encoding,
	})

	var (
		names  []string
		keep   []int
		values [][]string
		rows   int
		ragged int
	)
	for row := range rowCh {
		if names == nil {
			names, keep = selectColumns(row.Fields, opts.Columns)
			values = make([][]string, len(keep))
			continue
		}
		if len(row.Fields) != len(names) {
			ragged++
		}
		for j, src := range keep {
			var v string
			if src < len(row.Fields) {
				v = strings.TrimSpace(row.Fields[src])
			}
			values[j] = append(values[j], v)
		}
		rows++
	}
	if err := <-errCh; err != nil {
		ie := &IngestError{Path: path, Err: err}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			ie.Line = pe.Line
		}
		return nil, ie
	}
	if names == nil {
		return nil, &IngestError{Path: path, Err: errors.New("missing header row")}
	}

	columns := make([]*Column, len(keep))
	for j, src := range keep {
		columns[j] = NewColumn(names[src], values[j], sample)
	}
	t, err := New(columns...)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	if len(keep) == 0 {
		t.height = rows
	}

	zap.L().Debug("table: read file",
		zap.String("path", path),
		zap.Int("rows", rows),
		zap.Int("columns", len(names)),
		zap.Int("retained", len(keep)),
		zap.Int("ragged_rows", ragged),
	)

	return t, nil
}

// selectColumns cleans the header and returns the indices to retain.
func selectColumns(header []string, want []string) ([]string, []int) {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		names[i] = h
	}

	keep := make([]int, 0, len(names))
	if len(want) == 0 {
		for i := range names {
			keep = append(keep, i)
		}
		return names, keep
	}

	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[w] = true
	}
	for i, n := range names {
		if wanted[n] {
			keep = append(keep, i)
		}
	}
	return names, keep
}

func inferKind(values []string, sample int) Kind {
	kind := KindNull
	for i, v := range values {
		if sample >= 0 && i >= sample {
			break
		}
		if v == "" {
			continue
		}
		kind = widen(kind, kindOf(v))
		if kind == KindString {
			break
		}
	}
	return kind
}

func kindOf(v string) Kind {
	if strings.EqualFold(v, "true") || strings.EqualFold(v, "false") {
		return KindBool
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return KindInt64
	}
	if _, ok := parseFloat(v); ok {
		return KindFloat64
	}
	return KindString
}

func widen(a, b Kind) Kind {
	switch {
	case a == KindNull:
		return b
	case b == KindNull, a == b:
		return a
	case (a == KindInt64 && b == KindFloat64) || (a == KindFloat64 && b == KindInt64):
		return KindFloat64
	default:
		return KindString
	}
}

// parseFloat rejects NaN and infinities so numeric columns always hold finite values.
func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
