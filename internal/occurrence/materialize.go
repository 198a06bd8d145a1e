package occurrence

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/shark-globe/internal/table"
)

// ctxCheckEvery is how many rows a filler processes between cancellation checks.
const ctxCheckEvery = 4096

// Batch is the materialized form of one input file, before filtering.
type Batch struct {
	Occurrences []Occurrence
	// Invalid holds the distinct, ascending row positions lacking a coordinate.
	Invalid []int
}

// Valid returns the occurrences with both coordinates, in input order.
func (b Batch) Valid() []Occurrence {
	return Retain(b.Occurrences, b.Invalid)
}

// ColumnFiller writes one field of every row and returns the rows it found
// unusable. Fillers passed to the same Transpose must write disjoint fields.
type ColumnFiller func(ctx context.Context, rows []Occurrence) ([]int, error)

// Transpose builds n default rows and runs every filler over them
// concurrently. All fillers finish before the flagged rows are merged.
func Transpose(ctx context.Context, n int, fillers ...ColumnFiller) (Batch, error) {
	rows := make([]Occurrence, n)
	flagged := make([][]int, len(fillers))

	g, gctx := errgroup.WithContext(ctx)
	for i, fill := range fillers {
		g.Go(func() error {
			bad, err := fill(gctx, rows)
			if err != nil {
				return err
			}
			flagged[i] = bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, eris.Wrap(err, "occurrence: transpose")
	}

	var invalid []int
	for _, bad := range flagged {
		invalid = append(invalid, bad...)
	}
	return Batch{Occurrences: rows, Invalid: Dedupe(invalid)}, nil
}

// Materialize converts the GBIF coordinate and date columns of tbl into one
// Occurrence per row. A null or absent coordinate flags the row invalid; a
// null or absent date part takes its default. EpochTime is set on every row.
func Materialize(ctx context.Context, tbl *table.Table) (Batch, error) {
	n := tbl.Height()

	batch, err := Transpose(ctx, n,
		coordinateFiller(tbl, ColumnLatitude, func(o *Occurrence, v float64) { o.Latitude = v }),
		coordinateFiller(tbl, ColumnLongitude, func(o *Occurrence, v float64) { o.Longitude = v }),
		datePartFiller(tbl, ColumnYear, DefaultYear, func(o *Occurrence, v int64) { o.Year = v }),
		datePartFiller(tbl, ColumnMonth, DefaultMonth, func(o *Occurrence, v int64) { o.Month = v }),
		datePartFiller(tbl, ColumnDay, DefaultDay, func(o *Occurrence, v int64) { o.Day = v }),
	)
	if err != nil {
		return Batch{}, err
	}

	for i := range batch.Occurrences {
		o := &batch.Occurrences[i]
		o.EpochTime = Epoch(o.Year, o.Month, o.Day)
	}
	return batch, nil
}

func coordinateFiller(tbl *table.Table, name string, set func(*Occurrence, float64)) ColumnFiller {
	col, ok := tbl.Column(name)
	return func(ctx context.Context, rows []Occurrence) ([]int, error) {
		if !ok {
			zap.L().Warn("occurrence: coordinate column missing, every row is invalid",
				zap.String("column", name), zap.Int("rows", len(rows)))
			all := make([]int, len(rows))
			for i := range all {
				all[i] = i
			}
			return all, nil
		}

		var invalid []int
		for i := range rows {
			if i%ctxCheckEvery == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v, present := col.Float64(i)
			if !present {
				invalid = append(invalid, i)
				continue
			}
			set(&rows[i], v)
		}
		return invalid, nil
	}
}

func datePartFiller(tbl *table.Table, name string, def int64, set func(*Occurrence, int64)) ColumnFiller {
	col, ok := tbl.Column(name)
	return func(ctx context.Context, rows []Occurrence) ([]int, error) {
		for i := range rows {
			if i%ctxCheckEvery == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v := def
			if ok {
				if n, present := col.Int64(i); present {
					v = n
				}
			}
			set(&rows[i], v)
		}
		return nil, nil
	}
}
