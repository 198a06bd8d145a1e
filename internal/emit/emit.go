// Package emit logs occurrence point clouds and background layers to a viz.Sink.
package emit

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shark-globe/internal/globe"
	"github.com/sells-group/shark-globe/internal/occurrence"
	"github.com/sells-group/shark-globe/internal/viz"
)

// Style is the per-dataset look of emitted points.
type Style struct {
	Color  viz.Color
	Radius float32
}

// Dataset names one species' occurrences. Name is the entity path prefix.
type Dataset struct {
	Name  string
	Style Style
}

// Options controls emission.
type Options struct {
	// PointRadius is the sphere radius points are projected at.
	PointRadius float64
	// SkipUnknownTime drops records whose date was invalid instead of
	// placing them at the UnknownTime timeline position.
	SkipUnknownTime bool
	// ContinueOnError logs failed records and keeps going instead of
	// returning the first sink error.
	ContinueOnError bool
}

// Result counts what happened to one dataset.
type Result struct {
	Emitted            int
	SkippedUnknownTime int
	Failed             int
}

// Emitter writes datasets to a sink on one shared timeline.
type Emitter struct {
	sink     viz.Sink
	timeline viz.Timeline
	opts     Options
}

// New creates an Emitter. Every dataset it emits shares timeline.
func New(sink viz.Sink, timeline viz.Timeline, opts Options) *Emitter {
	if opts.PointRadius <= 0 {
		opts.PointRadius = globe.EarthRadius * globe.DefaultAltitudeFactor
	}
	return &Emitter{sink: sink, timeline: timeline, opts: opts}
}

// Timeline returns the timeline shared by every dataset.
func (e *Emitter) Timeline() viz.Timeline {
	return e.timeline
}

// EntityPath is the per-record path "{dataset}/{index}".
func EntityPath(dataset string, index int) string {
	return dataset + "/" + strconv.Itoa(index)
}

// EmitDataset logs one point per occurrence, in order, positioned on the
// shared timeline at its EpochTime. The index in the entity path is the
// record's position in occs, so skipped records leave gaps.
func (e *Emitter) EmitDataset(ctx context.Context, ds Dataset, occs []occurrence.Occurrence) (Result, error) {
	var res Result
	for i, occ := range occs {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "emit: cancelled")
		}
		if e.opts.SkipUnknownTime && !occ.HasKnownTime() {
			res.SkippedUnknownTime++
			continue
		}

		path := EntityPath(ds.Name, i)
		if err := e.emitOne(ctx, path, ds.Style, occ); err != nil {
			if !e.opts.ContinueOnError {
				return res, err
			}
			res.Failed++
			zap.L().Warn("emit: skipping record", zap.String("path", path), zap.Error(err))
			continue
		}
		res.Emitted++
	}
	return res, nil
}

func (e *Emitter) emitOne(ctx context.Context, path string, style Style, occ occurrence.Occurrence) error {
	pos := globe.Project(occ.Latitude, occ.Longitude, e.opts.PointRadius)

	if err := e.sink.SetTime(ctx, e.timeline, occ.EpochTime); err != nil {
		return &viz.SinkError{Op: "set_time", Path: path, Err: err}
	}
	points := viz.Points3D{
		Positions: [][3]float32{pos.Float32()},
		Radii:     []float32{style.Radius},
		Colors:    []viz.Color{style.Color},
	}
	if err := e.sink.LogPoints(ctx, path, points); err != nil {
		return &viz.SinkError{Op: "log", Path: path, Err: err}
	}
	return nil
}

// EmitLayer logs a background layer as timeless line strips under its name.
func (e *Emitter) EmitLayer(ctx context.Context, layer *globe.Layer, style Style, outline globe.OutlineOptions) (int, error) {
	strips := globe.OutlineStrips(layer.Polygons, outline)
	out := viz.LineStrips3D{
		Strips: make([][][3]float32, len(strips)),
		Radii:  []float32{style.Radius},
		Colors: []viz.Color{style.Color},
	}
	for i, strip := range strips {
		pts := make([][3]float32, len(strip))
		for j, v := range strip {
			pts[j] = v.Float32()
		}
		out.Strips[i] = pts
	}
	if err := e.sink.LogLineStrips(ctx, layer.Name, out); err != nil {
		return 0, &viz.SinkError{Op: "log", Path: layer.Name, Err: err}
	}
	return len(strips), nil
}
