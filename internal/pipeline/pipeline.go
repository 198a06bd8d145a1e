// Package pipeline drives one run: background layers first, then every
// configured occurrence dataset, all into a single sink session.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shark-globe/internal/config"
	"github.com/sells-group/shark-globe/internal/emit"
	"github.com/sells-group/shark-globe/internal/globe"
	"github.com/sells-group/shark-globe/internal/occurrence"
	"github.com/sells-group/shark-globe/internal/table"
	"github.com/sells-group/shark-globe/internal/viz"
)

// PhaseStatus is the outcome of one phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult records one layer or dataset phase of a run.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// LayerReport summarizes one emitted background layer.
type LayerReport struct {
	Name     string `json:"name"`
	Polygons int    `json:"polygons"`
	Strips   int    `json:"strips"`
	Skipped  int    `json:"skipped"`
}

// DatasetReport summarizes one emitted occurrence dataset.
type DatasetReport struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// Rows is the number of data rows read from the file.
	Rows int `json:"rows"`
	// Dropped counts rows excluded for a missing coordinate.
	Dropped int `json:"dropped"`
	// UnknownTime counts retained rows whose date was invalid.
	UnknownTime int `json:"unknown_time"`
	emit.Result
}

// Report is the outcome of a run.
type Report struct {
	Layers   []LayerReport   `json:"layers"`
	Datasets []DatasetReport `json:"datasets"`
	Phases   []PhaseResult   `json:"phases"`
}

// Pipeline emits the configured layers and datasets to one sink.
type Pipeline struct {
	cfg  *config.Config
	sink viz.Sink
}

// New creates a Pipeline. The caller owns sink and closes it after Run.
func New(cfg *config.Config, sink viz.Sink) *Pipeline {
	return &Pipeline{cfg: cfg, sink: sink}
}

// Run emits every layer, then every dataset in configured order. Ingest and
// layer failures abort the run; per-record sink failures follow sink.on_error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	trackPhase := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, err := fn()
		pr := PhaseResult{Name: name, Duration: time.Since(start).Milliseconds(), Metadata: meta}
		if err != nil {
			pr.Status = PhaseStatusFailed
			pr.Error = err.Error()
			zap.L().Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", pr.Duration),
				zap.Error(err),
			)
		} else {
			pr.Status = PhaseStatusComplete
			zap.L().Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", pr.Duration),
			)
		}
		report.Phases = append(report.Phases, pr)
		return err
	}

	emitter := emit.New(p.sink, viz.NewTemporalTimeline(p.cfg.Timeline.Name), emit.Options{
		PointRadius:     p.cfg.Globe.Radius * p.cfg.Globe.PointAltitudeFactor,
		SkipUnknownTime: p.cfg.Emit.SkipUnknownTime,
		ContinueOnError: p.cfg.Sink.OnError == config.OnErrorSkip,
	})

	// Layers are timeless, so they go out before the first SetTime.
	for _, lc := range p.cfg.Layers {
		err := trackPhase("layer_"+lc.Name, func() (map[string]any, error) {
			lr, err := p.emitLayer(ctx, emitter, lc)
			if err != nil {
				return nil, err
			}
			report.Layers = append(report.Layers, lr)
			return map[string]any{"polygons": lr.Polygons, "strips": lr.Strips}, nil
		})
		if err != nil {
			return report, err
		}
	}

	for _, dc := range p.cfg.Datasets {
		err := trackPhase("dataset_"+dc.Name, func() (map[string]any, error) {
			dr, err := p.emitDataset(ctx, emitter, dc)
			report.Datasets = append(report.Datasets, dr)
			if err != nil {
				return nil, err
			}
			return map[string]any{"rows": dr.Rows, "emitted": dr.Emitted}, nil
		})
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (p *Pipeline) emitLayer(ctx context.Context, emitter *emit.Emitter, lc config.LayerConfig) (LayerReport, error) {
	color, err := viz.ParseColor(lc.Color)
	if err != nil {
		return LayerReport{}, eris.Wrapf(err, "pipeline: layer %s", lc.Name)
	}
	layer, err := globe.LoadLayer(lc.Name, lc.Path)
	if err != nil {
		return LayerReport{}, eris.Wrapf(err, "pipeline: layer %s", lc.Name)
	}

	strips, err := emitter.EmitLayer(ctx, layer, emit.Style{Color: color, Radius: float32(lc.Radius)}, OutlineOptions(p.cfg.Globe))
	if err != nil {
		return LayerReport{}, err
	}
	return LayerReport{
		Name:     lc.Name,
		Polygons: layer.Polygons.NumPolygons(),
		Strips:   strips,
		Skipped:  layer.Skipped,
	}, nil
}

func (p *Pipeline) emitDataset(ctx context.Context, emitter *emit.Emitter, dc config.DatasetConfig) (DatasetReport, error) {
	dr := DatasetReport{Name: dc.Name, Path: dc.Path}
	log := zap.L().With(zap.String("dataset", dc.Name), zap.String("path", dc.Path))

	color, err := viz.ParseColor(dc.Color)
	if err != nil {
		return dr, eris.Wrapf(err, "pipeline: dataset %s", dc.Name)
	}

	batch, err := LoadDataset(ctx, dc.Path, p.cfg.Ingest)
	if err != nil {
		return dr, err
	}
	valid := batch.Valid()
	dr.Rows = len(batch.Occurrences)
	dr.Dropped = dr.Rows - len(valid)
	for _, o := range valid {
		if !o.HasKnownTime() {
			dr.UnknownTime++
		}
	}
	log.Info("pipeline: loaded occurrences",
		zap.Int("rows", dr.Rows),
		zap.Int("occurrences", len(valid)),
		zap.Int("dropped", dr.Dropped),
		zap.Int("unknown_time", dr.UnknownTime),
	)

	res, err := emitter.EmitDataset(ctx, emit.Dataset{
		Name:  dc.Name,
		Style: emit.Style{Color: color, Radius: float32(dc.Radius)},
	}, valid)
	dr.Result = res
	if err != nil {
		return dr, err
	}

	log.Info("pipeline: emitted dataset",
		zap.Int("emitted", res.Emitted),
		zap.Int("skipped_unknown_time", res.SkippedUnknownTime),
		zap.Int("failed", res.Failed),
	)
	return dr, nil
}

// LoadDataset reads the occurrence columns of the file at path and
// materializes them. Filtering is left to the caller via Batch.Valid.
func LoadDataset(ctx context.Context, path string, ic config.IngestConfig) (occurrence.Batch, error) {
	opts, err := TableOptions(ic)
	if err != nil {
		return occurrence.Batch{}, err
	}
	opts.Columns = occurrence.Columns

	tbl, err := table.Read(ctx, path, opts)
	if err != nil {
		return occurrence.Batch{}, err
	}
	return occurrence.Materialize(ctx, tbl)
}

// TableOptions converts ingest configuration into reader options.
func TableOptions(ic config.IngestConfig) (table.Options, error) {
	delim, err := ic.DelimiterRune()
	if err != nil {
		return table.Options{}, err
	}
	return table.Options{
		Delimiter:         delim,
		StrictQuotes:      ic.StrictQuotes,
		Encoding:          ic.Encoding,
		InferSchemaLength: ic.InferSchemaLength,
		ArchiveMember:     ic.ArchiveMember,
	}, nil
}

// OutlineOptions converts globe configuration into layer outline options.
func OutlineOptions(gc config.GlobeConfig) globe.OutlineOptions {
	return globe.OutlineOptions{
		Radius:     gc.Radius,
		MaxSegment: gc.MaxSubdivisionLength,
		Depth:      gc.SubdivisionDepth,
	}
}

// SinkOptions converts sink configuration into viz.Open options.
func SinkOptions(sc config.SinkConfig) viz.Options {
	return viz.Options{
		Driver:        sc.Driver,
		URL:           sc.URL,
		Path:          sc.Path,
		ApplicationID: sc.ApplicationID,
		DialTimeout:   time.Duration(sc.DialTimeoutSecs) * time.Second,
		WriteTimeout:  time.Duration(sc.WriteTimeoutSecs) * time.Second,
		MaxRate:       sc.MaxRate,
	}
}
