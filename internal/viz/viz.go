// Package viz streams timestamped 3D primitives to a visualization viewer.
//
// A Sink is one recording session. Callers position the session on a
// timeline with SetTime and then log primitives under hierarchical entity
// paths such as "tigershark/42". Anything logged before the first SetTime
// is timeless.
package viz

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Sink accepts the primitives of one recording session.
type Sink interface {
	SetTime(ctx context.Context, timeline Timeline, value int64) error
	LogPoints(ctx context.Context, path string, points Points3D) error
	LogLineStrips(ctx context.Context, path string, strips LineStrips3D) error
	Close() error
}

// TimelineKind tells the viewer how to render timeline values.
type TimelineKind string

const (
	// TimelineTemporal values are Unix seconds.
	TimelineTemporal TimelineKind = "temporal"
	// TimelineSequence values are plain integers.
	TimelineSequence TimelineKind = "sequence"
)

// Timeline names an axis that logged data is positioned on.
type Timeline struct {
	Name string       `json:"name"`
	Kind TimelineKind `json:"kind"`
}

// NewTemporalTimeline returns a timeline whose values are Unix seconds.
func NewTemporalTimeline(name string) Timeline {
	return Timeline{Name: name, Kind: TimelineTemporal}
}

// Color is packed 0xRRGGBBAA.
type Color uint32

// ParseColor accepts RRGGBBAA or RRGGBB hex, optionally prefixed with # or 0x.
// Six-digit colors are opaque.
func ParseColor(s string) (Color, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	switch len(h) {
	case 6:
		h += "ff"
	case 8:
	default:
		return 0, eris.Errorf("viz: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, eris.Wrapf(err, "viz: invalid color %q", s)
	}
	return Color(v), nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// Points3D is a point cloud with per-point radius and color.
type Points3D struct {
	Positions [][3]float32 `json:"positions"`
	Radii     []float32    `json:"radii,omitempty"`
	Colors    []Color      `json:"colors,omitempty"`
}

// LineStrips3D is a set of polylines with per-strip radius and color.
type LineStrips3D struct {
	Strips [][][3]float32 `json:"strips"`
	Radii  []float32      `json:"radii,omitempty"`
	Colors []Color        `json:"colors,omitempty"`
}

// SinkError reports a failed sink operation.
type SinkError struct {
	Op   string
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("viz: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("viz: %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
