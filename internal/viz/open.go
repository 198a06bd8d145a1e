package viz

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Sink drivers.
const (
	DriverWebsocket = "websocket"
	DriverSQLite    = "sqlite"
	DriverMemory    = "memory"
)

// Options selects and configures a sink.
type Options struct {
	Driver        string
	URL           string
	Path          string
	ApplicationID string
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	// MaxRate caps logged primitives per second. Zero means unlimited.
	MaxRate float64
}

// Open connects the configured sink. Failures are returned as *SinkError
// with Op "connect".
func Open(ctx context.Context, opts Options) (Sink, error) {
	var (
		sink Sink
		err  error
	)
	switch opts.Driver {
	case DriverWebsocket, "":
		sink, err = DialWebsocket(ctx, WebsocketOptions{
			URL:           opts.URL,
			ApplicationID: opts.ApplicationID,
			DialTimeout:   opts.DialTimeout,
			WriteTimeout:  opts.WriteTimeout,
		})
	case DriverSQLite:
		sink, err = OpenSQLite(ctx, opts.Path, opts.ApplicationID)
	case DriverMemory:
		sink = NewRecorder(opts.ApplicationID)
	default:
		err = eris.Errorf("viz: unknown sink driver %q", opts.Driver)
	}
	if err != nil {
		return nil, &SinkError{Op: "connect", Err: err}
	}

	if opts.MaxRate > 0 {
		sink = Throttle(sink, rate.Limit(opts.MaxRate), 1)
	}
	return sink, nil
}

// throttled delays logged primitives to at most the limiter's rate.
type throttled struct {
	Sink
	limiter *rate.Limiter
}

// Throttle wraps s so LogPoints and LogLineStrips wait on a token bucket.
func Throttle(s Sink, limit rate.Limit, burst int) Sink {
	if burst < 1 {
		burst = 1
	}
	return &throttled{Sink: s, limiter: rate.NewLimiter(limit, burst)}
}

func (t *throttled) LogPoints(ctx context.Context, path string, points Points3D) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "viz: throttle")
	}
	return t.Sink.LogPoints(ctx, path, points)
}

func (t *throttled) LogLineStrips(ctx context.Context, path string, strips LineStrips3D) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "viz: throttle")
	}
	return t.Sink.LogLineStrips(ctx, path, strips)
}
