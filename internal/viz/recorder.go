package viz

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sink. It backs dry runs and tests.
type Recorder struct {
	mu       sync.Mutex
	session  string
	messages []Message
	closed   bool

	// FailOn, when set, is consulted before each message is recorded and
	// its error is returned instead.
	FailOn func(Message) error
}

// NewRecorder returns an empty recorder for the named session.
func NewRecorder(session string) *Recorder {
	return &Recorder{session: session}
}

func (r *Recorder) SetTime(_ context.Context, timeline Timeline, value int64) error {
	return r.record(setTimeMessage(r.session, timeline, value))
}

func (r *Recorder) LogPoints(_ context.Context, path string, points Points3D) error {
	return r.record(pointsMessage(r.session, path, points))
}

func (r *Recorder) LogLineStrips(_ context.Context, path string, strips LineStrips3D) error {
	return r.record(stripsMessage(r.session, path, strips))
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Recorder) record(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOn != nil {
		if err := r.FailOn(msg); err != nil {
			return err
		}
	}
	r.messages = append(r.messages, msg)
	return nil
}
