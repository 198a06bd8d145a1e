package viz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WebsocketOptions configures a live viewer connection.
type WebsocketOptions struct {
	URL           string
	ApplicationID string
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
}

// WebsocketSink streams JSON messages to a viewer over one websocket
// connection. It is not safe for concurrent use.
type WebsocketSink struct {
	conn         *websocket.Conn
	session      string
	writeTimeout time.Duration
}

// DialWebsocket connects to the viewer and opens a recording session.
func DialWebsocket(ctx context.Context, opts WebsocketOptions) (*WebsocketSink, error) {
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "viz: dial %s", opts.URL)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s := &WebsocketSink{
		conn:         conn,
		session:      uuid.New().String(),
		writeTimeout: opts.WriteTimeout,
	}
	if err := s.send(Message{Type: MessageOpen, Session: s.session, ApplicationID: opts.ApplicationID}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	zap.L().Info("viz: connected",
		zap.String("url", opts.URL),
		zap.String("application_id", opts.ApplicationID),
		zap.String("session", s.session),
	)
	return s, nil
}

// Session returns the recording session id.
func (s *WebsocketSink) Session() string {
	return s.session
}

func (s *WebsocketSink) SetTime(ctx context.Context, timeline Timeline, value int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(setTimeMessage(s.session, timeline, value))
}

func (s *WebsocketSink) LogPoints(ctx context.Context, path string, points Points3D) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(pointsMessage(s.session, path, points))
}

func (s *WebsocketSink) LogLineStrips(ctx context.Context, path string, strips LineStrips3D) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(stripsMessage(s.session, path, strips))
}

// Close ends the session and closes the connection.
func (s *WebsocketSink) Close() error {
	_ = s.send(Message{Type: MessageClose, Session: s.session})
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return eris.Wrap(s.conn.Close(), "viz: close websocket")
}

func (s *WebsocketSink) send(msg Message) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return eris.Wrap(err, "viz: set write deadline")
		}
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return eris.Wrapf(err, "viz: write %s", msg.Type)
	}
	return nil
}
