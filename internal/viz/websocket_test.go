package viz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viewer is a fake visualization endpoint that collects every frame.
type viewer struct {
	mu       sync.Mutex
	messages []Message
	done     chan struct{}
}

func newViewer(t *testing.T) (*viewer, string) {
	t.Helper()
	v := &viewer{done: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		defer close(v.done)
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			v.mu.Lock()
			v.messages = append(v.messages, msg)
			v.mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)

	return v, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (v *viewer) wait(t *testing.T) []Message {
	t.Helper()
	select {
	case <-v.done:
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not see the connection close")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.messages
}

func TestWebsocketSink_StreamsSession(t *testing.T) {
	v, url := newViewer(t)
	ctx := context.Background()

	sink, err := DialWebsocket(ctx, WebsocketOptions{
		URL:           url,
		ApplicationID: "earth_example",
		DialTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
	})
	require.NoError(t, err)

	tl := NewTemporalTimeline("Shark Sightings")
	require.NoError(t, sink.SetTime(ctx, tl, 0))
	require.NoError(t, sink.LogPoints(ctx, "greatwhiteshark/0", Points3D{
		Positions: [][3]float32{{1, 2, 3}},
		Colors:    []Color{0xFFFFFFFF},
	}))
	require.NoError(t, sink.Close())

	msgs := v.wait(t)
	require.Len(t, msgs, 4)
	assert.Equal(t, MessageOpen, msgs[0].Type)
	assert.Equal(t, "earth_example", msgs[0].ApplicationID)
	assert.Equal(t, MessageSetTime, msgs[1].Type)
	assert.Equal(t, "greatwhiteshark/0", msgs[2].EntityPath)
	assert.Equal(t, MessageClose, msgs[3].Type)
	for _, m := range msgs {
		assert.Equal(t, sink.Session(), m.Session)
	}
}

func TestWebsocketSink_CancelledContext(t *testing.T) {
	_, url := newViewer(t)
	sink, err := DialWebsocket(context.Background(), WebsocketOptions{URL: url})
	require.NoError(t, err)
	defer sink.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.LogPoints(ctx, "a/0", Points3D{}), context.Canceled)
}

func TestOpen_WebsocketConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := Open(context.Background(), Options{Driver: DriverWebsocket, URL: url, DialTimeout: time.Second})
	var se *SinkError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "connect", se.Op)
}
