package realtime

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeConn records deadline and handler calls; reads fail immediately, as
// they would on a dead peer.
type fakeConn struct {
	deadlines   []time.Time
	pongHandler func(string) error
	closed      bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("connection gone")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.deadlines = append(f.deadlines, t)
	return nil
}

func (f *fakeConn) SetPongHandler(h func(appData string) error) { f.pongHandler = h }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestReadPumpSetsAndRefreshesReadDeadline(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := &fakeConn{}
	client := &Client{Topics: []string{MessagesTopic("u1")}, Send: make(chan []byte, 1), conn: conn}
	hub.Register(client)

	hub.readPump(client)

	if len(conn.deadlines) != 1 {
		t.Fatalf("expected initial read deadline, got %d deadline calls", len(conn.deadlines))
	}
	if !conn.deadlines[0].After(time.Now()) {
		t.Error("initial read deadline must be in the future")
	}
	if conn.pongHandler == nil {
		t.Fatal("pong handler not installed")
	}
	if !conn.closed {
		t.Error("connection must be closed when the read loop exits")
	}
	if got := hub.Subscribers(MessagesTopic("u1")); got != 0 {
		t.Errorf("client must be unregistered after the read loop exits, %d subscribers left", got)
	}

	// Each pong pushes the deadline out again.
	if err := conn.pongHandler(""); err != nil {
		t.Fatalf("pong handler: %v", err)
	}
	if len(conn.deadlines) != 2 {
		t.Fatalf("expected pong to refresh the read deadline, got %d deadline calls", len(conn.deadlines))
	}
	if !conn.deadlines[1].After(conn.deadlines[0].Add(-time.Second)) {
		t.Error("refreshed deadline must not regress")
	}
}
