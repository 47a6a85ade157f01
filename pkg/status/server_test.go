package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/huleg/beagleg/pkg/motion"
)

// fakeSource serves canned snapshots and counts how often it is read.
type fakeSource struct {
	reads atomic.Int64
}

func (f *fakeSource) Snapshot() motion.QueueSnapshot {
	f.reads.Add(1)
	return motion.QueueSnapshot{
		Lifecycle:  "running",
		Cursor:     3,
		SlotStates: []uint8{1, 1, 2, 0},
		Enqueued:   7,
	}
}

func newTestServer(interval time.Duration) (*Server, *fakeSource) {
	src := &fakeSource{}
	return New(Config{Addr: ":0", Source: src, FeedInterval: interval}), src
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(time.Hour)

	req := httptest.NewRequest("GET", "/queue/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var snap motion.QueueSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.Lifecycle != "running" || snap.Cursor != 3 || snap.Enqueued != 7 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.SlotStates) != 4 || snap.SlotStates[2] != 2 {
		t.Errorf("slot states = %v", snap.SlotStates)
	}
}

func TestStatusEndpointRejectsPost(t *testing.T) {
	s, _ := newTestServer(time.Hour)

	req := httptest.NewRequest("POST", "/queue/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestFeedDeliversSnapshots(t *testing.T) {
	s, _ := newTestServer(10 * time.Millisecond)
	go s.broadcastLoop()
	defer s.Stop()

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/queue/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	// The first message is the immediate snapshot, later ones come from
	// the broadcast ticker.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap motion.QueueSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("reading feed message %d: %v", i, err)
		}
		if snap.Lifecycle != "running" || snap.Enqueued != 7 {
			t.Errorf("feed message %d = %+v", i, snap)
		}
	}
}

func TestFeedClientDisconnectUnregisters(t *testing.T) {
	s, _ := newTestServer(10 * time.Millisecond)
	go s.broadcastLoop()
	defer s.Stop()

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/queue/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.clientMu.Lock()
		n := len(s.clients)
		s.clientMu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("client still registered after disconnect")
}
