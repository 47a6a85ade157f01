// Package status exposes a read-only diagnostics view of the motion
// queue over HTTP: a JSON snapshot endpoint and a websocket feed pushing
// snapshots to connected clients. It never writes to the queue; every
// observation is an atomic read of host-local state.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/huleg/beagleg/pkg/log"
	"github.com/huleg/beagleg/pkg/motion"
)

// Source is anything that can report a queue snapshot.
type Source interface {
	Snapshot() motion.QueueSnapshot
}

// Config holds server configuration.
type Config struct {
	// Addr is the HTTP address to listen on (e.g., ":8107").
	Addr string

	// Source supplies queue snapshots.
	Source Source

	// FeedInterval is the push period of the websocket feed
	// (default: 500ms).
	FeedInterval time.Duration
}

// Server is the diagnostics HTTP/websocket server.
type Server struct {
	src      Source
	addr     string
	interval time.Duration
	logger   *log.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	clientMu sync.Mutex
	clients  map[int64]*wsClient
	nextID   int64

	stop     chan struct{}
	stopOnce sync.Once
}

// wsClient is one websocket feed subscriber.
type wsClient struct {
	id   int64
	conn *websocket.Conn
	send chan motion.QueueSnapshot
}

// New creates a diagnostics server.
func New(cfg Config) *Server {
	interval := cfg.FeedInterval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}
	return &Server{
		src:      cfg.Source,
		addr:     cfg.Addr,
		interval: interval,
		logger:   log.GetLogger("status"),
		clients:  make(map[int64]*wsClient),
		stop:     make(chan struct{}),
	}
}

// Handler returns the HTTP handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/queue/status", s.handleStatus)
	mux.HandleFunc("/queue/feed", s.handleFeed)
	return mux
}

// Start begins serving and blocks until Stop or a listen error.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	s.logger.Info("queue status server on %s", s.addr)
	go s.broadcastLoop()
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and disconnects feed clients.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// handleStatus serves one JSON snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.src.Snapshot())
}

// handleFeed upgrades to a websocket and streams snapshots until the
// client disconnects or the server stops.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan motion.QueueSnapshot, 4),
	}

	s.clientMu.Lock()
	s.nextID++
	client.id = s.nextID
	s.clients[client.id] = client
	s.clientMu.Unlock()
	s.logger.Debug("feed client %d connected", client.id)

	// Push an immediate snapshot so clients need not wait a full tick.
	client.send <- s.src.Snapshot()

	go s.writePump(client)
	s.readPump(client) // blocks until the connection closes
}

// readPump drains (and discards) client messages to detect disconnects.
func (s *Server) readPump(client *wsClient) {
	defer s.dropClient(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump serializes snapshots to one client.
func (s *Server) writePump(client *wsClient) {
	for {
		select {
		case snap, ok := <-client.send:
			if !ok {
				return
			}
			if err := client.conn.WriteJSON(snap); err != nil {
				return
			}
		case <-s.stop:
			return
		}
	}
}

// dropClient unregisters a client and closes its connection.
func (s *Server) dropClient(client *wsClient) {
	s.clientMu.Lock()
	if _, ok := s.clients[client.id]; ok {
		delete(s.clients, client.id)
		close(client.send)
	}
	s.clientMu.Unlock()
	client.conn.Close()
	s.logger.Debug("feed client %d disconnected", client.id)
}

// broadcastLoop fans snapshots out to all feed clients.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			snap := s.src.Snapshot()
			s.clientMu.Lock()
			for _, client := range s.clients {
				select {
				case client.send <- snap:
				default: // slow client; skip this tick
				}
			}
			s.clientMu.Unlock()
		}
	}
}
