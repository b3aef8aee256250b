// Package remoteprofile implements engine.ProfileSink by broadcasting
// every profile sample to whatever observers are attached over a plain
// websocket - a push-based monitor for a long-running engine, not part
// of its execution semantics (see engine.ProfileSink's doc comment:
// "advisory only, nothing in the engine's behavior depends on whether a
// sink is attached").
//
// Grounded on the teacher's internal/network websocket server
// (WebSocketListen's Upgrader+http.Server setup, WebSocketBroadcast's
// locked Clients-map fan-out over WriteMessage), adapted from a
// Sentra-script-facing value keyed by string server/client IDs to a
// plain Go type internal/engine calls Push on directly - there is no
// script-level API surface here, so the ID bookkeeping and NewClients
// channel the teacher used to hand connections back to script code are
// unneeded.
package remoteprofile

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"sentra/internal/engine"
)

// Sink streams Profile samples to every attached websocket client as
// they arrive. The zero value is not usable; construct with Listen.
type Sink struct {
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

type sample struct {
	Fingerprint uint64 `json:"fingerprint"`
	Calls       int64  `json:"calls"`
	TotalNs     int64  `json:"total_elapsed_ns"`
}

// Listen starts an HTTP server at addr that upgrades every request to
// a websocket connection and registers it as a broadcast target.
// CheckOrigin is left permissive, matching WebSocketListen's own
// "allow all origins for now" - this is a local observability aid
// attached by the process running the engine, not a public service.
func Listen(addr string) (*Sink, error) {
	s := &Sink{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/profile", s.accept)
	s.server = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go s.server.Serve(ln)

	return s, nil
}

func (s *Sink) accept(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Drain and discard anything the observer sends; a closed read
	// loop is how gorilla/websocket notices the peer disconnected.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

func (s *Sink) drop(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Push implements engine.ProfileSink. A write error (the observer went
// away without a clean close handshake) drops that client the same way
// WebSocketBroadcast marks a client closed on write failure.
func (s *Sink) Push(fingerprint uint64, p engine.Profile) {
	msg, err := json.Marshal(sample{
		Fingerprint: fingerprint,
		Calls:       p.Calls,
		TotalNs:     p.TotalElapsedNs,
	})
	if err != nil {
		return
	}

	s.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.drop(c)
		}
	}
}

// Close stops accepting connections and closes every attached client.
func (s *Sink) Close() error {
	s.mu.Lock()
	for c := range s.clients {
		c.Close()
	}
	s.clients = nil
	s.mu.Unlock()
	return s.server.Close()
}
