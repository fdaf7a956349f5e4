package sync

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"riftbound/pkg/logging"
)

const writeTimeout = 2 * time.Second

// Hub fans events out to TCP and WebSocket clients. Each client may be
// bound to a user id; private events only reach that user's clients.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]string
	wsClients map[*websocket.Conn]string
	log       logging.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.NewNop()
	}
	return &Hub{
		clients:   make(map[net.Conn]string),
		wsClients: make(map[*websocket.Conn]string),
		log:       log,
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = ""
	h.mu.Unlock()
}

// Identify binds a connected TCP client to userID.
func (h *Hub) Identify(conn net.Conn, userID string) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		h.clients[conn] = userID
	}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn, userID string) {
	h.mu.Lock()
	h.wsClients[ws] = userID
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish routes ev by its audience.
func (h *Hub) Publish(ev Event) {
	if uid := ev.Audience(); uid != "" {
		h.SendToUser(uid, ev)
		return
	}
	h.BroadcastJSON(ev)
}

func (h *Hub) BroadcastJSON(v any) {
	h.deliver(v, func(string) bool { return true })
}

func (h *Hub) SendToUser(userID string, v any) {
	h.deliver(v, func(uid string) bool { return uid == userID })
}

func (h *Hub) deliver(v any, match func(userID string) bool) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal event failed", err, nil)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, uid := range h.clients {
		if !match(uid) {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		w := bufio.NewWriter(c)
		_, err := w.Write(b)
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			h.log.Debug("dropping tcp client", map[string]any{"remote": c.RemoteAddr().String()})
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws, uid := range h.wsClients {
		if !match(uid) {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug("dropping ws client", map[string]any{"remote": ws.RemoteAddr().String()})
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) + len(h.wsClients)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
	UserID    string `json:"user_id,omitempty"`
}

func (h *Hub) welcomeMessage(transport, userID string) []byte {
	b, _ := json.Marshal(welcome{Type: "welcome", Transport: transport, Clients: h.Count(), UserID: userID})
	return append(b, '\n')
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	for ws := range h.wsClients {
		_ = ws.Close()
		delete(h.wsClients, ws)
	}
}
