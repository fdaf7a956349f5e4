package sync

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"riftbound/pkg/logging"
)

// Authenticator turns a bearer token into a user id.
type Authenticator func(token string) (userID string, err error)

// Server accepts line-delimited JSON clients over TCP. A client may send
// {"type":"auth","token":"..."} to receive its private events.
type Server struct {
	Addr string
	Hub  *Hub
	Auth Authenticator
	Log  logging.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

func NewServer(addr string, hub *Hub, auth Authenticator, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	return &Server{Addr: addr, Hub: hub, Auth: auth, Log: log}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts on ln until Close is called. If Close already ran, ln is
// closed and Serve returns nil at once.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()
	s.Log.Info("tcp sync listening", map[string]any{"addr": ln.Addr().String()})

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Log.Warn("tcp accept failed", map[string]any{"error": err.Error()})
			continue
		}

		s.Hub.Add(conn)
		_, _ = conn.Write(s.Hub.welcomeMessage("tcp", ""))
		s.Log.Debug("tcp client connected", map[string]any{"remote": conn.RemoteAddr().String()})

		go s.handle(conn)
	}
}

type clientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type authReply struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handle(c net.Conn) {
	defer func() {
		s.Hub.Remove(c)
		s.Log.Debug("tcp client disconnected", map[string]any{"remote": c.RemoteAddr().String()})
	}()

	enc := json.NewEncoder(c)
	sc := bufio.NewScanner(c)
	for sc.Scan() {
		var msg clientMessage
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil || msg.Type != "auth" {
			continue
		}
		if s.Auth == nil {
			_ = enc.Encode(authReply{Type: "auth_error", Error: "auth not supported"})
			continue
		}
		uid, err := s.Auth(msg.Token)
		if err != nil {
			_ = enc.Encode(authReply{Type: "auth_error", Error: "invalid token"})
			continue
		}
		s.Hub.Identify(c, uid)
		_ = enc.Encode(authReply{Type: "auth_ok", UserID: uid})
	}
}

// Close stops accepting; connected clients are dropped by their readers.
// It may run before Serve has started.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
