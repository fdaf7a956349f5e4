package sync

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(token string) (string, error) {
	if strings.HasPrefix(token, "tok-") {
		return strings.TrimPrefix(token, "tok-"), nil
	}
	return "", errors.New("bad token")
}

type tcpClient struct {
	t    *testing.T
	conn net.Conn
	sc   *bufio.Scanner
}

func dial(t *testing.T, addr string) *tcpClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	c := &tcpClient{t: t, conn: conn, sc: bufio.NewScanner(conn)}
	assert.Equal(t, "welcome", c.read()["type"])
	return c
}

func (c *tcpClient) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.True(c.t, c.sc.Scan(), "expected a line")
	out := map[string]any{}
	require.NoError(c.t, json.Unmarshal(c.sc.Bytes(), &out))
	return out
}

func (c *tcpClient) send(v any) {
	c.t.Helper()
	b, err := json.Marshal(v)
	require.NoError(c.t, err)
	_, err = c.conn.Write(append(b, '\n'))
	require.NoError(c.t, err)
}

func startServer(t *testing.T) (*Hub, *Server, string) {
	t.Helper()
	hub := NewHub(nil)
	srv := NewServer("", hub, fakeAuth, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Close()
		hub.Close()
		assert.NoError(t, <-done)
	})
	return hub, srv, ln.Addr().String()
}

func TestPrivateEventsReachOnlyTheirUser(t *testing.T) {
	hub, _, addr := startServer(t)

	alice := dial(t, addr)
	alice.send(map[string]string{"type": "auth", "token": "tok-alice"})
	ok := alice.read()
	assert.Equal(t, "auth_ok", ok["type"])
	assert.Equal(t, "alice", ok["user_id"])

	bob := dial(t, addr)
	bob.send(map[string]string{"type": "auth", "token": "nope"})
	assert.Equal(t, "auth_error", bob.read()["type"])

	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(DeckEvent{Type: EventDeckSaved, UserID: "alice", DeckID: 7})
	hub.Publish(DeckEvent{Type: EventDeckPublished, UserID: "alice", DeckID: 7})

	got := alice.read()
	assert.Equal(t, EventDeckSaved, got["type"])
	assert.Equal(t, EventDeckPublished, alice.read()["type"])

	// bob never sees the private save
	assert.Equal(t, EventDeckPublished, bob.read()["type"])
}

func TestCollectionEventsArePrivate(t *testing.T) {
	assert.Equal(t, "u1", CollectionEvent{UserID: "u1"}.Audience())
	assert.Equal(t, "u1", DeckEvent{Type: EventDeckDeleted, UserID: "u1"}.Audience())
	assert.Equal(t, "", DeckEvent{Type: EventDeckLiked, UserID: "u1"}.Audience())
}

func TestServerCloseStopsServe(t *testing.T) {
	srv := NewServer("", NewHub(nil), fakeAuth, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	require.NoError(t, srv.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestCloseBeforeServe(t *testing.T) {
	srv := NewServer("", NewHub(nil), fakeAuth, nil)
	require.NoError(t, srv.Close())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, srv.Serve(ln))

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)
	assert.NoError(t, srv.Close())
}

func TestWebSocketSubscription(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	t.Cleanup(hub.Close)

	r := gin.New()
	r.GET("/ws", WSHandler(hub, fakeAuth))
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	resp, err := http.Get(ts.URL + "/ws?token=bad")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?token=tok-carol", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	readJSON := func() map[string]any {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		out := map[string]any{}
		require.NoError(t, json.Unmarshal(msg, &out))
		return out
	}

	hello := readJSON()
	assert.Equal(t, "welcome", hello["type"])
	assert.Equal(t, "carol", hello["user_id"])

	hub.Publish(CollectionEvent{Type: EventCollectionUpdate, UserID: "dave", CardID: 1})
	hub.Publish(CollectionEvent{Type: EventWishlistUpdate, UserID: "carol", CardID: 2, InWishlist: true})

	got := readJSON()
	assert.Equal(t, EventWishlistUpdate, got["type"])
	assert.Equal(t, float64(2), got["card_id"])
}
