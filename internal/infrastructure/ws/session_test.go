package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/core/service"
	"github.com/relaychat/relay-api/internal/infrastructure/hub"
)

type chatServer struct {
	*httptest.Server
	registry *hub.Registry
}

func newChatServer(t *testing.T, opts Options) *chatServer {
	t.Helper()
	registry := hub.NewRegistry(zerolog.Nop())
	chat := service.NewChatService(registry, zerolog.Nop())
	upgrader := NewUpgrader([]string{"*"}, zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/ws/")
		NewSession(conn, opts, zerolog.Nop()).Serve(chat, id)
	}))
	t.Cleanup(srv.Close)
	return &chatServer{Server: srv, registry: registry}
}

func (s *chatServer) dial(t *testing.T, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", id, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *chatServer) waitForMembers(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.registry.Len() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d members, have %d", n, s.registry.Len())
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	return string(data)
}

func TestSession_EchoBroadcastAndDeparture(t *testing.T) {
	srv := newChatServer(t, Options{})

	a := srv.dial(t, "A")
	b := srv.dial(t, "B")
	srv.waitForMembers(t, 2)

	if err := a.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readText(t, a); got != "You wrote: hi" {
		t.Fatalf("A first frame = %q", got)
	}
	if got := readText(t, a); got != "Client #A says: hi" {
		t.Fatalf("A second frame = %q", got)
	}
	if got := readText(t, b); got != "Client #A says: hi" {
		t.Fatalf("B frame = %q", got)
	}

	_ = a.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = a.Close()

	if got := readText(t, b); got != "Client #A left chat" {
		t.Fatalf("B departure frame = %q", got)
	}
	srv.waitForMembers(t, 1)
}

func TestSession_OversizedFrameClosesConnection(t *testing.T) {
	srv := newChatServer(t, Options{MaxMessageBytes: 16})

	a := srv.dial(t, "A")
	b := srv.dial(t, "B")
	srv.waitForMembers(t, 2)

	if err := a.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 64))); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readText(t, b); got != "Client #A left chat" {
		t.Fatalf("B frame = %q", got)
	}
	srv.waitForMembers(t, 1)
}

func TestSession_RateLimitDropsFrames(t *testing.T) {
	srv := newChatServer(t, Options{RateBurst: 1, RateInterval: time.Hour})

	a := srv.dial(t, "A")
	srv.waitForMembers(t, 1)

	for _, msg := range []string{"one", "two"} {
		if err := a.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if got := readText(t, a); got != "You wrote: one" {
		t.Fatalf("first frame = %q", got)
	}
	if got := readText(t, a); got != "Client #A says: one" {
		t.Fatalf("second frame = %q", got)
	}

	_ = a.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, data, err := a.ReadMessage(); err == nil {
		t.Fatalf("expected rate-limited frame to be dropped, got %q", data)
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	s := &Session{send: make(chan string, 1)}
	if err := s.Send("x"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send("y"); err != ErrSlowConsumer {
		t.Fatalf("expected ErrSlowConsumer, got %v", err)
	}
	if err := s.Send("z"); err == nil {
		t.Fatalf("expected error after close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close should be idempotent: %v", err)
	}
}

func TestUpgrader_OriginPolicy(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://chat.example.com/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	wildcard := NewUpgrader([]string{"*"}, zerolog.Nop())
	if !wildcard.CheckOrigin(req("https://evil.example")) {
		t.Fatalf("wildcard should admit any origin")
	}

	same := NewUpgrader(nil, zerolog.Nop())
	if same.CheckOrigin != nil {
		t.Fatalf("empty list should defer to same-origin check")
	}

	list := NewUpgrader([]string{" HTTPS://App.Example.com ", "not a url"}, zerolog.Nop())
	if !list.CheckOrigin(req("https://app.example.com")) {
		t.Fatalf("listed origin should be admitted")
	}
	if list.CheckOrigin(req("https://other.example.com")) {
		t.Fatalf("unlisted origin should be rejected")
	}
	if list.CheckOrigin(req("")) {
		t.Fatalf("missing origin should be rejected when a list is configured")
	}
}
