package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/core/service"
	"github.com/relaychat/relay-api/internal/infrastructure/hub"
)

func newChatEcho(t *testing.T, opts ChatOptions, verifier *stubAuthService) string {
	t.Helper()
	registry := hub.NewRegistry(zerolog.Nop())
	chat := service.NewChatService(registry, zerolog.Nop())
	h := NewChatHandler(chat, verifier, opts, zerolog.Nop())

	e := newTestEcho()
	e.GET("/ws", h.Connect)
	e.GET("/ws/:client_id", h.Connect)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestChatHandler_PathClientID(t *testing.T) {
	base := newChatEcho(t, ChatOptions{AllowedOrigins: []string{"*"}}, &stubAuthService{})

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/42", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(t, conn); got != "You wrote: hello" {
		t.Fatalf("echo = %q", got)
	}
	if got := readFrame(t, conn); got != "Client #42 says: hello" {
		t.Fatalf("broadcast = %q", got)
	}
}

func TestChatHandler_RequireTokenRejectsAnonymous(t *testing.T) {
	e := newTestEcho()
	h := NewChatHandler(nil, &stubAuthService{}, ChatOptions{RequireToken: true}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Connect(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestChatHandler_RequireTokenRejectsBadToken(t *testing.T) {
	e := newTestEcho()
	verifier := &stubAuthService{
		verifyFn: func(string) (domain.SessionClaim, error) {
			return domain.SessionClaim{}, errors.New("signature mismatch")
		},
	}
	h := NewChatHandler(nil, verifier, ChatOptions{RequireToken: true}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ws?token=forged", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Connect(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestChatHandler_TokenSubjectBecomesClientID(t *testing.T) {
	verifier := &stubAuthService{
		verifyFn: func(token string) (domain.SessionClaim, error) {
			if token != "good" {
				return domain.SessionClaim{}, domain.ErrInvalidToken
			}
			return domain.SessionClaim{Subject: "alice", Role: domain.RoleUser}, nil
		},
	}
	base := newChatEcho(t, ChatOptions{AllowedOrigins: []string{"*"}, RequireToken: true}, verifier)

	if _, resp, err := websocket.DefaultDialer.Dial(base+"/ws?token=bad", nil); err == nil {
		t.Fatalf("expected handshake to fail for a bad token")
	} else if resp == nil || resp.StatusCode == http.StatusSwitchingProtocols {
		t.Fatalf("expected the upgrade to be refused, got %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws?token=good", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = readFrame(t, conn)
	if got := readFrame(t, conn); got != "Client #alice says: hi" {
		t.Fatalf("broadcast = %q", got)
	}
}
