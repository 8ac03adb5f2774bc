package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/relaychat/relay-api/internal/api/middleware"
	"github.com/relaychat/relay-api/internal/core/domain"
)

func TestUserHandler_List(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		listUsersFn: func(ctx context.Context, claim domain.SessionClaim) ([]*domain.User, error) {
			if claim.Subject != "root" {
				t.Fatalf("unexpected claim: %+v", claim)
			}
			return []*domain.User{
				{ID: "1", Username: "alice", PasswordHash: []byte("hash"), Role: domain.RoleUser},
				{ID: "2", Username: "root", Role: domain.RoleAdmin},
			}, nil
		},
	}
	handler := NewUserHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ClaimKey, domain.SessionClaim{Subject: "root", Role: domain.RoleAdmin})

	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp))
	}
	for _, u := range resp {
		if len(u) != 2 || u["username"] == nil || u["role"] == nil {
			t.Fatalf("unexpected fields: %v", u)
		}
	}
}

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	e := newTestEcho()
	handler := NewUserHandler(&stubAuthService{
		listUsersFn: func(ctx context.Context, claim domain.SessionClaim) ([]*domain.User, error) {
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ClaimKey, domain.SessionClaim{Subject: "root", Role: domain.RoleAdmin})

	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestUserHandler_List_Forbidden(t *testing.T) {
	e := newTestEcho()
	handler := NewUserHandler(&stubAuthService{
		listUsersFn: func(ctx context.Context, claim domain.SessionClaim) ([]*domain.User, error) {
			return nil, domain.ErrForbidden
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(middleware.ClaimKey, domain.SessionClaim{Subject: "alice", Role: domain.RoleUser})

	if err := handler.List(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUserHandler_MissingClaim(t *testing.T) {
	e := newTestEcho()
	handler := NewUserHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Me(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestUserHandler_Me(t *testing.T) {
	e := newTestEcho()
	handler := NewUserHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ClaimKey, domain.SessionClaim{Subject: "alice", Role: domain.RoleUser})

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["username"] != "alice" || resp["role"] != "user" {
		t.Fatalf("unexpected body: %v", resp)
	}
}
