package config

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8000" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.TokenTTL != 0 {
		t.Fatalf("expected no token expiry by default, got %s", cfg.TokenTTL)
	}
	if cfg.StoreDriver != StoreMongo || cfg.Mongo.Database != "relay" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Mongo)
	}
	if cfg.Throttle.MaxFailures != 5 || cfg.Throttle.Window != 15*time.Minute {
		t.Fatalf("unexpected throttle defaults: %+v", cfg.Throttle)
	}
	if cfg.Chat.MaxMessageBytes != 4096 || cfg.Chat.SendBuffer != 256 || cfg.Chat.RequireToken {
		t.Fatalf("unexpected chat defaults: %+v", cfg.Chat)
	}
	if !cfg.Development() {
		t.Fatalf("expected development env by default")
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "s3cret",
		"PORT":                 "9000",
		"TOKEN_TTL":            "30m",
		"STORE_DRIVER":         "memory",
		"CHAT_ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"CHAT_REQUIRE_TOKEN":   "true",
	}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "9000" || cfg.TokenTTL != 30*time.Minute || cfg.StoreDriver != StoreMemory {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Chat.AllowedOrigins) != 2 || !cfg.Chat.RequireToken {
		t.Fatalf("chat overrides not applied: %+v", cfg.Chat)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"blank secret", map[string]string{"JWT_SECRET": "   "}, "JWT_SECRET"},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		{"negative ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "-1m"}, "TOKEN_TTL"},
		{"zero buffer", map[string]string{"JWT_SECRET": "s", "CHAT_SEND_BUFFER": "0"}, "CHAT_SEND_BUFFER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), envconfig.MapLookuper(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_SecretIsConcealed(t *testing.T) {
	cfg := &Config{JWTSecret: "hunter2"}
	s := cfg.Secret()
	if printed := fmt.Sprintf("%v", s); strings.Contains(printed, "hunter2") {
		t.Fatalf("secret printed in clear: %s", printed)
	}
	if s.Unveil() != "hunter2" {
		t.Fatalf("Unveil = %q", s.Unveil())
	}
}
