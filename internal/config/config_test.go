package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ACADEMIHUB_ENV", "test")
	t.Setenv("ACADEMIHUB_AUTH_JWT_SECRET", "short-but-fine-in-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" && cfg.Env != "test" {
		t.Fatalf("unexpected env %q", cfg.Env)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.RateLimit != 5 || cfg.Auth.RateWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limit %d/%s", cfg.Auth.RateLimit, cfg.Auth.RateWindow)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if len(cfg.HTTP.TrustedProxies) != 0 {
		t.Fatalf("expected no trusted proxies by default, got %v", cfg.HTTP.TrustedProxies)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ACADEMIHUB_ENV", "test")
	t.Setenv("ACADEMIHUB_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("ACADEMIHUB_AUTH_TOKEN_TTL", "168h")
	t.Setenv("ACADEMIHUB_HTTP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ACADEMIHUB_DB_MAX_OPEN", "3")
	t.Setenv("ACADEMIHUB_HTTP_TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d ttl, got %s", cfg.Auth.TokenTTL)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.DB.MaxOpen != 3 {
		t.Fatalf("expected max open 3, got %d", cfg.DB.MaxOpen)
	}
	if len(cfg.HTTP.TrustedProxies) != 2 || cfg.HTTP.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies %v", cfg.HTTP.TrustedProxies)
	}
}

func TestValidateRejectsWeakProductionSecret(t *testing.T) {
	cfg := &Config{
		Env:  "production",
		HTTP: HTTP{MaxBodyBytes: 1024},
		Auth: Auth{JWTSecret: "too-short", TokenTTL: time.Hour, RateLimit: 5, RateWindow: time.Minute},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected secret length error, got %v", err)
	}
	cfg.Auth.JWTSecret = strings.Repeat("k", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadTrustedProxy(t *testing.T) {
	cfg := &Config{
		Env:  "dev",
		HTTP: HTTP{MaxBodyBytes: 1, TrustedProxies: []string{"10.0.0.0/8", "proxy.internal"}},
		Auth: Auth{JWTSecret: "dev-secret", TokenTTL: time.Hour, RateLimit: 1, RateWindow: time.Second},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "proxy.internal") {
		t.Fatalf("expected trusted proxy error, got %v", err)
	}
}

func TestValidateRequiresSecret(t *testing.T) {
	cfg := &Config{Env: "dev", HTTP: HTTP{MaxBodyBytes: 1}, Auth: Auth{TokenTTL: time.Hour, RateLimit: 1, RateWindow: time.Second}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing secret error")
	}
}
