package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PLATFORM_COMMISSION_PERCENT", "")
	t.Setenv("CART_TTL", "")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	if cfg.Env != "development" {
		t.Fatalf("expected development env, got %s", cfg.Env)
	}
	if cfg.PlatformCommissionPercent != 5 {
		t.Fatalf("expected default commission 5, got %v", cfg.PlatformCommissionPercent)
	}
	if cfg.CartTTL != 7*24*time.Hour {
		t.Fatalf("unexpected cart ttl %v", cfg.CartTTL)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected development jwt secret fallback")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PLATFORM_COMMISSION_PERCENT", "7.5")
	t.Setenv("SERVICE_FEE", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	if cfg.PlatformCommissionPercent != 7.5 {
		t.Fatalf("expected 7.5, got %v", cfg.PlatformCommissionPercent)
	}
	if cfg.ServiceFee != 0 {
		t.Fatalf("expected fallback service fee, got %v", cfg.ServiceFee)
	}
	if len(cfg.CorsAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CorsAllowedOrigins)
	}
	if cfg.JWTSecret != "" {
		t.Fatalf("production must not get a fallback secret")
	}
}
