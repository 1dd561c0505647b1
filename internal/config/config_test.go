package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/convenio_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected development env by default")
	}
	if cfg.GatewayTimeoutSecs != 5 {
		t.Errorf("expected 5s gateway timeout, got %d", cfg.GatewayTimeoutSecs)
	}
	if cfg.SubscriptionPrice != 240.00 || cfg.DependentPrice != 120.00 || cfg.AgendaDailyRate != 2.50 {
		t.Errorf("unexpected pricing defaults: %+v", cfg)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestValidateOutsideDevelopment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/convenio")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure without gateway credentials")
	}

	cfg.GatewayBaseURL = "https://gateway.example.com"
	cfg.GatewayAccessToken = "token"
	cfg.PublicBaseURL = "https://api.example.com"
	cfg.JWTSigningKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidateSkippedInDevelopment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/convenio")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("development config must validate, got %v", err)
	}
}
