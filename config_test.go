package authclient

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{}
	cfg.API.BaseURL = "https://example.com/api"

	if err := normalizeConfig(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.API.Timeout)
	}
	if cfg.API.CSRFHeader != "x-csrf-token" {
		t.Fatalf("expected default CSRF header, got %q", cfg.API.CSRFHeader)
	}
	if cfg.Endpoints.Login != "/auth/login" || cfg.Endpoints.Refresh != "/auth/refresh" {
		t.Fatalf("expected default endpoints, got %+v", cfg.Endpoints)
	}
}

func TestNormalizeRequiresAbsoluteBaseURL(t *testing.T) {
	cases := []struct {
		name    string
		baseURL string
	}{
		{"empty", ""},
		{"relative", "/api"},
		{"no scheme", "example.com/api"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.API.BaseURL = tc.baseURL
			if err := normalizeConfig(&cfg); err == nil {
				t.Fatalf("expected rejection of %q", tc.baseURL)
			}
		})
	}
}

func TestNormalizeRejectsRelativeEndpointPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://example.com/api"
	cfg.Endpoints.Login = "auth/login"

	err := normalizeConfig(&cfg)
	if err == nil || !strings.Contains(err.Error(), "Login") {
		t.Fatalf("expected a Login path error, got %v", err)
	}
}

func TestNormalizeBoundsRepairBudgets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://example.com/api"
	cfg.Repair.AuthRetries = 2

	if err := normalizeConfig(&cfg); err == nil {
		t.Fatal("a budget above one must be rejected")
	}

	cfg = DefaultConfig()
	cfg.API.BaseURL = "https://example.com/api"
	cfg.Repair.CSRFRetries = -1
	if err := normalizeConfig(&cfg); err == nil {
		t.Fatal("a negative budget must be rejected")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithBaseURL("https://example.com/api")
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second build must fail")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected missing BaseURL to fail the build")
	}
}
