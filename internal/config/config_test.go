package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BASE_URL", "DEFAULT_TERRITORY", "ALLOWED_TERRITORIES",
		"CACHE_TTL_SECONDS", "FETCH_TIMEOUT_MS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Config{
		Port:               8080,
		BaseURL:            "",
		DefaultTerritory:   "~bitcoin",
		AllowedTerritories: []string{"~bitcoin", "~nostr", "~design", "~jobs"},
		CacheTTL:           300 * time.Second,
		FetchTimeout:       5000 * time.Millisecond,
		LogLevel:           "info",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("BASE_URL", "https://frames.example.com/")
	t.Setenv("DEFAULT_TERRITORY", "~nostr")
	t.Setenv("ALLOWED_TERRITORIES", " ~nostr , ~meta ,, ")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("FETCH_TIMEOUT_MS", "2500")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Config{
		Port:               9000,
		BaseURL:            "https://frames.example.com",
		DefaultTerritory:   "~nostr",
		AllowedTerritories: []string{"~nostr", "~meta"},
		CacheTTL:           time.Minute,
		FetchTimeout:       2500 * time.Millisecond,
		LogLevel:           "debug",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "PORT", "not-a-port"},
		{"bad ttl", "CACHE_TTL_SECONDS", "5s"},
		{"bad timeout", "FETCH_TIMEOUT_MS", "five"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
