// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultPort            = 8080
	DefaultTerritory       = "~bitcoin"
	DefaultAllowed         = "~bitcoin,~nostr,~design,~jobs"
	DefaultCacheTTLSeconds = 300
	DefaultFetchTimeoutMs  = 5000
	DefaultLogLevel        = "info"
)

// Config holds the application configuration.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// BaseURL is the public base URL of the deployment, used to build
	// absolute image and post URLs. When empty, it is derived per request
	// from the Host / X-Forwarded-* headers.
	BaseURL string

	// DefaultTerritory is the territory served when none is requested.
	DefaultTerritory string

	// AllowedTerritories is the shortlist offered by the selection flow.
	AllowedTerritories []string

	// CacheTTL bounds how long a fetched territory feed is reused.
	CacheTTL time.Duration

	// FetchTimeout bounds a single upstream feed fetch.
	FetchTimeout time.Duration

	LogLevel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port := DefaultPort
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	ttlSeconds := DefaultCacheTTLSeconds
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		var err error
		ttlSeconds, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
		}
	}

	timeoutMs := DefaultFetchTimeoutMs
	if v := os.Getenv("FETCH_TIMEOUT_MS"); v != "" {
		var err error
		timeoutMs, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FETCH_TIMEOUT_MS: %w", err)
		}
	}

	defaultTerritory := os.Getenv("DEFAULT_TERRITORY")
	if defaultTerritory == "" {
		defaultTerritory = DefaultTerritory
	}

	allowedRaw := os.Getenv("ALLOWED_TERRITORIES")
	if allowedRaw == "" {
		allowedRaw = DefaultAllowed
	}
	var allowed []string
	for _, s := range strings.Split(allowedRaw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		allowed = append(allowed, s)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	return &Config{
		Port:               port,
		BaseURL:            strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		DefaultTerritory:   defaultTerritory,
		AllowedTerritories: allowed,
		CacheTTL:           time.Duration(ttlSeconds) * time.Second,
		FetchTimeout:       time.Duration(timeoutMs) * time.Millisecond,
		LogLevel:           logLevel,
	}, nil
}
