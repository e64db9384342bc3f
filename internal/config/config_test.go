package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Fatalf("backend = %q", cfg.DataBackend)
	}
	if cfg.PersistDebounce != 0 {
		t.Fatalf("debounce = %v", cfg.PersistDebounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PERSIST_DEBOUNCE", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Port != "9000" || cfg.DataBackend != "memory" {
		t.Fatalf("env overrides ignored: %+v", cfg)
	}
	if cfg.PersistDebounce != 250*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.PersistDebounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config invalid: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{
		Port:            "not-a-port",
		DataBackend:     "postgres",
		PersistDebounce: 2 * time.Minute,
		LogLevel:        "loud",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	for _, want := range []string{"invalid port", "invalid data backend", "invalid persist debounce", "invalid log level"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in %q", want, msg)
		}
	}
}

func TestValidatePortRange(t *testing.T) {
	cfg := Load()
	cfg.DataBackend = "memory"
	for _, port := range []string{"0", "65536", "-1"} {
		cfg.Port = port
		if err := cfg.Validate(); err == nil {
			t.Fatalf("port %s accepted", port)
		}
	}
}
