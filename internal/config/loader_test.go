package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected path %q", resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.Assistant.Label != def.Assistant.Label {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Assistant.Timeout != 20*time.Second {
		t.Fatalf("unexpected assistant timeout: %v", cfg.Assistant.Timeout)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`addr: ":9000"
log_level: debug
assistant:
  url: http://answers.local/ask
  max_in_flight: 4
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MINDORA_LOG_LEVEL", "warn")
	t.Setenv("MINDORA_ASSISTANT_LABEL", "Study Bot")
	t.Setenv("MINDORA_ALLOWED_ORIGINS", "http://localhost:3000, https://mindora.app")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Fatalf("file value not applied, addr=%q", cfg.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("env should override file, log_level=%q", cfg.LogLevel)
	}
	if cfg.Assistant.URL != "http://answers.local/ask" || cfg.Assistant.MaxInFlight != 4 {
		t.Fatalf("nested file values not applied: %+v", cfg.Assistant)
	}
	if cfg.Assistant.Label != "Study Bot" {
		t.Fatalf("nested env not applied, label=%q", cfg.Assistant.Label)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://mindora.app" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadPortOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("PORT", "4100")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":4100" {
		t.Fatalf("expected :4100, got %q", cfg.Addr)
	}
}

func TestWithPort(t *testing.T) {
	tests := []struct {
		addr, port, want string
	}{
		{":3001", "80", ":80"},
		{"127.0.0.1:3001", "9000", "127.0.0.1:9000"},
		{"", "8080", ":8080"},
	}
	for _, tt := range tests {
		if got := withPort(tt.addr, tt.port); got != tt.want {
			t.Errorf("withPort(%q, %q) = %q, want %q", tt.addr, tt.port, got, tt.want)
		}
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":7000", LogLevel: "debug"})

	if cfg.Addr != ":7000" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != Default().ShutdownTimeout {
		t.Fatalf("zero values must not override")
	}
}
