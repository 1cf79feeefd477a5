package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shipdeck/internal/config"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
server = "http://pipeline.example.com/api"
poll_interval_ms = 1500
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server != "http://pipeline.example.com/api" {
		t.Errorf("unexpected server: %q", cfg.Server)
	}
	if cfg.PollInterval() != 1500*time.Millisecond {
		t.Errorf("poll interval = %v, want 1.5s", cfg.PollInterval())
	}
}

func TestLoad_EnvVarTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `server = "http://fromfile/api"`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHIPDECK_SERVER", "http://fromenv/api")

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server != "http://fromenv/api" {
		t.Errorf("expected env server, got %q", cfg.Server)
	}
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	cfg, err := config.LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("missing file should not be an error, got: %v", err)
	}
	if cfg.ServerOrDefault() != "http://localhost:8800/api" {
		t.Errorf("unexpected default server: %q", cfg.ServerOrDefault())
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Errorf("unexpected default poll interval: %v", cfg.PollInterval())
	}
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := config.Config{Server: "http://saved/api", PollIntervalMS: 2000}

	if err := config.Save(path, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}

	got, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}
