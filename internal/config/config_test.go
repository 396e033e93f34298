package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Dispatch.PaceMin() != 1500*time.Millisecond || cfg.Dispatch.PaceMax() != 3500*time.Millisecond {
		t.Fatalf("unexpected pacing defaults: %v..%v", cfg.Dispatch.PaceMin(), cfg.Dispatch.PaceMax())
	}
	if !cfg.Dispatch.Serialize() {
		t.Fatal("serialization should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[dispatch]
pace_min_ms = 100
pace_max_ms = 200
serialize_per_account = false

[postgres]
database = "other"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dispatch.PaceMinMs != 100 || cfg.Dispatch.PaceMaxMs != 200 {
		t.Fatalf("unexpected pacing: %+v", cfg.Dispatch)
	}
	if cfg.Dispatch.Serialize() {
		t.Fatal("serialization should be disabled")
	}
	if cfg.Postgres.Database != "other" {
		t.Fatalf("unexpected database: %s", cfg.Postgres.Database)
	}
	if cfg.Postgres.Host != DefaultPGHost {
		t.Fatalf("missing fields should keep defaults, got host %s", cfg.Postgres.Host)
	}
}

func TestLoadRejectsInvertedPacing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[dispatch]
pace_min_ms = 500
pace_max_ms = 100
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for inverted pacing bounds")
	}
}
