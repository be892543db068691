package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.Timezone != defaultTimezone {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
listen: "0.0.0.0:9000"
public_dir: /srv/public
colors:
  REI: "#ff0000"
feeds:
  - association: REI
    url: webcal://cloud.example/rei.ics
variants:
  pc:
    themed: true
    split_date_time: true
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.ImagesDir != filepath.Join("/srv/public", "images") {
		t.Errorf("ImagesDir = %q", cfg.ImagesDir)
	}
	if cfg.FallbackColor != defaultFallback || cfg.RefreshCron != defaultRefreshCron {
		t.Errorf("defaults not filled: %+v", cfg)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Association != "REI" {
		t.Errorf("feeds = %+v", cfg.Feeds)
	}
	if !cfg.Variants["pc"].Themed {
		t.Error("configured pc variant lost")
	}
	if _, ok := cfg.Variants["mobile"]; !ok {
		t.Error("mobile variant not defaulted")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ASSOCAL_LISTEN", "127.0.0.1:9999")
	t.Setenv("ASSOCAL_PUBLIC_DIR", "/data/public")
	t.Setenv("ASSOCAL_TIMEZONE", "UTC")

	cfg := DefaultConfig()
	cfg.Normalize()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9999" || cfg.Timezone != "UTC" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.ImagesDir != filepath.Join("/data/public", "images") {
		t.Errorf("ImagesDir = %q", cfg.ImagesDir)
	}
	if cfg.BaseURL() != "http://127.0.0.1:9999" {
		t.Errorf("BaseURL = %q", cfg.BaseURL())
	}

	cfg.SourceBaseURL = "https://calendrier.example"
	if cfg.BaseURL() != "https://calendrier.example" {
		t.Errorf("BaseURL = %q", cfg.BaseURL())
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.json")
	if err := WriteFileAtomic(path, []byte("[]"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "[]" {
		t.Errorf("read back %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}
