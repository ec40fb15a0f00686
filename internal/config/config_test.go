package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Generator.TotalLimit != 25 {
		t.Errorf("expected total limit 25, got %d", cfg.Generator.TotalLimit)
	}
	if cfg.AutoQueue.LowWater != 2 {
		t.Errorf("expected low water 2, got %d", cfg.AutoQueue.LowWater)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
music:
  library_path: /srv/music
generator:
  strategy: track
  similar_limit: 15
  total_limit: 40
  blend_ratio: 0.25
auto_queue:
  enabled: true
  low_water: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Music.LibraryPath != "/srv/music" {
		t.Errorf("expected library path override, got %s", cfg.Music.LibraryPath)
	}
	if cfg.Generator.Strategy != "track" || cfg.Generator.TotalLimit != 40 {
		t.Errorf("expected generator overrides, got %+v", cfg.Generator)
	}
	if !cfg.AutoQueue.Enabled || cfg.AutoQueue.LowWater != 3 {
		t.Errorf("expected auto-queue overrides, got %+v", cfg.AutoQueue)
	}
	// Unset fields keep their defaults.
	if cfg.Generator.TracksPerArtist != 3 {
		t.Errorf("expected tracks per artist default, got %d", cfg.Generator.TracksPerArtist)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DW_PORT", "7070")
	t.Setenv("DW_MUSIC_PATH", "/mnt/tunes")
	t.Setenv("DW_BLEND_RATIO", "0.75")
	t.Setenv("DW_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port, got %d", cfg.Server.Port)
	}
	if cfg.Music.LibraryPath != "/mnt/tunes" {
		t.Errorf("expected env music path, got %s", cfg.Music.LibraryPath)
	}
	if cfg.Generator.BlendRatio != 0.75 {
		t.Errorf("expected env blend ratio, got %g", cfg.Generator.BlendRatio)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env log level, got %s", cfg.Logging.Level)
	}
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("generator:\n  blend_ratio: 1.5\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for out-of-range blend ratio")
	}

	t.Setenv("DW_PORT", "99999")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error for bad port")
	}
	t.Setenv("DW_PORT", "")

	t.Setenv("DW_LOG_LEVEL", "verbose")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error for unknown log level")
	}
	t.Setenv("DW_LOG_LEVEL", "")

	t.Setenv("DW_LOG_FORMAT", "xml")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error for unknown log format")
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults, got %+v", cfg.Server)
	}
}
