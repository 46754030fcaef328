package window

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
title = "demo"
width = 1280
height = 720
backend = "immediate"
vsync = false
`)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	want := Config{Title: "demo", Width: 1280, Height: 720, Backend: BackendImmediate, VSync: false}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestParseConfigClearColor(t *testing.T) {
	cfg, err := ParseConfig("clear_color = [0.1, 0.2, 0.3]")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ClearColor != [3]float32{0.1, 0.2, 0.3} {
		t.Errorf("clear color = %v, want [0.1 0.2 0.3]", cfg.ClearColor)
	}
}

func TestParseConfigPartialKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig(`title = "demo"`)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Title != "demo" {
		t.Errorf("title = %q, want %q", cfg.Title, "demo")
	}
	if cfg.Width != def.Width || cfg.Height != def.Height || cfg.Backend != def.Backend {
		t.Errorf("unset fields = %+v, want defaults %+v", cfg, def)
	}
}

func TestParseConfigRejectsUnknownBackend(t *testing.T) {
	if _, err := ParseConfig(`backend = "vulkan"`); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestParseConfigRejectsDegenerateSize(t *testing.T) {
	if _, err := ParseConfig("width = 0"); err == nil {
		t.Error("zero width accepted")
	}
	if _, err := ParseConfig("height = -1"); err == nil {
		t.Error("negative height accepted")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	if err := os.WriteFile(path, []byte("title = \"from file\"\nbackend = \"explicit\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Title != "from file" || cfg.Backend != BackendExplicit {
		t.Errorf("cfg = %+v", cfg)
	}
}
