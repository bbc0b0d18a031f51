package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 {
		t.Fatalf("default dimensions %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Video.FPS != 24 {
		t.Fatalf("default fps %d", cfg.Video.FPS)
	}
	if cfg.Video.IntroDurationSec != 2.0 {
		t.Fatalf("default intro duration %v", cfg.Video.IntroDurationSec)
	}
	if cfg.Generation.MaxConcurrent != 4 {
		t.Fatalf("default max concurrent %d", cfg.Generation.MaxConcurrent)
	}
	if cfg.Generation.RetryAttempts != 3 {
		t.Fatalf("default retry attempts %d", cfg.Generation.RetryAttempts)
	}
	if cfg.Image.AspectRatio != "9:16" {
		t.Fatalf("default aspect ratio %q", cfg.Image.AspectRatio)
	}
	if v, ok := cfg.Speech.Voices["es"]; !ok || v.Name != "es-US-Chirp-HD-D" {
		t.Fatalf("default spanish voice %+v", v)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
video:
  width: 720
  height: 1280
  music_volume: 0.15
generation:
  max_concurrent: 2
paths:
  media_root: /tmp/media
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Video.Width != 720 || cfg.Video.Height != 1280 {
		t.Fatalf("dimensions not overridden: %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Video.MusicVolume != 0.15 {
		t.Fatalf("music volume %v", cfg.Video.MusicVolume)
	}
	if cfg.Generation.MaxConcurrent != 2 {
		t.Fatalf("max concurrent %v", cfg.Generation.MaxConcurrent)
	}
	if cfg.Paths.MediaRoot != "/tmp/media" {
		t.Fatalf("media root %q", cfg.Paths.MediaRoot)
	}

	// Unset keys still get defaults.
	if cfg.Video.FPS != 24 {
		t.Fatalf("fps default missing: %d", cfg.Video.FPS)
	}
	if cfg.Planner.Model == "" {
		t.Fatal("planner model default missing")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"music volume at 1", "video:\n  music_volume: 1.0\n"},
		{"negative music volume", "video:\n  music_volume: -0.1\n"},
		{"negative fps", "video:\n  fps: -5\n"},
		{"negative max concurrent", "generation:\n  max_concurrent: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "video: [not a mapping")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLanguageSupported(t *testing.T) {
	for _, lang := range []string{"en", "es"} {
		if !LanguageSupported(lang) {
			t.Fatalf("%q should be supported", lang)
		}
	}
	for _, lang := range []string{"fr", "EN", ""} {
		if LanguageSupported(lang) {
			t.Fatalf("%q should not be supported", lang)
		}
	}
}
