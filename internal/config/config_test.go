package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", cfg.Concurrency)
	}
	if cfg.FFmpeg.Preset != "medium" {
		t.Errorf("preset = %q, want medium", cfg.FFmpeg.Preset)
	}
	if cfg.Caption.FontPath != DefaultFontPath {
		t.Errorf("font path = %q", cfg.Caption.FontPath)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 2 {
		t.Errorf("unexpected audio defaults: %+v", cfg.Audio)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	data := []byte(`work_dir: /srv/renders
concurrency: 4
ffmpeg:
  threads: 2
  preset: veryfast
caption:
  font_path: /fonts/Impact.ttf
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvThreads, "8")
	t.Setenv(EnvMusicDir, "/srv/music")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkDir != "/srv/renders" || cfg.Concurrency != 4 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.FFmpeg.Preset != "veryfast" {
		t.Errorf("preset = %q", cfg.FFmpeg.Preset)
	}
	if cfg.FFmpeg.Threads != 8 {
		t.Errorf("env override not applied, threads = %d", cfg.FFmpeg.Threads)
	}
	if cfg.Music.FallbackDir != "/srv/music" {
		t.Errorf("music dir = %q", cfg.Music.FallbackDir)
	}
	// untouched keys keep their defaults
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample rate = %d", cfg.Audio.SampleRate)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	// registered so the variable is restored after the test
	t.Setenv(EnvFontPath, "")
	os.Unsetenv(EnvFontPath)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvFontPath+"=/fonts/from-dotenv.ttf\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Caption.FontPath != "/fonts/from-dotenv.ttf" {
		t.Errorf("font path = %q, want value from .env", cfg.Caption.FontPath)
	}
}

func TestLoad_InvalidThreadsEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvThreads, "many")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric threads override")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty work dir", func(c *Config) { c.WorkDir = "" }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"negative threads", func(c *Config) { c.FFmpeg.Threads = -1 }, true},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, true},
		{"six channels", func(c *Config) { c.Audio.Channels = 6 }, true},
		{"mono", func(c *Config) { c.Audio.Channels = 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.KeepWorkDir = true
	cfg.FFmpeg.Preset = "slow"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.KeepWorkDir || loaded.FFmpeg.Preset != "slow" {
		t.Errorf("saved values lost: %+v", loaded)
	}
}

func TestResolveFontPath(t *testing.T) {
	dir := t.TempDir()
	font := filepath.Join(dir, "caption.ttf")
	if err := os.WriteFile(font, []byte("ttf"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Caption.FontPath = font
	if got := cfg.ResolveFontPath(); got != font {
		t.Errorf("ResolveFontPath() = %q, want %q", got, font)
	}

	cfg.Caption.FontPath = filepath.Join(dir, "missing.ttf")
	if got := cfg.ResolveFontPath(); got != "" {
		t.Errorf("missing font resolved to %q", got)
	}
}

func TestContext(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 7
	ctx := WithConfig(context.Background(), cfg)

	if got := FromContext(ctx); got.Concurrency != 7 {
		t.Errorf("FromContext returned %+v", got)
	}
	if got := FromContext(context.Background()); got == nil || got.Concurrency != 2 {
		t.Errorf("FromContext without config should return defaults, got %+v", got)
	}
}
