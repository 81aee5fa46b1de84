package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelforge/pkg/util"
)

type contextKey string

const configKey contextKey = "config"

// Environment overrides
const (
	EnvWorkDir  = "REELFORGE_WORK_DIR"
	EnvFontPath = "REELFORGE_FONT_PATH"
	EnvThreads  = "REELFORGE_FFMPEG_THREADS"
	EnvMusicDir = "REELFORGE_MUSIC_DIR"
)

// DefaultFontPath is resolved against the working directory first, then
// against the directory of the running binary.
const DefaultFontPath = "assets/fonts/DejaVuSans-Bold.ttf"

// Config holds all application configuration
type Config struct {
	// Root under which every render gets its own scoped directory
	WorkDir     string `yaml:"work_dir"`
	KeepWorkDir bool   `yaml:"keep_work_dir"`
	// Concurrency bounds simultaneous renders in batch mode
	Concurrency int `yaml:"concurrency"`

	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Caption   CaptionConfig   `yaml:"caption"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Audio     AudioConfig     `yaml:"audio"`
	Music     MusicConfig     `yaml:"music"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
}

type CaptionConfig struct {
	FontPath string `yaml:"font_path"`
}

type ExtractorConfig struct {
	// VerifyDecode decodes every trimmed range before composing
	VerifyDecode bool `yaml:"verify_decode"`
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

type MusicConfig struct {
	// FallbackDir holds per-niche tracks (fitness.mp3, ..., default.mp3)
	FallbackDir string `yaml:"fallback_dir"`
}

// Load reads an optional .env file, then configuration from file, then
// applies environment overrides. Missing files yield defaults.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvWorkDir); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv(EnvFontPath); v != "" {
		c.Caption.FontPath = v
	}
	if v := os.Getenv(EnvMusicDir); v != "" {
		c.Music.FallbackDir = v
	}
	if v := os.Getenv(EnvThreads); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvThreads, err)
		}
		c.FFmpeg.Threads = n
	}
	return nil
}

// Validate rejects values no render could use
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.FFmpeg.Threads < 0 {
		return fmt.Errorf("ffmpeg.threads cannot be negative")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels must be 1 or 2")
	}
	return nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ResolveFontPath returns the caption font to use, or "" when no font file
// can be found and ffmpeg should fall back to fontconfig.
func (c *Config) ResolveFontPath() string {
	p := c.Caption.FontPath
	if p == "" {
		p = DefaultFontPath
	}
	if util.FileExists(p) {
		return p
	}
	if filepath.IsAbs(p) {
		return ""
	}
	if dir := util.ExecutableDir(); dir != "" {
		candidate := filepath.Join(dir, p)
		if util.FileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:     filepath.Join(os.TempDir(), "reelforge"),
		Concurrency: 2,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
		},
		Caption: CaptionConfig{
			FontPath: DefaultFontPath,
		},
		Extractor: ExtractorConfig{
			VerifyDecode: false,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   2,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./reelforge.yaml",
		"./reelforge.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".reelforge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
