// Package config provides unified configuration loading for the video
// backend: defaults, optional YAML file, then environment overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Server HTTP server configuration
	Server ServerConfig `yaml:"server"`

	// Log logging configuration
	Log LogConfig `yaml:"log"`

	// Replicate generation backend configuration
	Replicate ReplicateConfig `yaml:"replicate"`

	// Storage on-disk layout configuration
	Storage StorageConfig `yaml:"storage"`

	// Cache prompt cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Generation defaults and download behavior
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: json, console
	Format string `yaml:"format"`
}

// ReplicateConfig holds generation backend settings. An empty APIToken or
// Model marks the backend unavailable and every request degrades to the
// placeholder sample.
type ReplicateConfig struct {
	APIToken     string        `yaml:"api_token"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// StorageConfig holds the on-disk layout. All directories are created at
// startup by EnsureDirectories.
type StorageConfig struct {
	VideoDir    string `yaml:"video_dir"`
	SessionsDir string `yaml:"sessions_dir"`
	CacheFile   string `yaml:"cache_file"`
	SampleAsset string `yaml:"sample_asset"`
}

// CacheConfig selects the prompt cache backend.
type CacheConfig struct {
	// Backend: file, redis
	Backend string `yaml:"backend"`
	// Redis address, only used when Backend is "redis"
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// GenerationConfig holds the fast-path generation defaults merged into every
// backend call, plus the per-artifact download timeout.
type GenerationConfig struct {
	Duration        int           `yaml:"duration"`
	FPS             int           `yaml:"fps"`
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	Steps           int           `yaml:"steps"`
	Samples         int           `yaml:"samples"`
	GuidanceScale   int           `yaml:"guidance_scale"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8000,
			MetricsPort:     9091,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    15 * time.Minute, // generation responses stream video bytes
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Replicate: ReplicateConfig{
			Model:        "minimax/video-01",
			BaseURL:      "https://api.replicate.com",
			CallTimeout:  600 * time.Second,
			PollInterval: 2 * time.Second,
		},
		Storage: StorageConfig{
			VideoDir:    "generated_videos",
			SessionsDir: "sessions",
			CacheFile:   "cache.json",
			SampleAsset: filepath.Join("sample_assets", "sample.mp4"),
		},
		Cache: CacheConfig{
			Backend:   "file",
			RedisAddr: "localhost:6379",
		},
		Generation: GenerationConfig{
			Duration:        5,
			FPS:             12,
			Width:           512,
			Height:          288,
			Steps:           20,
			Samples:         1,
			GuidanceScale:   6,
			DownloadTimeout: 180 * time.Second,
		},
	}
}

// Loader loads configuration with a builder-style API.
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load loads configuration: defaults, then YAML file if set, then
// environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	// Replicate credentials keep the upstream variable names so existing
	// deployments keep working without a config file.
	if v := os.Getenv("REPLICATE_API_TOKEN"); v != "" {
		c.Replicate.APIToken = v
	}
	if v := os.Getenv("REPLICATE_MODEL"); v != "" {
		c.Replicate.Model = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.HTTPPort = port
		}
	}

	if v := os.Getenv("PEPPO_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.MetricsPort = port
		}
	}
	if v := os.Getenv("PEPPO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PEPPO_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("PEPPO_VIDEO_DIR"); v != "" {
		c.Storage.VideoDir = v
	}
	if v := os.Getenv("PEPPO_SESSIONS_DIR"); v != "" {
		c.Storage.SessionsDir = v
	}
	if v := os.Getenv("PEPPO_CACHE_FILE"); v != "" {
		c.Storage.CacheFile = v
	}
	if v := os.Getenv("PEPPO_SAMPLE_ASSET"); v != "" {
		c.Storage.SampleAsset = v
	}
	if v := os.Getenv("PEPPO_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("PEPPO_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("PEPPO_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Replicate.CallTimeout = d
		}
	}
	if v := os.Getenv("PEPPO_DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Generation.DownloadTimeout = d
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics_port must differ from http_port")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	switch c.Cache.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("invalid cache backend: %q", c.Cache.Backend)
	}
	if c.Replicate.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive")
	}
	if c.Generation.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be positive")
	}
	if strings.TrimSpace(c.Storage.VideoDir) == "" {
		return fmt.Errorf("video_dir must not be empty")
	}
	if strings.TrimSpace(c.Storage.SessionsDir) == "" {
		return fmt.Errorf("sessions_dir must not be empty")
	}
	return nil
}

// EnsureDirectories creates the storage directories if they do not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.VideoDir, c.Storage.SessionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if parent := filepath.Dir(c.Storage.CacheFile); parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", parent, err)
		}
	}
	return nil
}

// FastDefaults returns the generation defaults as an options map in the
// shape sent to the backend. Caller options override these key-by-key.
func (c *GenerationConfig) FastDefaults() map[string]any {
	return map[string]any{
		"duration":       c.Duration,
		"fps":            c.FPS,
		"width":          c.Width,
		"height":         c.Height,
		"steps":          c.Steps,
		"samples":        c.Samples,
		"guidance_scale": c.GuidanceScale,
	}
}
