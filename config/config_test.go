package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, "minimax/video-01", cfg.Replicate.Model)
	assert.Equal(t, 600*time.Second, cfg.Replicate.CallTimeout)
	assert.Equal(t, 180*time.Second, cfg.Generation.DownloadTimeout)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_YAMLAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 9000
replicate:
  model: minimax/video-01-live
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// Env wins over file.
	t.Setenv("REPLICATE_MODEL", "tencent/hunyuan-video")
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "tencent/hunyuan-video", cfg.Replicate.Model)
	assert.Equal(t, "r8_test", cfg.Replicate.APIToken)
	// Untouched values keep defaults.
	assert.Equal(t, 2*time.Second, cfg.Replicate.PollInterval)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().WithConfigPath("does-not-exist.yaml").Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.HTTPPort = -1 }, wantErr: true},
		{name: "port clash", mutate: func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "bad cache backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }, wantErr: true},
		{name: "zero call timeout", mutate: func(c *Config) { c.Replicate.CallTimeout = 0 }, wantErr: true},
		{name: "empty video dir", mutate: func(c *Config) { c.Storage.VideoDir = "  " }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.VideoDir = filepath.Join(dir, "videos")
	cfg.Storage.SessionsDir = filepath.Join(dir, "sessions")
	cfg.Storage.CacheFile = filepath.Join(dir, "state", "cache.json")

	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, cfg.Storage.VideoDir)
	assert.DirExists(t, cfg.Storage.SessionsDir)
	assert.DirExists(t, filepath.Join(dir, "state"))
}

func TestFastDefaults(t *testing.T) {
	defaults := DefaultConfig().Generation.FastDefaults()

	assert.Equal(t, 5, defaults["duration"])
	assert.Equal(t, 12, defaults["fps"])
	assert.Equal(t, 512, defaults["width"])
	assert.Equal(t, 288, defaults["height"])
	assert.Equal(t, 20, defaults["steps"])
	assert.Equal(t, 1, defaults["samples"])
	assert.Equal(t, 6, defaults["guidance_scale"])
}
