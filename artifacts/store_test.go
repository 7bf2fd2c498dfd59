package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/out.mp4", ".mp4"},
		{"https://cdn.example.com/out.webm?sig=abc", ".webm"},
		{"https://cdn.example.com/anim.gif", ".gif"},
		{"https://cdn.example.com/no-extension", ".mp4"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtFromURL(tt.url), "ExtFromURL(%q)", tt.url)
	}
}

func TestStore_WriteBytesAndList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "", zap.NewNop())

	path, err := store.WriteBytes([]byte("video-bytes"), ".mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	// Non-video files are not listed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names, err := store.List()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, filepath.Base(path), names[0])
}

func TestStore_NewPathUnique(t *testing.T) {
	store := NewStore(t.TempDir(), "", zap.NewNop())

	a := store.NewPath(".mp4")
	b := store.NewPath(".mp4")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".mp4"))
}

func TestStore_ServeFallback(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.mp4")
	require.NoError(t, os.WriteFile(sample, []byte("placeholder"), 0o644))

	store := NewStore(dir, sample, zap.NewNop())

	path, err := store.ServeFallback()
	require.NoError(t, err)
	assert.NotEqual(t, sample, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "placeholder", string(data))
}

func TestStore_ServeFallback_MissingAsset(t *testing.T) {
	store := NewStore(t.TempDir(), "missing.mp4", zap.NewNop())

	_, err := store.ServeFallback()
	require.Error(t, err)
	assert.Equal(t, types.ErrFallbackUnavailable, types.GetErrorCode(err))
}
