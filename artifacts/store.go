// Package artifacts owns the generated-video directory: artifact naming,
// writes, listing, and the placeholder fallback.
package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// videoExts are the artifact extensions recognized by List.
var videoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
	".gif":  true,
}

// ExtFromURL infers an artifact extension from the source URL by substring
// match, defaulting to .mp4.
func ExtFromURL(url string) string {
	switch {
	case strings.Contains(url, ".webm"):
		return ".webm"
	case strings.Contains(url, ".gif"):
		return ".gif"
	default:
		return ".mp4"
	}
}

// Store owns a directory of generated video files. Artifacts are written
// once and never deleted during a request.
type Store struct {
	dir         string
	sampleAsset string
	logger      *zap.Logger
}

// NewStore creates an artifact store rooted at dir. sampleAsset is the
// placeholder clip served when generation is unavailable.
func NewStore(dir, sampleAsset string, logger *zap.Logger) *Store {
	return &Store{
		dir:         dir,
		sampleAsset: sampleAsset,
		logger:      logger.With(zap.String("component", "artifact_store")),
	}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// NewPath allocates a fresh artifact path with the given extension.
func (s *Store) NewPath(ext string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	return filepath.Join(s.dir, name)
}

// WriteBytes writes data to a fresh artifact and returns its path.
func (s *Store) WriteBytes(data []byte, ext string) (string, error) {
	path := s.NewPath(ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Create opens a fresh artifact file for streaming writes.
func (s *Store) Create(ext string) (*os.File, error) {
	f, err := os.Create(s.NewPath(ext))
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return f, nil
}

// List returns the file names of all artifacts with a recognized video
// extension, sorted for stable output.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ServeFallback copies the placeholder asset to a fresh artifact path. A
// missing placeholder is a hard failure the caller must surface.
func (s *Store) ServeFallback() (string, error) {
	src, err := os.Open(s.sampleAsset)
	if err != nil {
		return "", types.NewError(types.ErrFallbackUnavailable, "no placeholder asset available").WithCause(err)
	}
	defer src.Close()

	dst, err := s.Create(".mp4")
	if err != nil {
		return "", types.NewError(types.ErrFallbackUnavailable, "failed to stage placeholder").WithCause(err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", types.NewError(types.ErrFallbackUnavailable, "failed to copy placeholder").WithCause(err)
	}
	if err := dst.Close(); err != nil {
		return "", types.NewError(types.ErrFallbackUnavailable, "failed to finalize placeholder").WithCause(err)
	}

	s.logger.Info("served placeholder artifact", zap.String("path", dst.Name()))
	return dst.Name(), nil
}
