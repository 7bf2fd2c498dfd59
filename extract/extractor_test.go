package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/artifacts"
	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// --- test fixture shapes ---

type urlHandle struct {
	url string
	err error
}

func (h urlHandle) URL() (string, error) { return h.url, h.err }

type carrierHandle struct{ url string }

func (h carrierHandle) ArtifactURL() string { return h.url }

type readHandle struct{ data []byte }

func (h readHandle) Read() ([]byte, error) { return h.data, nil }

type openHandle struct{ data []byte }

func (h openHandle) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(h.data))), nil
}

type streamHandle struct{ chunks [][]byte }

func (h streamHandle) Stream(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for _, c := range h.chunks {
			ch <- c
		}
	}()
	return ch, nil
}

type saveHandle struct{ data []byte }

func (h saveHandle) Save(dst string) (string, error) {
	return "", os.WriteFile(dst, h.data, 0o644)
}

type panicHandle struct{}

func (panicHandle) URL() (string, error) { panic("broken sdk handle") }

// ambiguousMap satisfies both the URL-accessor shape (strategy 2) and the
// keyed-container shape (strategy 8).
type ambiguousMap map[string]any

func (m ambiguousMap) URL() (string, error) { return m["accessor_url"].(string), nil }

// --- harness ---

type harness struct {
	x         *Extractor
	store     *artifacts.Store
	srv       *httptest.Server
	downloads *atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		downloads.Add(1)
		_, _ = w.Write([]byte("remote-video"))
	}))
	t.Cleanup(srv.Close)

	store := artifacts.NewStore(t.TempDir(), "", zap.NewNop())
	dl := NewDownloader(store, 5*time.Second, zap.NewNop())
	return &harness{
		x:         New(store, dl, zap.NewNop()),
		store:     store,
		srv:       srv,
		downloads: &downloads,
	}
}

func (h *harness) url(path string) string { return h.srv.URL + path }

func assertArtifact(t *testing.T, path, content string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

// --- tests ---

func TestExtractItem_DirectURL_ShortCircuits(t *testing.T) {
	h := newHarness(t)

	var hits []string
	h.x.OnStrategyHit = func(name string) { hits = append(hits, name) }

	paths := h.x.ExtractItem(context.Background(), h.url("/clip.mp4"))

	require.Len(t, paths, 1)
	assertArtifact(t, paths[0], "remote-video")
	assert.Equal(t, int32(1), h.downloads.Load(), "exactly one download for a bare URL")
	assert.Equal(t, []string{"direct_url"}, hits, "no later strategy runs")
}

func TestExtractItem_NonURLString(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), "just some text")

	assert.Empty(t, paths)
	assert.Equal(t, int32(0), h.downloads.Load())
}

func TestExtractItem_URLAccessor(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), urlHandle{url: h.url("/gen.webm")})

	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], ".webm"), "extension inferred from URL")
	assertArtifact(t, paths[0], "remote-video")
}

func TestExtractItem_URLAccessorError_ChainContinues(t *testing.T) {
	h := newHarness(t)

	// The accessor fails, but the same item also carries a resolved URL,
	// so the next strategy picks it up.
	item := struct {
		urlHandle
		carrierHandle
	}{
		urlHandle{err: errors.New("expired signature")},
		carrierHandle{url: h.url("/fallback.mp4")},
	}

	paths := h.x.ExtractItem(context.Background(), item)

	require.Len(t, paths, 1)
	assertArtifact(t, paths[0], "remote-video")
}

func TestExtractItem_URLCarrier(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), carrierHandle{url: h.url("/clip.mp4")})

	require.Len(t, paths, 1)
	assertArtifact(t, paths[0], "remote-video")
}

func TestExtractItem_ByteReader(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), readHandle{data: []byte("raw-bytes")})

	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], ".mp4"))
	assertArtifact(t, paths[0], "raw-bytes")
	assert.Equal(t, int32(0), h.downloads.Load())
}

func TestExtractItem_StreamOpener(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), openHandle{data: []byte("opened-bytes")})

	require.Len(t, paths, 1)
	assertArtifact(t, paths[0], "opened-bytes")
}

func TestExtractItem_ChunkStreamer(t *testing.T) {
	h := newHarness(t)

	item := streamHandle{chunks: [][]byte{[]byte("part1-"), nil, []byte("part2")}}
	paths := h.x.ExtractItem(context.Background(), item)

	require.Len(t, paths, 1)
	assertArtifact(t, paths[0], "part1-part2")
}

func TestExtractItem_FileSaver(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), saveHandle{data: []byte("saved-bytes")})

	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(paths[0], h.store.Dir()))
	assertArtifact(t, paths[0], "saved-bytes")
}

func TestExtractItem_KeyedContainer(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		item map[string]any
		want string
	}{
		{"url key", map[string]any{"url": h.url("/a.mp4")}, "remote-video"},
		{"output_url key", map[string]any{"output_url": h.url("/b.mp4")}, "remote-video"},
		{"byte buffer under data", map[string]any{"data": []byte("container-bytes")}, "container-bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := h.x.ExtractItem(context.Background(), tt.item)
			require.Len(t, paths, 1)
			assertArtifact(t, paths[0], tt.want)
		})
	}
}

func TestExtractItem_KeyedContainer_ProbeOrder(t *testing.T) {
	h := newHarness(t)

	// "url" outranks "download_url" in the fixed probe order.
	item := map[string]any{
		"download_url": h.url("/missing/second.mp4"),
		"url":          h.url("/first.mp4"),
	}

	paths := h.x.ExtractItem(context.Background(), item)

	require.Len(t, paths, 1)
	assert.Equal(t, int32(1), h.downloads.Load())
}

func TestExtractItem_OrderingAccessorBeatsContainer(t *testing.T) {
	h := newHarness(t)

	var hits []string
	h.x.OnStrategyHit = func(name string) { hits = append(hits, name) }

	item := ambiguousMap{
		"accessor_url": h.url("/via-accessor.mp4"),
		"url":          h.url("/missing/via-container.mp4"),
	}

	paths := h.x.ExtractItem(context.Background(), item)

	require.Len(t, paths, 1)
	assert.Equal(t, []string{"url_accessor"}, hits, "callable accessor outranks keyed container")
	assertArtifact(t, paths[0], "remote-video")
}

func TestExtractItem_PanicIsolated(t *testing.T) {
	h := newHarness(t)

	paths := h.x.ExtractItem(context.Background(), panicHandle{})

	assert.Empty(t, paths, "a panicking strategy yields no artifacts but does not crash the chain")
}

func TestExtractAll_TopLevelList(t *testing.T) {
	h := newHarness(t)

	output := []any{
		h.url("/one.mp4"),
		readHandle{data: []byte("two")},
	}

	paths, err := h.x.ExtractAll(context.Background(), output)

	require.NoError(t, err)
	assert.Len(t, paths, 2, "a top-level list accumulates artifacts from every element")
}

func TestExtractAll_TopLevelMapValueScan(t *testing.T) {
	h := newHarness(t)

	// No conventional key matches, so the values are scanned directly.
	output := map[string]any{
		"video_out": h.url("/nested.mp4"),
	}

	paths, err := h.x.ExtractAll(context.Background(), output)

	require.NoError(t, err)
	require.Len(t, paths, 1)
	assertArtifact(t, paths[0], "remote-video")
}

func TestExtractAll_Empty(t *testing.T) {
	h := newHarness(t)

	_, err := h.x.ExtractAll(context.Background(), map[string]any{"status": "done"})

	require.Error(t, err)
	assert.Equal(t, types.ErrExtractionEmpty, types.GetErrorCode(err))
}

func TestExtractAll_NilOutput(t *testing.T) {
	h := newHarness(t)

	_, err := h.x.ExtractAll(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, types.ErrExtractionEmpty, types.GetErrorCode(err))
}

func TestDownloader_HTTPErrorStatus(t *testing.T) {
	h := newHarness(t)
	dl := NewDownloader(h.store, 5*time.Second, zap.NewNop())

	_, err := dl.Download(context.Background(), h.url("/missing/clip.mp4"))

	require.Error(t, err)
	assert.Equal(t, types.ErrDownloadFailed, types.GetErrorCode(err))

	// The failed download leaves no artifact behind.
	names, listErr := h.store.List()
	require.NoError(t, listErr)
	assert.Empty(t, names)
}

func TestDownloader_WritesUnderStoreDir(t *testing.T) {
	h := newHarness(t)
	dl := NewDownloader(h.store, 5*time.Second, zap.NewNop())

	path, err := dl.Download(context.Background(), h.url("/ok.gif"))

	require.NoError(t, err)
	assert.Equal(t, h.store.Dir(), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".gif"))
}
