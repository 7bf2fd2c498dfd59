// Package extract normalizes heterogeneous backend output into local video
// artifacts through a fixed, ordered chain of extraction strategies. Cheap,
// structurally certain strategies run before expensive or speculative ones;
// the first strategy producing at least one artifact wins.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/artifacts"
	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// containerKeys is the fixed probe order for keyed containers.
var containerKeys = []string{"url", "output_url", "download_url", "file", "artifact", "data"}

// strategy attempts to turn one backend item into local artifacts.
// matched=false means the item does not have this shape; a non-nil error
// means the shape matched but extraction failed, and the chain continues.
type strategy interface {
	name() string
	extract(ctx context.Context, x *Extractor, item any) (paths []string, matched bool, err error)
}

// Extractor runs the strategy chain against backend output.
type Extractor struct {
	store  *artifacts.Store
	dl     *Downloader
	logger *zap.Logger
	chain  []strategy

	// OnStrategyHit, when set, observes which strategy produced the
	// artifacts (metrics hook).
	OnStrategyHit func(strategyName string)
}

// New creates an extractor over the given artifact store and downloader.
func New(store *artifacts.Store, dl *Downloader, logger *zap.Logger) *Extractor {
	return &Extractor{
		store:  store,
		dl:     dl,
		logger: logger.With(zap.String("component", "extractor")),
		chain: []strategy{
			directURL{},
			urlAccessor{},
			urlCarrier{},
			byteReader{},
			streamOpener{},
			chunkStreamer{},
			fileSaver{},
			keyedContainer{},
		},
	}
}

// ExtractAll normalizes a whole backend result. A top-level list is
// extracted element by element, accumulating every artifact; a single item
// is extracted directly; a mapping that yields nothing through item
// handling gets a final best-effort scan over its values. An empty result
// is EXTRACTION_EMPTY.
func (x *Extractor) ExtractAll(ctx context.Context, output any) ([]string, error) {
	var paths []string

	switch v := output.(type) {
	case []any:
		for _, item := range v {
			paths = append(paths, x.ExtractItem(ctx, item)...)
		}
	default:
		paths = x.ExtractItem(ctx, output)
		if len(paths) == 0 {
			if m, ok := asStringMap(output); ok {
				paths = x.scanMapValues(ctx, m)
			}
		}
	}

	if len(paths) == 0 {
		return nil, types.NewError(types.ErrExtractionEmpty,
			fmt.Sprintf("no downloadable video in backend output: %s", describe(output)))
	}
	return paths, nil
}

// ExtractItem runs the strategy chain over one item. Strategy errors and
// panics are logged and the chain proceeds; the first strategy producing
// artifacts short-circuits.
func (x *Extractor) ExtractItem(ctx context.Context, item any) []string {
	for _, s := range x.chain {
		paths, matched, err := x.tryStrategy(ctx, s, item)
		if err != nil {
			x.logger.Warn("extraction strategy failed",
				zap.String("strategy", s.name()),
				zap.Error(err))
			continue
		}
		if matched && len(paths) > 0 {
			if x.OnStrategyHit != nil {
				x.OnStrategyHit(s.name())
			}
			return paths
		}
	}

	// Diagnostic fallback: no strategy matched. Not an error by itself,
	// but it yields no artifact.
	x.logger.Info("unrecognized backend output item",
		zap.String("type", fmt.Sprintf("%T", item)),
		zap.String("value", describe(item)))
	return nil
}

// tryStrategy isolates one strategy so a panic inside it cannot abort the
// chain.
func (x *Extractor) tryStrategy(ctx context.Context, s strategy, item any) (paths []string, matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			paths, matched = nil, false
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return s.extract(ctx, x, item)
}

// scanMapValues is the last-resort pass over a top-level mapping: plain URL
// strings are downloaded immediately, everything else re-enters the chain.
func (x *Extractor) scanMapValues(ctx context.Context, m map[string]any) []string {
	var paths []string
	for _, v := range m {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "http") {
			path, err := x.dl.Download(ctx, s)
			if err != nil {
				x.logger.Warn("map value download failed", zap.Error(err))
				continue
			}
			paths = append(paths, path)
			continue
		}
		paths = append(paths, x.ExtractItem(ctx, v)...)
	}
	return paths
}

// --- strategies, in chain order ---

// directURL handles items that are themselves URL strings.
type directURL struct{}

func (directURL) name() string { return "direct_url" }

func (directURL) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	s, ok := item.(string)
	if !ok || !strings.HasPrefix(s, "http") {
		return nil, false, nil
	}
	path, err := x.dl.Download(ctx, s)
	if err != nil {
		return nil, true, err
	}
	return []string{path}, true, nil
}

// urlAccessor invokes a callable URL accessor and downloads its result.
type urlAccessor struct{}

func (urlAccessor) name() string { return "url_accessor" }

func (urlAccessor) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	acc, ok := item.(URLAccessor)
	if !ok {
		return nil, false, nil
	}
	url, err := acc.URL()
	if err != nil {
		return nil, true, fmt.Errorf("url accessor: %w", err)
	}
	if !strings.HasPrefix(url, "http") {
		return nil, true, fmt.Errorf("url accessor returned non-url %q", truncateStr(url, 80))
	}
	path, err := x.dl.Download(ctx, url)
	if err != nil {
		return nil, true, err
	}
	return []string{path}, true, nil
}

// urlCarrier handles items that carry an already-resolved URL value.
type urlCarrier struct{}

func (urlCarrier) name() string { return "url_carrier" }

func (urlCarrier) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	c, ok := item.(URLCarrier)
	if !ok {
		return nil, false, nil
	}
	url := c.ArtifactURL()
	if !strings.HasPrefix(url, "http") {
		return nil, false, nil
	}
	path, err := x.dl.Download(ctx, url)
	if err != nil {
		return nil, true, err
	}
	return []string{path}, true, nil
}

// byteReader writes a full byte buffer to a new .mp4 artifact.
type byteReader struct{}

func (byteReader) name() string { return "byte_reader" }

func (byteReader) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	r, ok := item.(ByteReader)
	if !ok {
		return nil, false, nil
	}
	data, err := r.Read()
	if err != nil {
		return nil, true, fmt.Errorf("read capability: %w", err)
	}
	path, err := x.store.WriteBytes(data, ".mp4")
	if err != nil {
		return nil, true, err
	}
	return []string{path}, true, nil
}

// streamOpener drains a file-like handle into a new .mp4 artifact. The
// handle is closed on every exit path.
type streamOpener struct{}

func (streamOpener) name() string { return "stream_opener" }

func (streamOpener) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	o, ok := item.(StreamOpener)
	if !ok {
		return nil, false, nil
	}
	rc, err := o.Open()
	if err != nil {
		return nil, true, fmt.Errorf("open capability: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, fmt.Errorf("reading opened stream: %w", err)
	}
	path, err := x.store.WriteBytes(data, ".mp4")
	if err != nil {
		return nil, true, err
	}
	return []string{path}, true, nil
}

// chunkStreamer writes arriving byte chunks straight to a new .mp4
// artifact without buffering the whole video in memory.
type chunkStreamer struct{}

func (chunkStreamer) name() string { return "chunk_streamer" }

func (chunkStreamer) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	cs, ok := item.(ChunkStreamer)
	if !ok {
		return nil, false, nil
	}
	ch, err := cs.Stream(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("stream capability: %w", err)
	}

	out, err := x.store.Create(".mp4")
	if err != nil {
		return nil, true, err
	}
	for chunk := range ch {
		if len(chunk) == 0 {
			continue
		}
		if _, err := out.Write(chunk); err != nil {
			out.Close()
			os.Remove(out.Name())
			return nil, true, fmt.Errorf("writing stream chunk: %w", err)
		}
	}
	if err := out.Close(); err != nil {
		return nil, true, err
	}
	return []string{out.Name()}, true, nil
}

// fileSaver hands the item a destination path and accepts either the
// returned path (if it exists) or the destination (if it now exists).
type fileSaver struct{}

func (fileSaver) name() string { return "file_saver" }

func (fileSaver) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	fs, ok := item.(FileSaver)
	if !ok {
		return nil, false, nil
	}
	dst := x.store.NewPath(".mp4")
	res, err := fs.Save(dst)
	if err != nil {
		return nil, true, fmt.Errorf("save capability: %w", err)
	}
	if res != "" {
		if _, statErr := os.Stat(res); statErr == nil {
			return []string{res}, true, nil
		}
	}
	if _, statErr := os.Stat(dst); statErr == nil {
		return []string{dst}, true, nil
	}
	return nil, true, fmt.Errorf("save capability wrote nothing")
}

// keyedContainer probes conventional keys of a mapping for a URL string or
// byte buffer.
type keyedContainer struct{}

func (keyedContainer) name() string { return "keyed_container" }

func (keyedContainer) extract(ctx context.Context, x *Extractor, item any) ([]string, bool, error) {
	m, ok := asStringMap(item)
	if !ok {
		return nil, false, nil
	}
	for _, key := range containerKeys {
		v, present := m[key]
		if !present {
			continue
		}
		switch val := v.(type) {
		case string:
			if strings.HasPrefix(val, "http") {
				path, err := x.dl.Download(ctx, val)
				if err != nil {
					return nil, true, err
				}
				return []string{path}, true, nil
			}
		case []byte:
			path, err := x.store.WriteBytes(val, ".mp4")
			if err != nil {
				return nil, true, err
			}
			return []string{path}, true, nil
		}
	}
	return nil, false, nil
}

// asStringMap reports item as a string-keyed map. Named map types are
// handled through reflection so wrapper types still count as containers.
func asStringMap(item any) (map[string]any, bool) {
	if m, ok := item.(map[string]any); ok {
		return m, true
	}
	v := reflect.ValueOf(item)
	if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// describe renders a truncated diagnostic view of an item for operator
// troubleshooting.
func describe(item any) string {
	return truncateStr(fmt.Sprintf("%#v", item), 500)
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
