package extract

import (
	"context"
	"io"
)

// Capability interfaces a backend output item may expose. The duck-typed
// probing of the upstream service becomes this closed set of variants; the
// chain in extractor.go tries them in a fixed priority order.

// URLAccessor is a callable accessor that resolves the artifact URL, doing
// work (and possibly failing) on invocation.
type URLAccessor interface {
	URL() (string, error)
}

// URLCarrier carries an already-resolved artifact URL.
type URLCarrier interface {
	ArtifactURL() string
}

// ByteReader returns the full artifact contents as one buffer.
type ByteReader interface {
	Read() ([]byte, error)
}

// StreamOpener returns a file-like handle over the artifact contents. The
// extractor closes the handle on every exit path.
type StreamOpener interface {
	Open() (io.ReadCloser, error)
}

// ChunkStreamer yields the artifact contents as a sequence of byte chunks.
// The channel must be closed by the producer; producers should honor ctx.
type ChunkStreamer interface {
	Stream(ctx context.Context) (<-chan []byte, error)
}

// FileSaver writes the artifact to a destination path chosen by the
// extractor, optionally returning the path it actually wrote.
type FileSaver interface {
	Save(dst string) (string, error)
}
