package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/artifacts"
	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

// downloadChunkSize bounds memory use while writing fetched artifacts.
const downloadChunkSize = 8 * 1024

// Downloader fetches located artifact URLs into the artifact store.
type Downloader struct {
	store  *artifacts.Store
	client *http.Client
	logger *zap.Logger
}

// NewDownloader creates a downloader. timeout bounds each whole download.
func NewDownloader(store *artifacts.Store, timeout time.Duration, logger *zap.Logger) *Downloader {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Downloader{
		store:  store,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "downloader")),
	}
}

// Download fetches url into a fresh artifact whose extension is inferred
// from the URL. Non-success statuses and transport failures are
// DOWNLOAD_FAILED errors.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", types.NewError(types.ErrDownloadFailed, "invalid artifact url").WithCause(err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrDownloadFailed, "artifact download failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", types.NewError(types.ErrDownloadFailed,
			fmt.Sprintf("artifact download failed: status=%d", resp.StatusCode)).WithRetryable(resp.StatusCode >= 500)
	}

	out, err := d.store.Create(artifacts.ExtFromURL(url))
	if err != nil {
		return "", types.NewError(types.ErrDownloadFailed, "failed to create artifact file").WithCause(err)
	}

	d.logger.Info("downloading generated video",
		zap.String("url", url),
		zap.String("path", out.Name()))

	if _, err := io.CopyBuffer(out, resp.Body, make([]byte, downloadChunkSize)); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", types.NewError(types.ErrDownloadFailed, "artifact download interrupted").WithCause(err).WithRetryable(true)
	}
	if err := out.Close(); err != nil {
		return "", types.NewError(types.ErrDownloadFailed, "failed to finalize artifact").WithCause(err)
	}

	return out.Name(), nil
}
