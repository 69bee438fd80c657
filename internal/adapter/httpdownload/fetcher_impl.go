package httpdownload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/pkg/utils"
	"go.uber.org/zap"
)

const fallbackFileName = "document.pdf"

// FetcherImpl downloads documents over HTTP into a local directory.
type FetcherImpl struct {
	client  *http.Client
	dir     string
	timeout time.Duration
	logger  *zap.Logger
}

var _ repository.DocumentFetcher = (*FetcherImpl)(nil)

// NewFetcher creates a fetcher writing into dir.
func NewFetcher(dir string, timeout time.Duration, logger *zap.Logger) *FetcherImpl {
	return &FetcherImpl{
		client:  &http.Client{},
		dir:     dir,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "pdf_fetcher")),
	}
}

// Fetch downloads rawURL and returns the path of the written file. Every
// download gets its own directory, so the file keeps the name from the URL
// without colliding with another site's document of the same name.
func (f *FetcherImpl) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", repository.ErrDownloadFailed, rawURL, err)
	}
	req.Header.Set("User-Agent", "sitewatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", repository.ErrDownloadFailed, rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dir, err := os.MkdirTemp(f.dir, "pdf-*")
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, utils.FileNameFromURL(rawURL, ".pdf", fallbackFileName))

	written, err := writeFile(path, resp.Body)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%w: %s: %v", repository.ErrDownloadFailed, rawURL, err)
	}

	f.logger.Info("PDF downloaded", zap.String("url", rawURL), zap.String("path", path), zap.Int64("bytes", written))
	return path, nil
}

// writeFile stores r at path through a temporary file in the same directory.
func writeFile(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	return written, os.Rename(tmp.Name(), path)
}
