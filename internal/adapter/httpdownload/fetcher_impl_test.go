package httpdownload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/sitewatch-service/internal/repository"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/notice.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 notice"))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 generic"))
	})
	mux.HandleFunc("/slow.pdf", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newTestServer(t)
	dir := filepath.Join(t.TempDir(), "downloads")
	f := NewFetcher(dir, 5*time.Second, zap.NewNop())

	path, err := f.Fetch(context.Background(), srv.URL+"/files/notice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "notice.pdf", filepath.Base(path))
	assert.Equal(t, dir, filepath.Dir(filepath.Dir(path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 notice", string(data))
}

func TestFetch_FallbackName(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	f := NewFetcher(dir, 5*time.Second, zap.NewNop())

	path, err := f.Fetch(context.Background(), srv.URL+"/download?id=7")
	require.NoError(t, err)
	assert.Equal(t, "document.pdf", filepath.Base(path))
}

func TestFetch_SameNameDoesNotCollide(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(t.TempDir(), 5*time.Second, zap.NewNop())

	first, err := f.Fetch(context.Background(), srv.URL+"/download?id=1")
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), srv.URL+"/download?id=2")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Base(first), filepath.Base(second))
	for _, p := range []string{first, second} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 generic", string(data))
	}
}

func TestFetch_Failures(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(t.TempDir(), 200*time.Millisecond, zap.NewNop())

	tests := []struct {
		name string
		url  string
	}{
		{name: "not found", url: srv.URL + "/missing.pdf"},
		{name: "timeout", url: srv.URL + "/slow.pdf"},
		{name: "bad url", url: "://nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), tt.url)
			assert.ErrorIs(t, err, repository.ErrDownloadFailed)
		})
	}
}
