package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultDownloadTimeout bounds how long one acquisition may take,
// response body included.
const DefaultDownloadTimeout = 12 * time.Second

// Source supplies the media bytes for one upload.
type Source interface {
	// Filename is the name the uploader gave the media, extension included.
	Filename() string
	// Open returns the media stream. The stream honors the context; a
	// deadline hit mid-read surfaces as a read error.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// DownloadError reports a failed acquisition: a timeout, a transport
// fault, or a non-success HTTP status.
type DownloadError struct {
	Source string
	Status string
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("failed to download %s: %s", e.Source, e.Status)
	}
	return fmt.Sprintf("failed to download %s: %v", e.Source, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

var _ error = (*DownloadError)(nil)

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// URLSource streams an HTTP(S) response body. It covers both pasted
// media URLs and platform attachments, which are fetched by their URL.
type URLSource struct {
	URL     string
	Name    string
	Client  HTTPClient
	Timeout time.Duration
}

func (s *URLSource) Filename() string {
	return s.Name
}

func (s *URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		cancel()
		return nil, &DownloadError{Source: s.URL, Err: err}
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, &DownloadError{Source: s.URL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &DownloadError{Source: s.URL, Status: resp.Status}
	}

	// The deadline stays armed while the body is read.
	return &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

var _ Source = (*URLSource)(nil)

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// FileSource reads media from a local file. Used by the development CLI
// to exercise the pipeline without Discord.
type FileSource struct {
	Path string
}

func (s *FileSource) Filename() string {
	return filepath.Base(s.Path)
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

var _ Source = (*FileSource)(nil)
