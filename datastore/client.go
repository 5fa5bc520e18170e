package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client fetches datasets from the data store REST API. A dataset manifest
// enumerates the dataset's files; each file is then downloaded into the
// destination directory, preserving relative paths.
type Client struct {
	endpoint string
	http     *http.Client
	retry    RetryConfig
	logger   *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a data store client for the given API endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 10 * time.Minute},
		retry:    DefaultRetryConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// manifestEntry is one file in a dataset manifest.
type manifestEntry struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type datasetManifest struct {
	Files []manifestEntry `json:"files"`
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, handle, dest string) error {
	manifest, err := c.fetchManifest(ctx, handle)
	if err != nil {
		return &FetchError{Handle: handle, Err: err}
	}
	if len(manifest.Files) == 0 {
		return &FetchError{Handle: handle, Err: fmt.Errorf("dataset has no files")}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return &FetchError{Handle: handle, Err: err}
	}

	c.logger.Info("Downloading dataset",
		slog.String("handle", handle),
		slog.Int("files", len(manifest.Files)))

	for _, entry := range manifest.Files {
		rel := filepath.Clean(entry.Path)
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
			return &FetchError{Handle: handle, Err: fmt.Errorf("manifest path escapes dataset root: %q", entry.Path)}
		}
		if err := c.downloadFile(ctx, entry.URL, filepath.Join(dest, rel)); err != nil {
			return &FetchError{Handle: handle, Err: fmt.Errorf("file %q: %w", entry.Path, err)}
		}
	}
	return nil
}

func (c *Client) fetchManifest(ctx context.Context, handle string) (*datasetManifest, error) {
	u := fmt.Sprintf("%s/datasets/%s/manifest", c.endpoint, url.PathEscape(handle))

	var manifest datasetManifest
	err := withRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return NewTransientError(err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}
		return json.NewDecoder(resp.Body).Decode(&manifest)
	})
	if err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (c *Client) downloadFile(ctx context.Context, fileURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	return withRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return NewTransientError(err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}

		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(f, resp.Body)
		closeErr := f.Close()
		if copyErr != nil {
			return NewTransientError(copyErr)
		}
		return closeErr
	})
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500 || code == http.StatusTooManyRequests:
		return NewTransientError(fmt.Errorf("server returned %d", code))
	default:
		return fmt.Errorf("server returned %d", code)
	}
}
