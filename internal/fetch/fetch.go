// Package fetch downloads remote population files so they can be converted
// like local ones.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"spopconv/internal/config"
	"spopconv/internal/logger"
)

// Fetch errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrTooLarge             = errors.New("remote file exceeds size limit")
)

const fallbackName = "download.spop"

// IsURL reports whether input names an http or https resource.
func IsURL(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetcher downloads files with config-driven retry logic.
type Fetcher struct {
	client *http.Client
	cfg    config.FetchConfig
	log    *logger.Logger
}

// New creates a fetcher.
func New(cfg config.FetchConfig, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Discard()
	}

	return &Fetcher{
		client: &http.Client{Timeout: cfg.GetTimeout()},
		cfg:    cfg,
		log:    log,
	}
}

// Download saves rawURL into the configured directory under the last path
// segment of the URL and returns the local path. The file only appears once
// the body has been received completely.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = fallbackName
	}

	if err := os.MkdirAll(f.cfg.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	dest := filepath.Join(f.cfg.Dir, name)

	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := sleep(ctx, f.cfg.GetRetryDelay(attempt)); err != nil {
			return "", err
		}

		start := time.Now()
		retry, err := f.try(ctx, rawURL, dest)

		if err == nil {
			f.log.Debug("downloaded", "url", rawURL, "path", dest, "attempt", attempt, "duration", time.Since(start))
			return dest, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, f.cfg.MaxAttempts, err)

		if !retry {
			break
		}

		f.log.Warn("download failed, retrying", "url", rawURL, "attempt", attempt, "error", err)
	}

	return "", fmt.Errorf("failed to fetch %s: %w", rawURL, lastErr)
}

// try performs one request and reports whether a failure is worth retrying.
func (f *Fetcher) try(ctx context.Context, rawURL, dest string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "spopconv/1.0")
	req.Header.Set("Accept", "text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return isRetryableStatus(resp.StatusCode), fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	limit := f.cfg.MaxBytes()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, limit+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return true, fmt.Errorf("failed to read response body: %w", err)
	}

	if n > limit {
		return false, fmt.Errorf("%w (%d MB)", ErrTooLarge, f.cfg.MaxSizeMb)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return false, fmt.Errorf("failed to save download: %w", err)
	}

	return false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isRetryableStatus reports whether a status code signals a temporary failure.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway:
		return true
	}

	return false
}
