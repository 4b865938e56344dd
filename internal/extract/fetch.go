package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// FetchConfig configures the dataset fetcher.
//
// Zero values are given sensible defaults:
//   - Timeout:        5m
//   - MaxRetries:     3
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type FetchConfig struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int

	// InitialBackoff is the base backoff duration for the first retry.
	// Each subsequent retry doubles the previous backoff up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff duration.
	MaxBackoff time.Duration

	// Transport is an optional custom RoundTripper for tests.
	Transport http.RoundTripper
}

// Fetcher downloads the dataset archive and unpacks its CSV files, retrying
// transient failures with exponential backoff.
type Fetcher struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	log            logger.Logger
}

// NewFetcher constructs a Fetcher from FetchConfig, applying defaults for
// zero values.
func NewFetcher(cfg FetchConfig, log logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		log:            log.Named("fetch"),
	}
}

// Ensure makes dir hold the raw dataset. When every expected CSV file is
// already present the download is skipped entirely, which keeps repeated runs
// offline-friendly. Otherwise the archive at url is downloaded and its CSV
// files are unpacked into dir.
func (f *Fetcher) Ensure(ctx context.Context, url, dir string) error {
	if missing := missingFiles(dir); len(missing) == 0 {
		f.log.Info("dataset already present", logger.String("dir", dir))
		return nil
	} else if url == "" {
		return &SourceNotFoundError{Path: filepath.Join(dir, missing[0])}
	}

	body, err := f.download(ctx, url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	n, err := unzipCSVs(body, dir)
	if err != nil {
		return err
	}
	f.log.Info("dataset unpacked",
		logger.String("url", url),
		logger.String("dir", dir),
		logger.Int("files", n))

	if missing := missingFiles(dir); len(missing) > 0 {
		return fmt.Errorf("archive did not contain %s", missing[0])
	}
	return nil
}

// missingFiles lists the expected dataset files absent from dir.
func missingFiles(dir string) []string {
	var missing []string
	for _, file := range tableFiles {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			missing = append(missing, file)
		}
	}
	return missing
}

// download fetches url with retry and backoff on transient failures.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	attempts := f.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := f.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var perm *permanentError
		if errors.As(err, &perm) || attempt+1 >= attempts {
			break
		}

		backoff := backoffDuration(f.initialBackoff, attempt, f.maxBackoff)
		f.log.Warn("download failed, retrying",
			logger.String("url", url),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", backoff),
			logger.Err(err))
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("download %s: %w", url, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d", resp.StatusCode)
		if isRetryableStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, &permanentError{err}
	}
	return io.ReadAll(resp.Body)
}

// permanentError marks a failure no retry can fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// isRetryableStatus reports whether the status code should trigger a retry.
// 5xx and 429 are treated as transient; everything else is final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff duration for the given
// 0-based retry index, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits for d, aborting early if ctx is canceled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// unzipCSVs writes every CSV entry of the archive into dir, flattening any
// directory structure. Entry names are sanitized so an archive cannot write
// outside dir.
func unzipCSVs(archive []byte, dir string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	n := 0
	for _, entry := range zr.File {
		name := filepath.Base(entry.Name)
		if entry.FileInfo().IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if err := extractEntry(entry, filepath.Join(dir, name)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func extractEntry(entry *zip.File, dst string) error {
	r, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open %s in archive: %w", entry.Name, err)
	}
	defer r.Close()

	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return w.Close()
}
