// Package fetch implements the HTTP transport of the sync pipeline:
// conditional metadata probes and streamed document downloads, both with
// bounded retry and exponential backoff.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/corpus"
	"github.com/JakeFAU/standards-sync/internal/metrics"
)

// Config controls client behavior.
type Config struct {
	UserAgent       string
	MetadataTimeout time.Duration
	DownloadTimeout time.Duration
	MaxAttempts     int
	BackoffBase     float64
	BackoffScale    time.Duration
}

// Client implements corpus.MetadataClient and corpus.Downloader over a
// shared pooled transport.
type Client struct {
	cfg    Config
	client *http.Client
	retry  *corpus.ExponentialRetryPolicy
	logger *zap.Logger
}

// New builds a Client. Zero timeouts fall back to 25s for metadata and
// 120s for downloads.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 25 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		retry:  corpus.NewExponentialRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffScale),
		logger: logger,
	}
}

// Head retrieves the change-detection headers for url. It issues a HEAD
// request first; servers that reject HEAD degrade to a streamed GET whose
// body is discarded after the headers arrive. Headers the server omits are
// returned as zero values, never as errors.
func (c *Client) Head(ctx context.Context, url string) (corpus.HeadMeta, error) {
	var meta corpus.HeadMeta
	err := c.withRetry(ctx, "metadata "+url, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.MetadataTimeout)
		defer cancel()

		resp, err := c.do(reqCtx, http.MethodHead, url)
		if err == nil && resp.StatusCode != http.StatusOK {
			// Some servers are unfriendly to HEAD.
			resp.Body.Close()
			resp, err = c.do(reqCtx, http.MethodGet, url)
		}
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("metadata request for %s: HTTP %d", url, resp.StatusCode)
		}
		meta = parseMeta(resp.Header)
		return nil
	})
	if err != nil {
		return corpus.HeadMeta{}, err
	}
	return meta, nil
}

// Download streams url to dest and returns the number of bytes written.
// On any failure the partial file is removed so a torn download never
// masquerades as a complete document.
func (c *Client) Download(ctx context.Context, url, dest string) (int64, error) {
	var written int64
	err := c.withRetry(ctx, "download "+url, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
		defer cancel()

		start := time.Now()
		resp, err := c.do(reqCtx, http.MethodGet, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
		n, err := io.Copy(f, resp.Body)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dest)
			return fmt.Errorf("write %s: %w", dest, err)
		}
		written = n
		metrics.AddBytes(n)
		metrics.ObserveDownload(time.Since(start))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request for %s: %w", method, url, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	metrics.ObserveRequest(method, err)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}

// withRetry runs fn up to the policy's attempt budget, sleeping the backoff
// delay between attempts. The last error is surfaced.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !c.retry.ShouldRetry(lastErr, attempt) {
			return lastErr
		}
		delay := c.retry.Backoff(attempt)
		c.logger.Warn("request failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}
}

func parseMeta(h http.Header) corpus.HeadMeta {
	meta := corpus.HeadMeta{
		ETag:         strings.TrimSpace(strings.Trim(h.Get("ETag"), `"`)),
		LastModified: strings.TrimSpace(h.Get("Last-Modified")),
	}
	if v := h.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			meta.ContentLength = n
		}
	}
	return meta
}
