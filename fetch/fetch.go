// Package fetch is the plain-HTTP download path shared by the site scrapers.
// It speaks with a Chrome TLS fingerprint (utls) and browser-like headers so
// menu pages behind basic bot filtering serve the same markup a browser gets.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/time/rate"

	"github.com/saratoga-data/menuharvest/config"
	"github.com/saratoga-data/menuharvest/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// maxBodyBytes caps any single response read.
const maxBodyBytes = 10 * 1024 * 1024

// Client performs rate-limited HTTP GETs with retries on the download step.
// It is safe for concurrent use.
type Client struct {
	cfg     config.FetchConfig
	limiter *rate.Limiter
	cache   *docCache
}

// NewClient creates a fetch client from config.
func NewClient(cfg config.FetchConfig) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cache:   newDocCache(256, 15*time.Minute),
	}
}

// Options carries per-request tweaks a site script needs.
type Options struct {
	Headers map[string]string
	Cookies []*http.Cookie
	Referer string
	Accept  string
	NoCache bool
}

// Option mutates Options.
type Option func(*Options)

// WithHeader sets one extra request header.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		if o.Headers == nil {
			o.Headers = map[string]string{}
		}
		o.Headers[key] = value
	}
}

// WithCookies attaches cookies to the request.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(o *Options) { o.Cookies = append(o.Cookies, cookies...) }
}

// WithReferer overrides the Referer header.
func WithReferer(referer string) Option {
	return func(o *Options) { o.Referer = referer }
}

// WithAccept overrides the Accept header.
func WithAccept(accept string) Option {
	return func(o *Options) { o.Accept = accept }
}

// NoCache bypasses the in-memory document cache.
func NoCache() Option {
	return func(o *Options) { o.NoCache = true }
}

// Get retrieves the URL, retrying transient failures with exponential
// backoff. Responses are cached in memory so a script re-requesting the same
// document (item detail pages shared by several sections) does not refetch.
func (c *Client) Get(ctx context.Context, targetURL string, opts ...Option) ([]byte, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	if !o.NoCache {
		if body, ok := c.cache.get(targetURL); ok {
			return body, nil
		}
	}

	var body []byte
	var lastErr error
	attempts := 0
	delay := c.cfg.RetryBaseDelay
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			slog.Warn("fetch retry", "url", targetURL, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, models.NewScrapeError(models.ErrCodeTimeout, "fetch canceled", ctx.Err())
			}
			delay *= 2
		}

		attempts = attempt

		var retryable bool
		body, retryable, lastErr = c.doGet(ctx, targetURL, &o)
		if lastErr == nil {
			if !o.NoCache {
				c.cache.put(targetURL, body)
			}
			return body, nil
		}
		if !retryable {
			break
		}
	}
	return nil, models.NewScrapeError(models.ErrCodeFetch,
		fmt.Sprintf("GET %s failed after %d attempt(s)", targetURL, attempts), lastErr)
}

// GetPDF downloads a PDF, validating the %PDF magic bytes and a minimum size
// so an HTML error page never reaches the vision extractor.
func (c *Client) GetPDF(ctx context.Context, targetURL string) ([]byte, error) {
	body, err := c.Get(ctx, targetURL,
		WithAccept("application/pdf,application/octet-stream,*/*"),
		NoCache(),
	)
	if err != nil {
		return nil, err
	}
	if len(body) < 100 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidPDF,
			fmt.Sprintf("downloaded file too small (%d bytes), likely not a PDF", len(body)), nil)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, models.NewScrapeError(models.ErrCodeInvalidPDF,
			"downloaded file does not start with %PDF", nil)
	}
	return body, nil
}

// doGet performs one request. The bool return reports whether the failure is
// worth retrying (network errors and 5xx/429; other 4xx fail fast).
func (c *Client) doGet(ctx context.Context, targetURL string, o *Options) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	transport := &http.Transport{
		DialTLSContext: dialTLSChrome,
	}
	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	accept := o.Accept
	if accept == "" {
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if o.Referer != "" {
		req.Header.Set("Referer", o.Referer)
	}
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}
	for _, ck := range o.Cookies {
		req.AddCookie(ck)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
