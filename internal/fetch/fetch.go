// Package fetch downloads audio from podcast URLs. CDNs are picky: the
// client follows a bounded number of redirects, sends a browser-like
// User-Agent most podcast hosts allow-list, and never sends Range (a full
// download is required for transcription).
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Errors returned by the fetcher.
var (
	// ErrNetwork indicates a transport failure or timeout.
	ErrNetwork = errors.New("network error")

	// ErrTooManyRedirects indicates the redirect chain exceeded the hop limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrInvalidPayload indicates the response body is below the minimum
	// plausible audio size.
	ErrInvalidPayload = errors.New("invalid payload")
)

// HTTPError is a non-2xx response after redirects.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Fetch configuration.
const (
	// maxRedirects caps redirect hops; cycles are rejected by count.
	maxRedirects = 5

	// requestTimeout bounds a whole download, reads included.
	requestTimeout = 120 * time.Second

	// minPayloadSize rejects error pages and stub responses posing as audio.
	minPayloadSize = 1024

	// progressInterval is how often download progress is reported.
	progressInterval = 5 * 1024 * 1024

	// transientRetries is the retryablehttp retry budget for transient
	// transport failures and 5xx responses within one Fetch call.
	transientRetries = 2

	// userAgent is browser-like; several podcast CDNs reject unknown agents.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// ProgressFunc receives the number of bytes downloaded so far.
type ProgressFunc func(bytesRead int64)

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads audio bytes over HTTP.
type Fetcher struct {
	client     httpDoer
	onProgress ProgressFunc
	log        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(c httpDoer) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithProgress sets a progress callback invoked roughly every 5 MiB.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) { f.onProgress = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// New creates a Fetcher with transient-retry transport and redirect capping.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{log: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newRetryingClient()
	}
	return f
}

// newRetryingClient builds the production HTTP client: retryablehttp for
// transient transport failures, a redirect policy bounded by hop count, and
// an overall request timeout.
func newRetryingClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = transientRetries
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{
		Timeout: requestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
	return rc.StandardClient()
}

// Fetch downloads the URL into memory. It follows up to 5 redirects,
// enforces the 120 s request timeout, and rejects bodies under 1024 bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "audio/*, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		if hasRedirectLoop(err) {
			return nil, ErrTooManyRedirects
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode}
	}

	data, err := f.readWithProgress(resp.Body, resp.ContentLength)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	if int64(len(data)) < minPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrInvalidPayload, len(data), minPayloadSize)
	}

	f.log.Info("audio downloaded", "url", url, "bytes", len(data))
	return data, nil
}

// readWithProgress streams the body into memory, reporting every ~5 MiB.
func (f *Fetcher) readWithProgress(r io.Reader, contentLength int64) ([]byte, error) {
	var buf bytes.Buffer
	if contentLength > 0 {
		buf.Grow(int(min(contentLength, 64*1024*1024)))
	}

	chunk := make([]byte, 256*1024)
	var total, lastReport int64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			total += int64(n)
			if total-lastReport >= progressInterval {
				lastReport = total
				f.log.Info("download progress", "bytes", total, "total", contentLength)
				if f.onProgress != nil {
					f.onProgress(total)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if f.onProgress != nil && total > 0 {
		f.onProgress(total)
	}
	return buf.Bytes(), nil
}

// hasRedirectLoop digs the redirect sentinel out of the url.Error wrapping
// applied by net/http (and the retry wrapping applied by retryablehttp).
func hasRedirectLoop(err error) bool {
	return errors.Is(err, ErrTooManyRedirects) ||
		(err != nil && strings.Contains(err.Error(), ErrTooManyRedirects.Error()))
}
