package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"avatardl/internal/services"
)

// Response is an open byte stream. Callers must close Body.
type Response struct {
	Body io.ReadCloser
	// ContentLength is -1 when the server did not declare one.
	ContentLength int64
	ContentType   string
	FinalURL      string
}

// Fetcher opens a byte stream for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

const maxRedirects = 10

// limiterBurst is the largest read handed to the limiter at once.
const limiterBurst = 64 * 1024

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// Option customises an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the default HTTP client.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = strings.TrimSpace(ua)
	}
}

// WithMaxBytesPerSecond caps aggregate throughput. Zero or negative disables the cap.
func WithMaxBytesPerSecond(limit int64) Option {
	return func(f *HTTPFetcher) {
		if limit <= 0 {
			f.limiter = nil
			return
		}
		burst := limiterBurst
		if limit < int64(burst) {
			burst = int(limit)
		}
		f.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// NewHTTPFetcher constructs a fetcher with redirect limits and proxy support.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET and returns the body for streaming.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if strings.TrimSpace(url) == "" {
		return nil, services.Wrap(services.ErrTransfer, "transfer", "fetch", "descriptor has no url", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransfer, "transfer", "build request", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransfer, "transfer", "fetch", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrTransfer, "transfer", "fetch", fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
	}

	var body io.ReadCloser = &streamReader{ReadCloser: resp.Body, url: url}
	if f.limiter != nil {
		body = &limitedReader{ReadCloser: body, ctx: ctx, limiter: f.limiter}
	}
	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{
		Body:          body,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
		FinalURL:      final,
	}, nil
}

// streamReader tags mid-stream failures as transfer errors.
type streamReader struct {
	io.ReadCloser
	url string
}

func (s *streamReader) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = services.Wrap(services.ErrTransfer, "transfer", "read", s.url, err)
	}
	return n, err
}

type limitedReader struct {
	io.ReadCloser
	ctx     context.Context
	limiter *rate.Limiter
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if burst := l.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := l.ReadCloser.Read(p)
	if n > 0 {
		if waitErr := l.limiter.WaitN(l.ctx, n); waitErr != nil && err == nil {
			err = waitErr
		}
	}
	return n, err
}
