package stockapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Defaults for the retry policy.
const (
	DefaultMaxRetries    = 3
	DefaultInitialDelay  = 300 * time.Millisecond
	DefaultBackoffFactor = 2.0
)

// Fetcher issues GET requests with bounded exponential backoff on transient failures.
// It keeps no state between calls.
type Fetcher struct {
	httpClient    *http.Client
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	logger        *zap.Logger
}

type Option func(*Fetcher)

func WithMaxRetries(n int) Option {
	return func(f *Fetcher) { f.maxRetries = n }
}

func WithInitialDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.initialDelay = d }
}

func WithBackoffFactor(factor float64) Option {
	return func(f *Fetcher) { f.backoffFactor = factor }
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

func NewFetcher(httpClient *http.Client, opts ...Option) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	f := &Fetcher{
		httpClient:    httpClient,
		maxRetries:    DefaultMaxRetries,
		initialDelay:  DefaultInitialDelay,
		backoffFactor: DefaultBackoffFactor,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxRetries < 1 {
		f.maxRetries = 1
	}
	return f
}

// Fetch GETs url and returns the body of the first 2xx response.
// Transport failures and 500/502/503/504 are retried up to maxRetries attempts in
// total; any other non-2xx status is returned at once as *HTTPError. When attempts
// run out the last error is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		body    []byte
		attempt int
	)

	backoff := retry.WithMaxRetries(uint64(f.maxRetries-1), f.backoff())
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		data, err := f.get(ctx, url)
		if err == nil {
			body = data
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !isRetryable(err) {
			return err
		}

		f.logger.Debug("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", f.maxRetries),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// backoff yields initialDelay, then multiplies by backoffFactor after each retry.
// A fresh sequence is built per Fetch call.
func (f *Fetcher) backoff() retry.Backoff {
	next := f.initialDelay
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d := next
		next = time.Duration(float64(next) * f.backoffFactor)
		return d, false
	})
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)

	// The status decides retryability; a short body on an error response is still that error.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, data)
	}
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}
