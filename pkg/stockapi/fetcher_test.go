package stockapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"
)

// scriptedServer answers each request with the next status in codes and
// repeats the last one once the script runs out.
func scriptedServer(t *testing.T, codes ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		code := codes[len(codes)-1]
		if n <= len(codes) {
			code = codes[n-1]
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = w.Write([]byte(`[{"ticker":"AAPL","name":"Apple Inc.","currentPrice":150.0}]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fastFetcher(client *http.Client) *Fetcher {
	return NewFetcher(client, WithMaxRetries(3), WithInitialDelay(time.Millisecond))
}

// go test -v --run TestFetchSuccessFirstAttempt
func TestFetchSuccessFirstAttempt(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusOK)

	body, err := fastFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), "AAPL") {
		t.Errorf("unexpected body: %s", body)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

// go test -v --run TestFetchRetriesTransientStatuses
func TestFetchRetriesTransientStatuses(t *testing.T) {
	tests := []struct {
		name  string
		codes []int
		calls int32
	}{
		{"503 then ok", []int{503, 200}, 2},
		{"500 502 then ok", []int{500, 502, 200}, 3},
		{"504 then ok", []int{504, 200}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, tt.codes...)

			if _, err := fastFetcher(srv.Client()).Fetch(context.Background(), srv.URL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := atomic.LoadInt32(calls); got != tt.calls {
				t.Errorf("expected %d calls, got %d", tt.calls, got)
			}
		})
	}
}

// go test -v --run TestFetchDoesNotRetryClientErrors
func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusNotImplemented} {
		srv, calls := scriptedServer(t, code)

		_, err := fastFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected *HTTPError for %d, got %v", code, err)
		}
		if httpErr.StatusCode != code {
			t.Errorf("expected status %d, got %d", code, httpErr.StatusCode)
		}
		if got := atomic.LoadInt32(calls); got != 1 {
			t.Errorf("status %d: expected 1 call, got %d", code, got)
		}
	}
}

// truncatedBody yields prefix, then fails as a connection cut mid-body would.
func truncatedBody(prefix string) io.ReadCloser {
	return io.NopCloser(io.MultiReader(strings.NewReader(prefix), iotest.ErrReader(io.ErrUnexpectedEOF)))
}

// go test -v --run TestFetchTruncatedBody
func TestFetchTruncatedBody(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCalls int32
		wantHTTP  bool
	}{
		{"not found is final", http.StatusNotFound, 1, true},
		{"bad request is final", http.StatusBadRequest, 1, true},
		{"success is retried", http.StatusOK, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				atomic.AddInt32(&calls, 1)
				return &http.Response{
					StatusCode: tt.code,
					Body:       truncatedBody("short"),
					Request:    r,
				}, nil
			})}

			_, err := fastFetcher(client).Fetch(context.Background(), "http://stocks.test/list.json")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var httpErr *HTTPError
			if got := errors.As(err, &httpErr); got != tt.wantHTTP {
				t.Fatalf("expected *HTTPError=%v, got %v", tt.wantHTTP, err)
			}
			if tt.wantHTTP && (httpErr.StatusCode != tt.code || httpErr.Body != "short") {
				t.Errorf("unexpected HTTP error: %+v", httpErr)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

// go test -v --run TestFetchExhaustsOnServerErrors
func TestFetchExhaustsOnServerErrors(t *testing.T) {
	srv, calls := scriptedServer(t, 500, 502, 503)

	_, err := fastFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected last status 503, got %d", httpErr.StatusCode)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

// go test -v --run TestFetchRetriesTransportErrors
func TestFetchRetriesTransportErrors(t *testing.T) {
	for failures := 0; failures < 3; failures++ {
		var calls int32
		client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			n := atomic.AddInt32(&calls, 1)
			if int(n) <= failures {
				return nil, errors.New("connection reset by peer")
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`[]`)),
				Request:    r,
			}, nil
		})}

		if _, err := fastFetcher(client).Fetch(context.Background(), "http://stocks.test/list.json"); err != nil {
			t.Fatalf("failures=%d: unexpected error: %v", failures, err)
		}
		if got := atomic.LoadInt32(&calls); got != int32(failures+1) {
			t.Errorf("failures=%d: expected %d calls, got %d", failures, failures+1, got)
		}
	}
}

// go test -v --run TestFetchSurfacesLastTransportError
func TestFetchSurfacesLastTransportError(t *testing.T) {
	var calls int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 3 {
			return nil, errors.New("third failure")
		}
		return nil, errors.New("network error")
	})}

	_, err := fastFetcher(client).Fetch(context.Background(), "http://stocks.test/list.json")
	if err == nil || !strings.Contains(err.Error(), "third failure") {
		t.Fatalf("expected last transport error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

// go test -v --run TestFetchStopsOnCancel
func TestFetchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return nil, context.Canceled
	})}

	f := NewFetcher(client, WithMaxRetries(5), WithInitialDelay(time.Second))
	if _, err := f.Fetch(ctx, "http://stocks.test/list.json"); err == nil {
		t.Fatal("expected error after cancel")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call after cancel, got %d", got)
	}
}

// go test -v --run TestBackoffSequence
func TestBackoffSequence(t *testing.T) {
	f := NewFetcher(nil)
	b := f.backoff()

	want := []time.Duration{300 * time.Millisecond, 600 * time.Millisecond, 1200 * time.Millisecond}
	for i, w := range want {
		got, stop := b.Next()
		if stop {
			t.Fatalf("backoff stopped at step %d", i)
		}
		if got != w {
			t.Errorf("step %d: expected %s, got %s", i, w, got)
		}
	}

	// every call starts from the initial delay again
	if got, _ := f.backoff().Next(); got != 300*time.Millisecond {
		t.Errorf("expected fresh sequence to start at 300ms, got %s", got)
	}
}

// go test -v --run TestFetchNoDelayAfterFinalAttempt
func TestFetchNoDelayAfterFinalAttempt(t *testing.T) {
	srv, _ := scriptedServer(t, 503)

	// delays: 20ms + 40ms between three attempts, none after the last
	f := NewFetcher(srv.Client(), WithMaxRetries(3), WithInitialDelay(20*time.Millisecond))
	start := time.Now()
	_, _ = f.Fetch(context.Background(), srv.URL)
	elapsed := time.Since(start)

	if elapsed < 60*time.Millisecond {
		t.Errorf("expected at least 60ms of backoff, got %s", elapsed)
	}
	if elapsed > 60*time.Millisecond+80*time.Millisecond+time.Second {
		t.Errorf("unexpected extra delay: %s", elapsed)
	}
}
