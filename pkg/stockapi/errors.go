package stockapi

import (
	"errors"
	"fmt"
	"net/http"
)

const maxErrorBody = 512

// HTTPError is a non-2xx response from the stock endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func newHTTPError(code int, body []byte) *HTTPError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{StatusCode: code, Body: string(body)}
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stock api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("stock api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// HTTPStatus lets callers classify the failure without importing this package.
func (e *HTTPError) HTTPStatus() int {
	return e.StatusCode
}

// requestError marks failures to build a request; those never succeed on retry.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// isRetryable reports whether err is a transport failure or one of the
// transient 5xx statuses.
func isRetryable(err error) bool {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus[httpErr.StatusCode]
	}
	return true
}
