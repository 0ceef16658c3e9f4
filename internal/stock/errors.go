package stock

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrorKind classifies why fetching stocks failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNoConnectivity
	KindTimeout
	KindTransport
	KindClient // HTTP 4xx
	KindServer // HTTP 5xx
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoConnectivity:
		return "no_connectivity"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindClient:
		return "client_error"
	case KindServer:
		return "server_error"
	default:
		return "unknown"
	}
}

// MessageFormatter turns a failure kind into text a user can read.
type MessageFormatter func(ErrorKind) string

// GenericMessage is shown when nothing more specific is known.
const GenericMessage = "Something went wrong"

// DefaultMessage is the built-in MessageFormatter.
func DefaultMessage(kind ErrorKind) string {
	switch kind {
	case KindNoConnectivity:
		return "No internet connection. Please check your network."
	case KindTimeout:
		return "Connection timed out. Please try again."
	case KindTransport:
		return "A network error occurred. Please try again."
	case KindClient:
		return "The request failed. Please try again later."
	case KindServer:
		return "The server is having trouble. Please try again later."
	default:
		return GenericMessage
	}
}

// FetchError is returned when neither the network nor the cache produced stocks.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type httpStatusError interface {
	HTTPStatus() int
}

// Classify maps a fetch failure onto the error taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.HTTPStatus(); {
		case code >= 400 && code <= 499:
			return KindClient
		case code >= 500 && code <= 599:
			return KindServer
		default:
			return KindUnknown
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindNoConnectivity
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return KindNoConnectivity
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) || netErr != nil ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return KindTransport
	}

	return KindUnknown
}

// UserMessage extracts the presentable message from err, falling back to GenericMessage.
func UserMessage(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Message != "" {
		return fetchErr.Message
	}
	return GenericMessage
}
