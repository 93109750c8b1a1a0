package extractor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindTimeout
	KindAccessDenied
	KindParseFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindAccessDenied:
		return "access_denied"
	case KindParseFailure:
		return "parse_failure"
	default:
		return "unknown"
	}
}

var (
	ErrUnsupported            = errors.New("unsupported content")
	ErrMissingCredentials     = errors.New("credentials are not configured")
	ErrEmptyText              = errors.New("extracted text is empty")
	ErrBodyTooLarge           = errors.New("response body is too large")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrMalformedURL           = errors.New("URL does not match the expected pattern")
)

// Error is the only error kind the registry returns for a failed extraction.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s (kind = %s): %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d (URL = %s)", e.StatusCode, e.URL)
}

func wrapError(rawURL string, err error) *Error {
	var extractErr *Error
	if errors.As(err, &extractErr) {
		return extractErr
	}

	return &Error{Kind: kindOf(err), URL: rawURL, Err: err}
}

func kindOf(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return kindOfStatus(statusErr.StatusCode)
	}

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return KindAccessDenied
	case errors.Is(err, ErrEmptyText),
		errors.Is(err, ErrBodyTooLarge),
		errors.Is(err, ErrUnsupportedContentType),
		errors.Is(err, ErrMalformedURL):
		return KindParseFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNotFound
	}

	return KindParseFailure
}

func kindOfStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusProxyAuthRequired,
		http.StatusTooManyRequests,
		http.StatusUnavailableForLegalReasons:
		return KindAccessDenied
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindNotFound
	}
}
