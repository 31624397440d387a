package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthenticationMissing is returned by protected operations when no
// session token is available. No request is sent in that case.
var ErrAuthenticationMissing = errors.New("not authenticated")

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport failure: the request never produced a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError wraps a payload that could not be decoded, either a response
// body or a session token.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorKind classifies failures for display and propagation decisions.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthenticationMissing
	KindAuthenticationRejected
	KindValidationFailed
	KindServerFailure
	KindNetworkFailure
	KindDecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthenticationMissing:
		return "authentication missing"
	case KindAuthenticationRejected:
		return "authentication rejected"
	case KindValidationFailed:
		return "validation failed"
	case KindServerFailure:
		return "server failure"
	case KindNetworkFailure:
		return "network failure"
	case KindDecodeFailure:
		return "decode failure"
	}
	return "unknown"
}

// KindOf returns the ErrorKind of err, looking through wrapped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrAuthenticationMissing) {
		return KindAuthenticationMissing
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
			return KindAuthenticationRejected
		case httpErr.StatusCode >= 500:
			return KindServerFailure
		default:
			return KindValidationFailed
		}
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return KindDecodeFailure
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkFailure
	}
	return KindUnknown
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Message returns the text worth showing a user for err: the server-provided
// message when there is one, otherwise the error itself.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	if errors.Is(err, ErrAuthenticationMissing) {
		return ErrAuthenticationMissing.Error()
	}
	return err.Error()
}
