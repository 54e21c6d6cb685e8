package schema

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind categorises a chat-completion failure. The presentation layer
// keys its user-facing message off the kind.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrConfiguration
	ErrRateLimited
	ErrUnauthorized
	ErrForbidden
	ErrBadRequest
	ErrNotFound
	ErrUnprocessable
	ErrServer
	ErrSafetyBlocked
	ErrEmptyResponse
	ErrNetwork
	ErrPayloadTooLarge
	ErrCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrConfiguration:
		return "configuration"
	case ErrRateLimited:
		return "rate_limited"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrForbidden:
		return "forbidden"
	case ErrBadRequest:
		return "bad_request"
	case ErrNotFound:
		return "not_found"
	case ErrUnprocessable:
		return "unprocessable"
	case ErrServer:
		return "server_error"
	case ErrSafetyBlocked:
		return "safety_blocked"
	case ErrEmptyResponse:
		return "empty_response"
	case ErrNetwork:
		return "network"
	case ErrPayloadTooLarge:
		return "payload_too_large"
	case ErrCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether the transport may retry the same request.
// Only rate limiting is retried.
func (k ErrorKind) Retryable() bool { return k == ErrRateLimited }

// ModelRelated reports whether the failure may be cured by switching to the
// default model.
func (k ErrorKind) ModelRelated() bool {
	return k == ErrBadRequest || k == ErrNotFound || k == ErrUnprocessable
}

// Error is the typed failure surfaced by every layer of the chat client.
type Error struct {
	Kind       ErrorKind
	Status     int           // HTTP status, 0 when no response was received
	Model      string        // model the failing call targeted
	Message    string        // provider- or layer-supplied detail
	RetryAfter time.Duration // parsed Retry-After header, 0 if absent
	Partial    string        // text already delivered before a mid-stream failure
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Model != "" {
		msg += " model=" + e.Model
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError is a convenience constructor for layer-raised errors.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorKind carried by err, or ErrUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrUnknown
}

// AsError unwraps err into a *Error when possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindForStatus maps a non-200 HTTP status to an ErrorKind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden, status == http.StatusPaymentRequired:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case status == http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case status >= 500:
		return ErrServer
	case status >= 400:
		return ErrBadRequest
	default:
		return ErrUnknown
	}
}
