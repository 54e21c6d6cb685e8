package schema

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	cases := map[int]ErrorKind{
		400: ErrBadRequest,
		401: ErrUnauthorized,
		402: ErrForbidden,
		403: ErrForbidden,
		404: ErrNotFound,
		409: ErrBadRequest,
		413: ErrPayloadTooLarge,
		422: ErrUnprocessable,
		429: ErrRateLimited,
		500: ErrServer,
		503: ErrServer,
	}
	for status, want := range cases {
		if got := KindForStatus(status); got != want {
			t.Errorf("KindForStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	base := &Error{Kind: ErrSafetyBlocked, Message: "SAFETY"}
	wrapped := fmt.Errorf("turn failed: %w", base)

	if got := KindOf(wrapped); got != ErrSafetyBlocked {
		t.Fatalf("KindOf = %v, want safety_blocked", got)
	}
	if KindOf(errors.New("plain")) != ErrUnknown {
		t.Error("plain errors should be ErrUnknown")
	}
}

func TestErrorKindPredicates(t *testing.T) {
	if !ErrRateLimited.Retryable() {
		t.Error("rate limited should be retryable")
	}
	for _, k := range []ErrorKind{ErrServer, ErrUnauthorized, ErrNetwork, ErrSafetyBlocked} {
		if k.Retryable() {
			t.Errorf("%v should not be retryable", k)
		}
	}
	for _, k := range []ErrorKind{ErrBadRequest, ErrNotFound, ErrUnprocessable} {
		if !k.ModelRelated() {
			t.Errorf("%v should be model related", k)
		}
	}
	if ErrServer.ModelRelated() {
		t.Error("server errors are not model related")
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Kind: ErrNotFound, Status: 404, Model: "x/y", Message: "no such model"}
	want := "not_found (HTTP 404) model=x/y: no such model"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
