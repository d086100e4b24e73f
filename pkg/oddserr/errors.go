// Package oddserr defines the error taxonomy shared by the odds client,
// detector, store, and scheduler.
package oddserr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for propagation and retry decisions.
type Kind string

const (
	KindInvalidPrice   Kind = "invalid_price"
	KindInvalidPayload Kind = "invalid_payload"
	KindAuth           Kind = "auth_error"
	KindBadRequest     Kind = "bad_request"
	KindQuotaExhausted Kind = "quota_exhausted"
	KindTransient      Kind = "transient_error"
	KindStore          Kind = "store_error"
	KindCancelled      Kind = "cancelled"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// classification with errors.As without parsing message strings.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// ResetAt is set only for KindQuotaExhausted when the upstream response
	// carried a documented reset instant (e.g. a Retry-After header). Zero
	// means unknown — the scheduler then suppresses only until its next
	// natural tick.
	ResetAt time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func InvalidPrice(msg string) error            { return newErr(KindInvalidPrice, msg, nil) }
func InvalidPayload(msg string, cause error) error {
	return newErr(KindInvalidPayload, msg, cause)
}
func Auth(msg string) error { return newErr(KindAuth, msg, nil) }
func BadRequest(msg string) error {
	return newErr(KindBadRequest, msg, nil)
}
func QuotaExhausted(msg string) error {
	return newErr(KindQuotaExhausted, msg, nil)
}

// QuotaExhaustedUntil is QuotaExhausted with a known reset instant.
func QuotaExhaustedUntil(msg string, resetAt time.Time) error {
	e := newErr(KindQuotaExhausted, msg, nil)
	e.ResetAt = resetAt
	return e
}

// ResetAtOf extracts the ResetAt of a KindQuotaExhausted error, zero if
// err does not carry one.
func ResetAtOf(err error) time.Time {
	var e *Error
	if errors.As(err, &e) {
		return e.ResetAt
	}
	return time.Time{}
}
func Transient(msg string, cause error) error {
	return newErr(KindTransient, msg, cause)
}
func Store(msg string, cause error) error {
	return newErr(KindStore, msg, cause)
}
func Cancelled(msg string) error { return newErr(KindCancelled, msg, nil) }

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning "" if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
