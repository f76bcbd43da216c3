// Package errs defines the error kinds surfaced by the store, the market
// data gateway and the API.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindDuplicateBucket     Kind = "DUPLICATE_BUCKET"
	KindDuplicateTicker     Kind = "DUPLICATE_TICKER"
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindPersistenceFailure  Kind = "PERSISTENCE_FAILURE"
	KindInternal            Kind = "INTERNAL"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrDuplicateBucket     = &Error{Kind: KindDuplicateBucket}
	ErrDuplicateTicker     = &Error{Kind: KindDuplicateTicker}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrPersistenceFailure  = &Error{Kind: KindPersistenceFailure}
)

// Error is a classified error. Op names the operation, Subject the bucket or
// symbol it concerned.
type Error struct {
	Kind    Kind
	Op      string
	Subject string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Subject)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a classified error.
func New(kind Kind, op, subject, message string) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Message: message}
}

// Wrap classifies err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports a missing bucket or ticker.
func NotFound(op, what, subject string) *Error {
	return New(KindNotFound, op, subject, what+" not found")
}

// Invalid reports malformed input.
func Invalid(op, message string) *Error {
	return New(KindInvalidInput, op, "", message)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
