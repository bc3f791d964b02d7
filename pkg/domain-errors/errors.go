// Package domainerrors provides coded errors for the service layer.
//
// Services return these so transports can map failures to protocol-level
// responses without string matching. Infrastructure layers return sentinel
// errors (pkg/platform/sentinel) instead; services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and for HTTP mapping.
type Code string

const (
	// CodeValidation marks malformed input: wrong file type, oversized
	// upload, missing required field. Rejected before any state change.
	CodeValidation Code = "validation_error"

	// CodeBadRequest marks a structurally broken request (unparsable body,
	// missing body). Close to CodeValidation but without a field to name.
	CodeBadRequest Code = "bad_request"

	// CodePolicyViolation marks an action forbidden by verification policy,
	// e.g. an owner attempting to skip verification.
	CodePolicyViolation Code = "policy_violation"

	// CodeNotFound marks a missing entity. A user with no verification
	// record yet gets this, distinguished from "exists but pending".
	CodeNotFound Code = "not_found"

	// CodeConflict marks an optimistic-concurrency version mismatch after
	// retries were exhausted. The caller should re-fetch and retry.
	CodeConflict Code = "conflict"

	// CodeUnauthorized marks a missing or invalid authentication principal.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated principal lacking the required
	// capability, e.g. admin review without verification:review.
	CodeForbidden Code = "forbidden"

	// CodeUnavailable marks a recoverable external adapter failure (OCR,
	// face match, blob storage). The record is left in its prior state.
	CodeUnavailable Code = "unavailable"

	// CodeRateLimited marks a throttled upload request.
	CodeRateLimited Code = "rate_limited"

	// CodeInvariantViolation marks an aggregate-level rule break, e.g. a
	// state transition the record does not allow.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal marks an unexpected failure. The message is logged but
	// never surfaced to clients.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	code Code
	msg  string
	err  error
}

// New returns a coded error with the given message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf returns a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a coded error wrapping a cause. The cause stays reachable
// through errors.Is / errors.As.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the classification of the error.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the human-readable message without the wrapped cause.
func (e *Error) Message() string {
	return e.msg
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.code == code {
			return true
		}
		err = de.err
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal if
// err carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
