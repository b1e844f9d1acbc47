// Package domainerrors carries coded errors across service boundaries.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// them into coded errors so the transport layer can map a code to an HTTP
// status without inspecting error strings.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the public API: they
// are rendered verbatim in the "error" field of error responses.
type Code string

const (
	CodeInvalidRequest   Code = "invalid_request"
	CodeInvalidInput     Code = "invalid_input"
	CodeMissingField     Code = "missing_field"
	CodeInvalidRole      Code = "invalid_role"
	CodeUnknownIdentity  Code = "unknown_identity"
	CodeBadCredential    Code = "bad_credential"
	CodeDuplicateContact Code = "duplicate_contact"
	CodeAlreadyClaimed   Code = "already_claimed"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeNotFound         Code = "not_found"
	CodeMethodNotAllowed Code = "method_not_allowed"
	CodeRateLimited      Code = "rate_limit_exceeded"
	CodeTimeout          Code = "timeout"
	CodeInternal         Code = "internal_error"
)

var statusByCode = map[Code]int{
	CodeInvalidRequest:   http.StatusBadRequest,
	CodeInvalidInput:     http.StatusBadRequest,
	CodeMissingField:     http.StatusBadRequest,
	CodeInvalidRole:      http.StatusBadRequest,
	CodeUnknownIdentity:  http.StatusBadRequest,
	CodeBadCredential:    http.StatusBadRequest,
	CodeDuplicateContact: http.StatusBadRequest,
	CodeAlreadyClaimed:   http.StatusBadRequest,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeForbidden:        http.StatusForbidden,
	CodeNotFound:         http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeInternal:         http.StatusInternalServerError,
}

// Error is a coded domain error with a human readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code. An empty target message
// matches any message so callers can test for a class of error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first coded error in the chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
