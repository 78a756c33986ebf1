package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client-facing identifier of a failure class.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeInvalidGroup           Code = "INVALID_GROUP"
	CodeInvalidBid             Code = "INVALID_BID"
	CodeRequestNotOpen         Code = "REQUEST_NOT_OPEN"
	CodeQuoteNoLongerValid     Code = "QUOTE_NO_LONGER_VALID"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeIncompleteConfirmation Code = "INCOMPLETE_CONFIRMATION"
)

// RefreshMessage is shown to callers who lost a race for a quote or request.
const RefreshMessage = "this option is no longer available, please refresh"

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// client errors expose details, race losses and auth failures never do.
func client(status int, msg string) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: true}
}

func opaque(status int, msg string) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    client(http.StatusBadRequest, "validation failed"),
	CodeUnauthorized:  opaque(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:     opaque(http.StatusForbidden, "access denied"),
	CodeNotFound:      opaque(http.StatusNotFound, "resource not found"),
	CodeConflict:      opaque(http.StatusConflict, "conflict detected"),
	CodeStateConflict: client(http.StatusUnprocessableEntity, "state transition disallowed"),
	CodeIdempotency:   client(http.StatusConflict, "idempotency key reused"),
	CodeRateLimit:     opaque(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},

	CodeInvalidGroup:           client(http.StatusUnprocessableEntity, "seller group is not eligible for delivery quotes"),
	CodeInvalidBid:             client(http.StatusBadRequest, "invalid delivery quote"),
	CodeRequestNotOpen:         opaque(http.StatusConflict, RefreshMessage),
	CodeQuoteNoLongerValid:     opaque(http.StatusConflict, RefreshMessage),
	CodeInvalidTransition:      client(http.StatusUnprocessableEntity, "order status change not allowed"),
	CodeIncompleteConfirmation: client(http.StatusUnprocessableEntity, "delivery confirmation incomplete"),
}

// MetadataFor falls back to CodeInternal for unregistered codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error carries a Code, an internal message, optional client details and the
// underlying cause. All methods tolerate a nil receiver.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the message like fmt.Sprintf.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches err as the cause. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets client-visible details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
