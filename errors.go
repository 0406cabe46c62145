package wowsql

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error so callers can branch on failure category
// instead of matching message strings or status codes.
type Kind int

const (
	// KindAPI is a server-reported error that fits no more specific kind.
	KindAPI Kind = iota
	// KindAuthentication covers 401 and 403 responses.
	KindAuthentication
	// KindNotFound covers 404 responses and empty GetByID results.
	KindNotFound
	// KindRateLimit covers 429 responses.
	KindRateLimit
	// KindStorageLimit covers 413 responses and storage-quota rejections.
	KindStorageLimit
	// KindValidation is a local precondition failure (negative limit,
	// zero-filter bulk write, consumed builder). No request was sent.
	KindValidation
	// KindConfiguration is an invalid client or builder construction
	// (empty table name, empty base URL). No request was sent.
	KindConfiguration
	// KindTransport is a failure below HTTP: timeout, DNS, refused
	// connection. There is no status code or response body.
	KindTransport
	// KindSchema means the server answered success but the payload did not
	// match the expected response shape.
	KindSchema
)

// String returns the kind name used in error messages and logs.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindStorageLimit:
		return "storage_limit"
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "api"
	}
}

// Error is the single error type returned by the SDK. Status is zero for
// local and transport failures; Body holds the raw response for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Body    []byte
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("wowsql: ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is (or wraps) an SDK Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func validationError(message string) *Error {
	return newError(KindValidation, message)
}

func configurationError(message string) *Error {
	return newError(KindConfiguration, message)
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: "request failed", Err: err}
}

func schemaError(err error, body []byte) *Error {
	return &Error{Kind: KindSchema, Message: "unexpected response payload", Body: body, Err: err}
}

// errorBody is the error envelope all API endpoints use.
type errorBody struct {
	Error string `json:"error"`
}

// quotaSignal matches the server's storage-quota rejection message so that
// quota errors reported with a generic status still classify correctly.
func quotaSignal(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "quota") || strings.Contains(m, "storage limit")
}

// classifyResponse maps a non-2xx response to a typed Error. Both the
// database and storage clients route every failure through here so the
// taxonomy stays identical across the SDK.
func classifyResponse(status int, body []byte) *Error {
	message := http.StatusText(status)
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		message = eb.Error
	}

	kind := KindAPI
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthentication
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case status == http.StatusRequestEntityTooLarge || quotaSignal(message):
		kind = KindStorageLimit
	}

	return &Error{Kind: kind, Message: message, Status: status, Body: body}
}
