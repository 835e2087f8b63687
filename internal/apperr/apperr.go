// Package apperr defines the stable error taxonomy shared by the connector,
// cache, and engine layers. Every boundary method returns one of these
// tagged outcomes instead of an ad-hoc error string, so the engine can map
// failures onto the MCP tool-response envelope without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the stable error categories from the error taxonomy.
type Kind string

const (
	NotFound           Kind = "not_found"
	InvalidArgument    Kind = "invalid_argument"
	DisallowedStatement Kind = "disallowed_statement"
	ConnectionError    Kind = "connection_error"
	QueryError         Kind = "query_error"
	CacheCorrupt       Kind = "cache_corrupt"
	Timeout            Kind = "timeout"
	Internal           Kind = "internal"

	// CacheIOError tags an irrecoverable failure writing the on-disk cache
	// snapshot: directory creation, temp file write, or the rename into
	// place. Distinct from CacheCorrupt, which covers a bad read that a
	// rebuild can simply paper over.
	CacheIOError Kind = "cache_io_error"
)

// Error wraps an underlying cause with a stable Kind and a human message.
// Credentials and raw connection strings must never be placed in Message.
type Error struct {
	Kind    Kind
	Message string
	Code    string // vendor error code, e.g. "ORA-00942", when applicable
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a tagged error with no wrapped cause.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Wrap tags an existing error with a Kind, preserving it for errors.Is/As.
func Wrap(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, cause: cause}
}

// WithCode attaches a vendor error code (SQLSTATE-equivalent) and returns e.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
