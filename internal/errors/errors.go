// Package errors provides structured error types for the mcdbg client.
// Each error carries a machine-readable code so callers can distinguish
// transport failures from per-request failures, plus a hint that guides
// the user toward a fix.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Transport errors; fatal to the connection
	CodeFramingError  ErrorCode = "FRAMING_ERROR"
	CodeDecodeError   ErrorCode = "DECODE_ERROR"
	CodeConnectFailed ErrorCode = "CONNECT_FAILED"

	// Per-request errors; the connection stays open
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodeRemoteError ErrorCode = "REMOTE_ERROR"

	// Lifecycle errors
	CodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"
	CodeNotReady         ErrorCode = "NOT_READY"
	CodeVersionGated     ErrorCode = "VERSION_GATED"

	// Configuration errors
	CodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// DebugError is a structured error type that includes the failure category
// and, where useful, a hint about how to recover.
type DebugError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., the offending value)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DebugError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *DebugError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *DebugError) WithDetails(key string, value interface{}) *DebugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *DebugError) WithCause(err error) *DebugError {
	e.Cause = err
	return e
}

// --- Transport Errors ---

// FramingFailed creates an error for a malformed frame header or body
func FramingFailed(reason string, err error) *DebugError {
	return &DebugError{
		Code:    CodeFramingError,
		Message: fmt.Sprintf("malformed frame: %s", reason),
		Hint:    "The byte stream is not speaking the length-prefixed protocol. Check that the port belongs to a script debug listener.",
		Cause:   err,
	}
}

// DecodeFailed creates an error for a frame body that fails to parse as JSON
func DecodeFailed(err error) *DebugError {
	return &DebugError{
		Code:    CodeDecodeError,
		Message: fmt.Sprintf("failed to decode message body: %v", err),
		Cause:   err,
	}
}

// ConnectFailed creates an error for a failed dial
func ConnectFailed(address string, err error) *DebugError {
	return &DebugError{
		Code:    CodeConnectFailed,
		Message: fmt.Sprintf("failed to connect to debug listener at %s: %v", address, err),
		Hint:    "Run 'script debugger listen <port>' in the host before connecting.",
		Cause:   err,
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// --- Per-Request Errors ---

// RequestTimeout creates an error for a request with no response in time
func RequestTimeout(command string, timeout time.Duration) *DebugError {
	return &DebugError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("request '%s' timed out after %s", command, timeout),
		Hint:    "The debuggee may be busy or hung. The connection is still open; retry or pause first.",
		Details: map[string]interface{}{
			"command": command,
			"timeout": timeout.String(),
		},
	}
}

// Remote creates an error carrying the debuggee's error string for a request
func Remote(command, message string) *DebugError {
	return &DebugError{
		Code:    CodeRemoteError,
		Message: fmt.Sprintf("request '%s' rejected by debuggee: %s", command, message),
		Details: map[string]interface{}{
			"command": command,
			"remote":  message,
		},
	}
}

// --- Lifecycle Errors ---

// Closed creates an error for an operation on an ended connection
func Closed() *DebugError {
	return &DebugError{
		Code:    CodeConnectionClosed,
		Message: "protocol connection closed",
	}
}

// NotReady creates an error for an operation with no halted state to act on
func NotReady(operation string) *DebugError {
	return &DebugError{
		Code:    CodeNotReady,
		Message: fmt.Sprintf("%s requires a halted debuggee", operation),
		Hint:    "Wait for a stopped event (breakpoint, pause, or step) before inspecting state.",
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// VersionGated creates an error for an operation the negotiated protocol
// version does not support
func VersionGated(operation string, need, have int) *DebugError {
	return &DebugError{
		Code:    CodeVersionGated,
		Message: fmt.Sprintf("%s requires protocol version %d, debuggee speaks %d", operation, need, have),
		Hint:    "Update the host application to a build with a newer script debug protocol.",
		Details: map[string]interface{}{
			"operation": operation,
			"need":      need,
			"have":      have,
		},
	}
}

// --- Configuration Errors ---

// ConfigInvalid creates an error for an unusable configuration value
func ConfigInvalid(field, reason string) *DebugError {
	return &DebugError{
		Code:    CodeConfigInvalid,
		Message: fmt.Sprintf("configuration field '%s' is invalid: %s", field, reason),
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// --- Helpers ---

// HasCode reports whether err is a DebugError with the given code
func HasCode(err error, code ErrorCode) bool {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsTimeout reports whether err is a per-request timeout
func IsTimeout(err error) bool {
	return HasCode(err, CodeTimeout)
}

// IsClosed reports whether err means the connection has ended
func IsClosed(err error) bool {
	return HasCode(err, CodeConnectionClosed)
}

// FromError creates a DebugError from a generic error, preserving any
// existing structure
func FromError(err error) *DebugError {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de
	}
	return &DebugError{
		Code:    "UNKNOWN_ERROR",
		Message: err.Error(),
		Cause:   err,
	}
}
