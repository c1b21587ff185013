// Package apperr implements the closed error taxonomy shared by every
// backend: validation errors, transient I/O errors, and structural
// errors that indicate the backend object should be closed and recreated.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies one of the backend error classes. The set is closed:
// backends never invent new codes, they only pick one of these.
type Code int

const (
	// InvalidArgument marks a caller error that is always safe to retry
	// once the input is corrected.
	InvalidArgument Code = iota
	// BadMessage marks a MIDI byte sequence that violates the channel/SysEx
	// length rule.
	BadMessage
	// MessageSize marks a message that could not be packaged by the host
	// transport (e.g. packet-list allocation failure).
	MessageSize
	// IoError marks a transient failure talking to the host transport.
	IoError
	// NoBufferSpace marks a transient failure to reserve space for a frame.
	NoBufferSpace
	// OperationNotSupported marks an operation the backend never implements.
	OperationNotSupported
	// NotConnected marks an operation on a backend with no live connection.
	NotConnected
	// BackendStatus wraps an opaque host-specific status code.
	BackendStatus
)

func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "InvalidArgument"
	case BadMessage:
		return "BadMessage"
	case MessageSize:
		return "MessageSize"
	case IoError:
		return "IoError"
	case NoBufferSpace:
		return "NoBufferSpace"
	case OperationNotSupported:
		return "OperationNotSupported"
	case NotConnected:
		return "NotConnected"
	case BackendStatus:
		return "BackendStatus"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by backend operations.
type Error struct {
	Code    Code
	Status  int32 // meaningful only when Code == BackendStatus
	Message string
}

func (e *Error) Error() string {
	if e.Code == BackendStatus {
		return fmt.Sprintf("%s(%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is allows errors.Is(err, apperr.New(apperr.InvalidArgument)) style
// comparisons by matching on the Code of another *Error, such as one of
// the values returned by New.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New builds an *Error with no message.
func New(code Code) error { return &Error{Code: code} }

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromBackendStatus wraps a host-specific status code verbatim, the only
// place the original host error is allowed to leak through.
func FromBackendStatus(status int32, message string) error {
	return &Error{Code: BackendStatus, Status: status, Message: message}
}

// CodeOf extracts the Code of err if it is (or wraps) an *Error, and
// reports whether it found one.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code, true
}

// IsValidation reports whether err is a validation-class error
// (InvalidArgument, BadMessage, MessageSize): always safe to retry with
// corrected input.
func IsValidation(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == InvalidArgument || code == BadMessage || code == MessageSize)
}

// IsTransient reports whether err is a transient-class error
// (NoBufferSpace, IoError): the connection remains usable.
func IsTransient(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == NoBufferSpace || code == IoError)
}

// IsStructural reports whether err is a structural-class error
// (OperationNotSupported, NotConnected, BackendStatus): the object may no
// longer be usable and should be closed and recreated.
func IsStructural(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == OperationNotSupported || code == NotConnected || code == BackendStatus)
}
