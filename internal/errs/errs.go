// Package errs implements a unified error taxonomy: one Kind per error
// family, each carrying a human-readable,
// printf-style message, plus small adapter functions translating
// source-codec-library error codes onto a Kind. Uses a wrapping-struct
// pattern (*Error with Unwrap); no sentinel error values are defined.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the fixed error families.
type Kind int

const (
	// EndOfFile means the stream ended; normal when expected, fatal when
	// encountered mid-packet.
	EndOfFile Kind = iota
	ReadFault
	SeekError
	InvalidDataFormat
	UnsupportedFormat
	ProtocolNotSupported
	InvalidArgument
	OutOfBounds
	Failure
	NotImplemented
	InvalidPointer
	ObjectDisposed
	BadAlloc
)

func (k Kind) String() string {
	switch k {
	case EndOfFile:
		return "end_of_file"
	case ReadFault:
		return "read_fault"
	case SeekError:
		return "seek_error"
	case InvalidDataFormat:
		return "invalid_data_format"
	case UnsupportedFormat:
		return "unsupported_format"
	case ProtocolNotSupported:
		return "protocol_not_supported"
	case InvalidArgument:
		return "invalid_argument"
	case OutOfBounds:
		return "out_of_bounds"
	case Failure:
		return "failure"
	case NotImplemented:
		return "not_implemented"
	case InvalidPointer:
		return "invalid_pointer"
	case ObjectDisposed:
		return "object_disposed"
	case BadAlloc:
		return "bad_alloc"
	default:
		return "unknown"
	}
}

// Error is the unified error type: a Kind plus a formatted message,
// optionally wrapping an underlying cause (e.g. a translated
// source-library error).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error with a printf-formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind, wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind, unwrapping
// through any wrapper chain (so errors.Is(err, errs.OutOfBounds) style
// checks via KindOf work transparently).
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
