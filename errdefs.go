package srtgo

import "errors"

// Kind wrapper types below follow the marker-interface + concrete-wrapper
// shape used by moby/moby's errdefs package: a small interface per error
// category, a private struct implementing it and Cause()/Unwrap(), and a
// constructor plus an Is<Kind> predicate built on errors.As. Callers
// should branch on the taxonomy spec.md defines (Timeout, Canceled,
// ConnectionRefused, ConnectionReset, ConnectionAborted, InvalidArgument,
// InvalidSocket, ResourceExhausted, EpollFailure, IoError) rather than on
// the underlying SRT numeric code.

// ErrTimeout is implemented by errors produced when a wait_* or adapter
// operation exceeded its deadline.
type ErrTimeout interface {
	Timeout() bool
}

// ErrCanceled is implemented by errors produced when the caller's
// context was canceled externally.
type ErrCanceled interface {
	Canceled() bool
}

// ErrConnectionRefused is implemented by errors produced when a peer (or
// a listen hook) rejected a handshake.
type ErrConnectionRefused interface {
	ConnectionRefused() bool
}

// ErrConnectionReset is implemented by errors produced when a previously
// established connection was lost.
type ErrConnectionReset interface {
	ConnectionReset() bool
}

// ErrConnectionAborted is implemented by errors produced by a local close
// or use-after-close.
type ErrConnectionAborted interface {
	ConnectionAborted() bool
}

// ErrInvalidArgument is implemented by errors produced by a bad address,
// option, phase, or undersized buffer.
type ErrInvalidArgument interface {
	InvalidArgument() bool
}

// ErrInvalidSocket is implemented by errors produced when a handle is
// unknown to the library.
type ErrInvalidSocket interface {
	InvalidSocket() bool
}

// ErrResourceExhausted is implemented by errors produced by memory,
// thread, or file-descriptor starvation.
type ErrResourceExhausted interface {
	ResourceExhausted() bool
}

// ErrEpollFailure is implemented by errors produced when the Reactor's
// own epoll add/update call failed.
type ErrEpollFailure interface {
	EpollFailure() bool
}

// ErrIoError is implemented by every other native library error; it
// carries the numeric subcode and the library's own message.
type ErrIoError interface {
	IoError() bool
}

type kindError struct {
	kind   string
	cause  error
	reason string
}

func (e *kindError) Error() string {
	if e.reason != "" {
		return e.kind + ": " + e.reason
	}
	if e.cause != nil {
		return e.kind + ": " + e.cause.Error()
	}
	return e.kind
}

func (e *kindError) Cause() error { return e.cause }
func (e *kindError) Unwrap() error { return e.cause }

type timeoutError struct{ *kindError }

func (timeoutError) Timeout() bool { return true }

type canceledError struct{ *kindError }

func (canceledError) Canceled() bool { return true }

type connectionRefusedError struct{ *kindError }

func (connectionRefusedError) ConnectionRefused() bool { return true }

type connectionResetError struct{ *kindError }

func (connectionResetError) ConnectionReset() bool { return true }

type connectionAbortedError struct{ *kindError }

func (connectionAbortedError) ConnectionAborted() bool { return true }

type invalidArgumentError struct{ *kindError }

func (invalidArgumentError) InvalidArgument() bool { return true }

type invalidSocketError struct{ *kindError }

func (invalidSocketError) InvalidSocket() bool { return true }

type resourceExhaustedError struct{ *kindError }

func (resourceExhaustedError) ResourceExhausted() bool { return true }

type epollFailureError struct{ *kindError }

func (epollFailureError) EpollFailure() bool { return true }

type ioError struct{ *kindError }

func (ioError) IoError() bool { return true }

// Timeout wraps cause (nilable) as an ErrTimeout.
func Timeout(cause error) error {
	return timeoutError{&kindError{kind: "timeout", cause: cause}}
}

// Canceled wraps cause (nilable) as an ErrCanceled.
func Canceled(cause error) error {
	return canceledError{&kindError{kind: "canceled", cause: cause}}
}

// ConnectionRefused wraps cause (nilable) as an ErrConnectionRefused.
func ConnectionRefused(cause error) error {
	return connectionRefusedError{&kindError{kind: "connection refused", cause: cause}}
}

// ConnectionReset wraps cause (nilable) as an ErrConnectionReset.
func ConnectionReset(cause error) error {
	return connectionResetError{&kindError{kind: "connection reset", cause: cause}}
}

// ConnectionAborted wraps cause (nilable) as an ErrConnectionAborted.
func ConnectionAborted(cause error) error {
	return connectionAbortedError{&kindError{kind: "connection aborted", cause: cause}}
}

// InvalidArgument builds an ErrInvalidArgument with an explicit reason
// (e.g. a bad option name, or "too early"/"too late" for a phase
// violation).
func InvalidArgument(reason string) error {
	return invalidArgumentError{&kindError{kind: "invalid argument", reason: reason}}
}

// InvalidSocket wraps cause (nilable) as an ErrInvalidSocket.
func InvalidSocket(cause error) error {
	return invalidSocketError{&kindError{kind: "invalid socket", cause: cause}}
}

// ResourceExhausted wraps cause (nilable) as an ErrResourceExhausted.
func ResourceExhausted(cause error) error {
	return resourceExhaustedError{&kindError{kind: "resource exhausted", cause: cause}}
}

// EpollFailure wraps cause (nilable) as an ErrEpollFailure.
func EpollFailure(cause error) error {
	return epollFailureError{&kindError{kind: "epoll failure", cause: cause}}
}

// IoError wraps a native subcode and message as an ErrIoError.
func IoError(cause error) error {
	return ioError{&kindError{kind: "io error", cause: cause}}
}

// IsTimeout reports whether err (or anything in its wrap/join chain) is
// an ErrTimeout.
func IsTimeout(err error) bool { var t ErrTimeout; return errors.As(err, &t) }

// IsCanceled reports whether err (or anything in its wrap/join chain) is
// an ErrCanceled.
func IsCanceled(err error) bool { var t ErrCanceled; return errors.As(err, &t) }

// IsConnectionRefused reports whether err is an ErrConnectionRefused.
func IsConnectionRefused(err error) bool {
	var t ErrConnectionRefused
	return errors.As(err, &t)
}

// IsConnectionReset reports whether err is an ErrConnectionReset.
func IsConnectionReset(err error) bool {
	var t ErrConnectionReset
	return errors.As(err, &t)
}

// IsConnectionAborted reports whether err is an ErrConnectionAborted.
func IsConnectionAborted(err error) bool {
	var t ErrConnectionAborted
	return errors.As(err, &t)
}

// IsInvalidArgument reports whether err is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var t ErrInvalidArgument
	return errors.As(err, &t)
}

// IsInvalidSocket reports whether err is an ErrInvalidSocket.
func IsInvalidSocket(err error) bool {
	var t ErrInvalidSocket
	return errors.As(err, &t)
}

// IsResourceExhausted reports whether err is an ErrResourceExhausted.
func IsResourceExhausted(err error) bool {
	var t ErrResourceExhausted
	return errors.As(err, &t)
}

// IsEpollFailure reports whether err is an ErrEpollFailure.
func IsEpollFailure(err error) bool {
	var t ErrEpollFailure
	return errors.As(err, &t)
}

// IsIoError reports whether err is an ErrIoError.
func IsIoError(err error) bool { var t ErrIoError; return errors.As(err, &t) }
