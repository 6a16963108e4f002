package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Class groups every failure the client can report.
type Class int

const (
	ClassUnknown Class = iota
	ClassConnectionRefused
	ClassTransport
	ClassTimeout
	ClassMalformedPacket
	ClassAuthentication
	ClassCorrelation
)

// String returns a string representation of the class
func (c Class) String() string {
	switch c {
	case ClassConnectionRefused:
		return "connection refused"
	case ClassTransport:
		return "transport error"
	case ClassTimeout:
		return "timeout"
	case ClassMalformedPacket:
		return "malformed packet"
	case ClassAuthentication:
		return "authentication failed"
	case ClassCorrelation:
		return "correlation mismatch"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Class. Match them with errors.Is.
var (
	ErrConnectionRefused = errors.New("rcon: connection refused")
	ErrTransport         = errors.New("rcon: transport error")
	ErrTimeout           = errors.New("rcon: timeout")
	ErrMalformedPacket   = errors.New("rcon: malformed packet")
	ErrAuthentication    = errors.New("rcon: authentication failed")
	ErrCorrelation       = errors.New("rcon: correlation mismatch")
)

// Sentinel returns the sentinel error for the class, or nil for ClassUnknown.
func (c Class) Sentinel() error {
	switch c {
	case ClassConnectionRefused:
		return ErrConnectionRefused
	case ClassTransport:
		return ErrTransport
	case ClassTimeout:
		return ErrTimeout
	case ClassMalformedPacket:
		return ErrMalformedPacket
	case ClassAuthentication:
		return ErrAuthentication
	case ClassCorrelation:
		return ErrCorrelation
	default:
		return nil
	}
}

// Error is a classified failure. Op names the operation that failed
// ("dial", "write", "read", "decode", "auth", "exec"...).
type Error struct {
	Class Class
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rcon: %s: %s", e.Op, e.Class)
	}
	return fmt.Sprintf("rcon: %s: %s: %v", e.Op, e.Class, e.Err)
}

// Unwrap exposes both the class sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Class.Sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError builds a classified error with a formatted cause.
func NewError(class Class, op string, format string, args ...any) *Error {
	return &Error{Class: class, Op: op, Err: fmt.Errorf(format, args...)}
}

// Classify maps a raw transport error into the taxonomy. Errors that are
// already classified are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	return &Error{Class: classOfRaw(op, err), Op: op, Err: err}
}

func classOfRaw(op string, err error) Class {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ClassTransport
	}

	// Failing to establish the socket is always a refusal from the caller's
	// point of view: unreachable host, refused port, unresolvable name.
	if op == "dial" {
		return ClassConnectionRefused
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ClassConnectionRefused
	}

	return ClassTransport
}

// ClassOf reports the class of err, or ClassUnknown when err was never classified.
func ClassOf(err error) Class {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Class
	}
	return ClassUnknown
}
