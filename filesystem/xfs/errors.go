package xfs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error into one of the taxonomy buckets a caller can
// branch on without parsing the message text.
type Kind int

const (
	// KindInvalidArgument means a caller-supplied value was out of contract.
	KindInvalidArgument Kind = iota
	// KindIOError means the I/O source returned an error.
	KindIOError
	// KindSignatureMismatch means a structure's magic did not match.
	KindSignatureMismatch
	// KindChecksumMismatch means a v5 block's CRC32C did not verify.
	KindChecksumMismatch
	// KindUnsupportedVersion means a format version was not recognized.
	KindUnsupportedVersion
	// KindUnsupportedValue means a recognized-but-unhandled variant was seen.
	KindUnsupportedValue
	// KindInvalidData means bounds were violated, a field was self-inconsistent,
	// an arithmetic overflow occurred, or a cycle-depth cap was hit.
	KindInvalidData
	// KindNotFound means a path, inode, attribute, or tree key was absent.
	KindNotFound
	// KindOutOfBounds means an offset or length exceeded a known extent.
	KindOutOfBounds
	// KindAbortRequested means the volume's cooperative cancel flag was set.
	KindAbortRequested
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindIOError:
		return "IoError"
	case KindSignatureMismatch:
		return "SignatureMismatch"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindUnsupportedValue:
		return "UnsupportedValue"
	case KindInvalidData:
		return "InvalidData"
	case KindNotFound:
		return "NotFound"
	case KindOutOfBounds:
		return "OutOfBounds"
	case KindAbortRequested:
		return "AbortRequested"
	default:
		return "Unknown"
	}
}

// Domain is the broad subsystem an error originated in, carried alongside
// Kind for diagnostics.
type Domain string

const (
	DomainArgument    Domain = "argument"
	DomainConversion  Domain = "conversion"
	DomainIO          Domain = "io"
	DomainInput       Domain = "input"
	DomainMemory      Domain = "memory"
	DomainRuntime     Domain = "runtime"
)

// Error is the error type returned by every public operation in this
// package. It carries a domain, a kind, a structural message, and a chain
// of call-layer frames appended as the error propagates outward, so a
// failed decode surfaces its full path (e.g. "readDirectory -> parseBlock
// -> decodeEntry -> bounds check").
type Error struct {
	Kind    Kind
	Domain  Domain
	Message string
	Cause   error
	frames  []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.frames) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.frames, " -> "))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// annotate returns a copy of e with an additional call-layer frame appended.
// Callers use this to build up a backtrace chain as an error propagates
// through nested decoders without losing the original Kind/Domain/Cause.
func (e *Error) annotate(frame string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.frames = append(append([]string{}, e.frames...), frame)
	return &cp
}

// Annotate appends a call-layer frame to err's backtrace chain if err is an
// *Error produced by this package; otherwise it returns err unchanged.
func Annotate(err error, frame string) error {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.annotate(frame)
	}
	return err
}

func newErr(kind Kind, domain Domain, format string, args ...any) *Error {
	return &Error{Kind: kind, Domain: domain, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, domain Domain, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Domain: domain, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func errInvalidArgument(format string, args ...any) *Error {
	return newErr(KindInvalidArgument, DomainArgument, format, args...)
}

func errInvalidData(format string, args ...any) *Error {
	return newErr(KindInvalidData, DomainInput, format, args...)
}

func errSignatureMismatch(format string, args ...any) *Error {
	return newErr(KindSignatureMismatch, DomainInput, format, args...)
}

func errChecksumMismatch(format string, args ...any) *Error {
	return newErr(KindChecksumMismatch, DomainInput, format, args...)
}

func errUnsupportedVersion(format string, args ...any) *Error {
	return newErr(KindUnsupportedVersion, DomainInput, format, args...)
}

func errUnsupportedValue(format string, args ...any) *Error {
	return newErr(KindUnsupportedValue, DomainInput, format, args...)
}

func errNotFound(format string, args ...any) *Error {
	return newErr(KindNotFound, DomainRuntime, format, args...)
}

func errOutOfBounds(format string, args ...any) *Error {
	return newErr(KindOutOfBounds, DomainRuntime, format, args...)
}

func errIO(cause error, format string, args ...any) *Error {
	return wrapErr(KindIOError, DomainIO, cause, format, args...)
}

// ErrAbortRequested is returned by any long-running walk when the owning
// Volume's cooperative cancel flag is observed set between blocks.
var ErrAbortRequested = &Error{Kind: KindAbortRequested, Domain: DomainRuntime, Message: "operation aborted by caller request"}

// Is implements the errors.Is protocol by comparing Kind, so callers can
// write errors.Is(err, xfs.ErrAbortRequested) without needing the exact
// instance returned by a given call.
func (e *Error) Is(target error) bool {
	var xe *Error
	if errors.As(target, &xe) {
		return e.Kind == xe.Kind
	}
	return false
}

// KindOf extracts the Kind carried by err, if err is (or wraps) an *Error
// from this package. ok is false for any other error.
func KindOf(err error) (kind Kind, ok bool) {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Kind, true
	}
	return 0, false
}
