package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/wasi-sockets/abi"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseCreate  Phase = "create"      // socket()
	PhaseBind    Phase = "bind"        // bind()
	PhaseListen  Phase = "listen"      // listen()
	PhaseConnect Phase = "connect"     // connect()
	PhaseAddr    Phase = "getsockname" // getsockname()
	PhaseFlags   Phase = "fcntl"       // descriptor flags
	PhaseClose   Phase = "close"       // descriptor release
	PhaseDecode  Phase = "decode"      // guest memory to Go
	PhaseEncode  Phase = "encode"      // Go to guest memory
	PhaseHost    Phase = "host"        // host module registration
	PhaseLoad    Phase = "load"        // module loading
	PhaseRuntime Phase = "runtime"     // runtime operations
)

// Kind categorizes the error
type Kind string

const (
	KindPlatform      Kind = "platform"
	KindReleased      Kind = "released"
	KindDenied        Kind = "denied"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidData   Kind = "invalid_data"
	KindUnsupported   Kind = "unsupported"
	KindNotFound      Kind = "not_found"
	KindInvalidInput  Kind = "invalid_input"
	KindRegistration  Kind = "registration"
	KindInstantiation Kind = "instantiation"
)

// noFD marks errors that are not tied to a descriptor.
const noFD = abi.InvalidFd

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	FD     int32
	Errno  abi.Errno
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.FD >= 0 {
		b.WriteString(" fd=")
		b.WriteString(strconv.Itoa(int(e.FD)))
	}

	if e.Errno != abi.ESUCCESS {
		b.WriteString(": ")
		b.WriteString(e.Errno.Name())
	}

	if e.Detail != "" {
		if e.Errno != abi.ESUCCESS {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. An abi.Errno target matches
// the carried errno; an *Error target matches on phase and kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Phase == t.Phase && e.Kind == t.Kind
	case abi.Errno:
		return e.Errno != abi.ESUCCESS && e.Errno == t
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
			FD:    noFD,
		},
	}
}

// FD sets the descriptor the error refers to
func (b *Builder) FD(fd int32) *Builder {
	b.err.FD = fd
	return b
}

// Errno sets the platform status code
func (b *Builder) Errno(errno abi.Errno) *Builder {
	b.err.Errno = errno
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Platform wraps a failed platform call. If cause carries an errno it is
// recorded; anything else is reported as EIO.
func Platform(phase Phase, fd int32, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindPlatform,
		FD:    fd,
		Errno: ErrnoOf(cause),
		Cause: cause,
	}
}

// Released reports use of a handle whose ownership has moved or that was
// already closed.
func Released(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		FD:     noFD,
		Errno:  abi.EBADF,
		Detail: "socket no longer owns a descriptor",
	}
}

// Denied reports an address rejected by policy
func Denied(phase Phase, fd int32, addr string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDenied,
		FD:     fd,
		Errno:  abi.ENOTCAPABLE,
		Detail: fmt.Sprintf("address %s not allowed", addr),
		Value:  addr,
	}
}

// OutOfBounds creates a guest memory bounds error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		FD:     noFD,
		Errno:  abi.EFAULT,
		Detail: fmt.Sprintf("range [%d, %d) outside guest memory", offset, uint64(offset)+uint64(length)),
		Value:  offset,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		FD:     noFD,
		Errno:  abi.EINVAL,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		FD:     noFD,
		Errno:  abi.ENOTSUP,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		FD:     noFD,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what string, fd int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		FD:     fd,
		Errno:  abi.EBADF,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		FD:     noFD,
		Errno:  abi.EINVAL,
		Detail: detail,
	}
}

// Registration creates a host function registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		FD:     noFD,
		Detail: fmt.Sprintf("register %s#%s", module, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		FD:     noFD,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		FD:     noFD,
		Detail: detail,
		Cause:  cause,
	}
}

// ErrnoOf extracts the platform status code carried by err.
// nil maps to ESUCCESS and errors without an errno map to EIO.
func ErrnoOf(err error) abi.Errno {
	if err == nil {
		return abi.ESUCCESS
	}
	var e *Error
	if stderrors.As(err, &e) && e.Errno != abi.ESUCCESS {
		return e.Errno
	}
	var errno abi.Errno
	if stderrors.As(err, &errno) {
		return errno
	}
	return abi.EIO
}
