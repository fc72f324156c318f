// Package errors provides structured error types for the wasi-sockets module.
//
// Errors are categorized by Phase (which socket operation failed) and Kind
// (error category). Platform failures also carry the descriptor and the
// abi.Errno returned across the boundary, so the host module can hand the
// exact code back to a guest.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBind, errors.KindPlatform).
//		FD(fd).
//		Errno(abi.EADDRINUSE).
//		Detail("bind %s", addr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Platform(errors.PhaseCreate, abi.InvalidFd, cause)
//	err := errors.Released(errors.PhaseListen)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is also matches a bare abi.Errno target against the carried errno.
package errors
