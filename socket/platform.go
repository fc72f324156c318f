package socket

import (
	"context"

	"github.com/wippyai/wasi-sockets/abi"
)

// Platform is the socket boundary of the target. Every call returns nil or
// an error carrying an abi.Errno.
type Platform interface {
	// Socket creates a descriptor for family, sotype and proto.
	Socket(ctx context.Context, family abi.Family, sotype abi.SocketType, proto int32) (int32, error)

	Bind(ctx context.Context, fd int32, sa abi.Sockaddr) error
	Listen(ctx context.Context, fd int32, backlog int32) error
	Connect(ctx context.Context, fd int32, sa abi.Sockaddr) error

	// Getsockname returns the local address fd is bound to.
	Getsockname(ctx context.Context, fd int32) (abi.Sockaddr, error)

	// SetDescriptorFlags sets descriptor flags such as abi.FDCloexec.
	SetDescriptorFlags(ctx context.Context, fd int32, flags int32) error

	// Close releases fd. Whether this does anything is up to the platform.
	Close(ctx context.Context, fd int32) error
}
