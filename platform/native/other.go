//go:build !unix

package native

import (
	"context"
	"errors"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/socket"
)

// Platform reports every operation as unsupported on this host.
type Platform struct {
	DualStack bool
}

var _ socket.Platform = (*Platform)(nil)

func New() *Platform {
	return &Platform{}
}

func (*Platform) Socket(context.Context, abi.Family, abi.SocketType, int32) (int32, error) {
	return abi.InvalidFd, abi.ENOTSUP
}

func (*Platform) Bind(context.Context, int32, abi.Sockaddr) error {
	return abi.ENOTSUP
}

func (*Platform) Listen(context.Context, int32, int32) error {
	return abi.ENOTSUP
}

func (*Platform) Connect(context.Context, int32, abi.Sockaddr) error {
	return abi.ENOTSUP
}

func (*Platform) SetDescriptorFlags(context.Context, int32, int32) error {
	return abi.ENOTSUP
}

func (*Platform) Close(context.Context, int32) error {
	return abi.ENOTSUP
}

func (*Platform) Getsockname(context.Context, int32) (abi.Sockaddr, error) {
	return nil, abi.ENOTSUP
}

// Errno converts a host error to its abi.Errno.
func Errno(err error) error {
	if err == nil {
		return nil
	}
	var e abi.Errno
	if errors.As(err, &e) {
		return e
	}
	return abi.EIO
}
