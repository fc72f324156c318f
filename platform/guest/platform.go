package guest

import (
	"context"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/socket"
)

// calls is the raw wasi_sock_v0 ABI. Buffers are guest memory; the wasip1
// implementation passes their addresses to the host.
type calls interface {
	open(af, sotype, proto int32, fd *int32) int32
	bind(fd int32, addr []byte) int32
	listen(fd, backlog int32) int32
	connect(fd int32, addr []byte) int32
	getsockname(fd int32, addr []byte, addrlen *uint32) int32
	setfdflags(fd, flags int32) int32
	close(fd int32) int32
}

// Platform forwards socket calls to the host.
type Platform struct {
	c calls
}

var _ socket.Platform = (*Platform)(nil)

// New returns the platform for the current target.
func New() *Platform {
	return &Platform{c: hostCalls{}}
}

func (p *Platform) Socket(_ context.Context, family abi.Family, sotype abi.SocketType, proto int32) (int32, error) {
	fd := abi.InvalidFd
	if err := result(p.c.open(int32(family), int32(sotype), proto, &fd)); err != nil {
		return abi.InvalidFd, err
	}
	return fd, nil
}

func (p *Platform) Bind(_ context.Context, fd int32, sa abi.Sockaddr) error {
	buf, err := encodeAddr(sa)
	if err != nil {
		return err
	}
	return result(p.c.bind(fd, buf))
}

func (p *Platform) Listen(_ context.Context, fd int32, backlog int32) error {
	return result(p.c.listen(fd, backlog))
}

func (p *Platform) Connect(_ context.Context, fd int32, sa abi.Sockaddr) error {
	buf, err := encodeAddr(sa)
	if err != nil {
		return err
	}
	return result(p.c.connect(fd, buf))
}

func (p *Platform) Getsockname(_ context.Context, fd int32) (abi.Sockaddr, error) {
	var buf [abi.SizeofSockaddrStorage]byte
	n := uint32(len(buf))
	if err := result(p.c.getsockname(fd, buf[:], &n)); err != nil {
		return nil, err
	}
	return decodeAddr(buf[:], n)
}

func (p *Platform) SetDescriptorFlags(_ context.Context, fd int32, flags int32) error {
	return result(p.c.setfdflags(fd, flags))
}

func (p *Platform) Close(_ context.Context, fd int32) error {
	return result(p.c.close(fd))
}
