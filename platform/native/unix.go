//go:build unix

package native

import (
	"context"
	"errors"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/socket"
)

// Platform creates and manages host sockets.
type Platform struct {
	// DualStack leaves IPV6_V6ONLY off on inet6 sockets.
	DualStack bool
}

var _ socket.Platform = (*Platform)(nil)

// New returns a platform with IPv6 sockets restricted to IPv6 traffic.
func New() *Platform {
	return &Platform{}
}

func (p *Platform) Socket(_ context.Context, family abi.Family, sotype abi.SocketType, proto int32) (int32, error) {
	domain, err := domainOf(family)
	if err != nil {
		return abi.InvalidFd, err
	}
	typ, err := typeOf(sotype)
	if err != nil {
		return abi.InvalidFd, err
	}

	// See syscall.ForkLock: socket and CloseOnExec must not be split by a fork.
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(domain, typ, int(proto))
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return abi.InvalidFd, Errno(err)
	}

	if family == abi.FamilyInet6 && !p.DualStack {
		// Not every system supports the option; a failure leaves the default.
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
	}
	return int32(fd), nil
}

func (p *Platform) Bind(_ context.Context, fd int32, sa abi.Sockaddr) error {
	usa, err := toUnix(sa)
	if err != nil {
		return err
	}
	return Errno(unix.Bind(int(fd), usa))
}

func (p *Platform) Listen(_ context.Context, fd int32, backlog int32) error {
	return Errno(unix.Listen(int(fd), int(backlog)))
}

func (p *Platform) Connect(_ context.Context, fd int32, sa abi.Sockaddr) error {
	usa, err := toUnix(sa)
	if err != nil {
		return err
	}
	return Errno(unix.Connect(int(fd), usa))
}

func (p *Platform) Getsockname(_ context.Context, fd int32) (abi.Sockaddr, error) {
	usa, err := unix.Getsockname(int(fd))
	if err != nil {
		return nil, Errno(err)
	}
	return fromUnix(usa)
}

// SetDescriptorFlags applies the abi.FDCloexec bits of flags. The
// descriptor is checked first, so a bad fd reports EBADF even when no bit
// is set.
func (p *Platform) SetDescriptorFlags(_ context.Context, fd int32, flags int32) error {
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return Errno(err)
	}
	if flags&abi.FDCloexec != 0 {
		unix.CloseOnExec(int(fd))
	}
	return nil
}

func (p *Platform) Close(_ context.Context, fd int32) error {
	return Errno(unix.Close(int(fd)))
}

func domainOf(family abi.Family) (int, error) {
	switch family {
	case abi.FamilyInet:
		return unix.AF_INET, nil
	case abi.FamilyInet6:
		return unix.AF_INET6, nil
	}
	return 0, abi.EAFNOSUPPORT
}

func typeOf(sotype abi.SocketType) (int, error) {
	switch sotype {
	case abi.SocketStream:
		return unix.SOCK_STREAM, nil
	case abi.SocketDatagram:
		return unix.SOCK_DGRAM, nil
	}
	return 0, abi.EPROTOTYPE
}

// toUnix converts sa to its host form. unix.SockaddrInet6 has no flow
// label, so SockaddrInet6.FlowInfo is not passed to the host and reads back
// as 0 from Getsockname.
func toUnix(sa abi.Sockaddr) (unix.Sockaddr, error) {
	switch sa := sa.(type) {
	case *abi.SockaddrInet4:
		return &unix.SockaddrInet4{Port: int(sa.Port), Addr: sa.Addr}, nil
	case *abi.SockaddrInet6:
		return &unix.SockaddrInet6{Port: int(sa.Port), ZoneId: sa.ScopeID, Addr: sa.Addr}, nil
	case nil:
		return nil, abi.EINVAL
	}
	return nil, abi.EAFNOSUPPORT
}

func fromUnix(usa unix.Sockaddr) (abi.Sockaddr, error) {
	switch usa := usa.(type) {
	case *unix.SockaddrInet4:
		return &abi.SockaddrInet4{Port: uint16(usa.Port), Addr: usa.Addr}, nil
	case *unix.SockaddrInet6:
		return &abi.SockaddrInet6{Port: uint16(usa.Port), ScopeID: usa.ZoneId, Addr: usa.Addr}, nil
	}
	return nil, abi.EAFNOSUPPORT
}

// Errno converts a host error to its abi.Errno. nil stays nil and errors
// that carry no errno become EIO.
func Errno(err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		var e abi.Errno
		if errors.As(err, &e) {
			return e
		}
		return abi.EIO
	}
	if errno == 0 {
		return nil
	}
	return mapErrno(errno)
}

func mapErrno(errno unix.Errno) abi.Errno {
	switch errno {
	case unix.EACCES:
		return abi.EACCES
	case unix.EPERM:
		return abi.EPERM
	case unix.EADDRINUSE:
		return abi.EADDRINUSE
	case unix.EADDRNOTAVAIL:
		return abi.EADDRNOTAVAIL
	case unix.EAFNOSUPPORT:
		return abi.EAFNOSUPPORT
	case unix.EAGAIN:
		return abi.EAGAIN
	case unix.EALREADY:
		return abi.EALREADY
	case unix.EBADF:
		return abi.EBADF
	case unix.ECONNABORTED:
		return abi.ECONNABORTED
	case unix.ECONNREFUSED:
		return abi.ECONNREFUSED
	case unix.ECONNRESET:
		return abi.ECONNRESET
	case unix.EDESTADDRREQ:
		return abi.EDESTADDRREQ
	case unix.EFAULT:
		return abi.EFAULT
	case unix.EHOSTUNREACH:
		return abi.EHOSTUNREACH
	case unix.EINPROGRESS:
		return abi.EINPROGRESS
	case unix.EINTR:
		return abi.EINTR
	case unix.EINVAL:
		return abi.EINVAL
	case unix.EIO:
		return abi.EIO
	case unix.EISCONN:
		return abi.EISCONN
	case unix.EMFILE:
		return abi.EMFILE
	case unix.EMSGSIZE:
		return abi.EMSGSIZE
	case unix.ENETDOWN:
		return abi.ENETDOWN
	case unix.ENETRESET:
		return abi.ENETRESET
	case unix.ENETUNREACH:
		return abi.ENETUNREACH
	case unix.ENFILE:
		return abi.ENFILE
	case unix.ENOBUFS:
		return abi.ENOBUFS
	case unix.ENOMEM:
		return abi.ENOMEM
	case unix.ENOPROTOOPT:
		return abi.ENOPROTOOPT
	case unix.ENOSYS:
		return abi.ENOSYS
	case unix.ENOTCONN:
		return abi.ENOTCONN
	case unix.ENOTSOCK:
		return abi.ENOTSOCK
	case unix.EPROTONOSUPPORT:
		return abi.EPROTONOSUPPORT
	case unix.EPROTOTYPE:
		return abi.EPROTOTYPE
	case unix.ETIMEDOUT:
		return abi.ETIMEDOUT
	}

	// These alias other values on some systems and cannot share the switch.
	switch {
	case errno == unix.EWOULDBLOCK:
		return abi.EAGAIN
	case errno == unix.ENOTSUP, errno == unix.EOPNOTSUPP:
		return abi.ENOTSUP
	}
	return abi.EIO
}
