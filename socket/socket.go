package socket

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/errors"
)

// Socket owns exactly one descriptor until it is closed or converted into a
// Listener, Stream or Datagram.
type Socket struct {
	handle
	family abi.Family
	sotype abi.SocketType
}

// New creates a socket for family and sotype with protocol 0, then marks it
// close-on-exec. A failure to set the flag is logged and otherwise ignored.
func New(ctx context.Context, p Platform, family abi.Family, sotype abi.SocketType) (*Socket, error) {
	fd, err := p.Socket(ctx, family, sotype, 0)
	if err != nil {
		return nil, errors.New(errors.PhaseCreate, errors.KindPlatform).
			Errno(errors.ErrnoOf(err)).
			Cause(err).
			Detail("%s %s", family, sotype).
			Build()
	}

	if err := p.SetDescriptorFlags(ctx, fd, abi.FDCloexec); err != nil {
		Logger().Debug("set close-on-exec failed",
			zap.Int32("fd", fd),
			zap.Error(err))
	}

	Logger().Debug("socket created",
		zap.Int32("fd", fd),
		zap.Stringer("family", family),
		zap.Stringer("type", sotype))

	return FromFd(p, fd, family, sotype), nil
}

// FromFd adopts fd, which must be a valid descriptor of the given family and
// type. The returned socket owns it.
func FromFd(p Platform, fd int32, family abi.Family, sotype abi.SocketType) *Socket {
	s := &Socket{family: family, sotype: sotype}
	attach(s, &s.handle, &owner{p: p, fd: fd})
	return s
}

// Fd returns the owned descriptor, or abi.InvalidFd once released.
func (s *Socket) Fd() int32 { return s.fd() }

func (s *Socket) State() State { return s.state() }

func (s *Socket) Family() abi.Family { return s.family }

func (s *Socket) Type() abi.SocketType { return s.sotype }

func (s *Socket) Bind(ctx context.Context, sa abi.Sockaddr) error {
	return s.bind(ctx, sa)
}

func (s *Socket) Listen(ctx context.Context, backlog int32) error {
	return s.listen(ctx, backlog)
}

func (s *Socket) Connect(ctx context.Context, sa abi.Sockaddr) error {
	return s.connect(ctx, sa)
}

// LocalAddr returns the address the socket is bound to.
func (s *Socket) LocalAddr(ctx context.Context) (abi.Sockaddr, error) {
	return s.localAddr(ctx)
}

// IntoListener moves the descriptor into a Listener. It panics if the socket
// was already released.
func (s *Socket) IntoListener() *Listener {
	o := s.mustTake("IntoListener")
	l := &Listener{family: s.family}
	attach(l, &l.handle, o)
	return l
}

// IntoStream moves the descriptor into a Stream. It panics if the socket
// was already released.
func (s *Socket) IntoStream() *Stream {
	o := s.mustTake("IntoStream")
	st := &Stream{family: s.family}
	attach(st, &st.handle, o)
	return st
}

// IntoDatagram moves the descriptor into a Datagram. It panics if the socket
// was already released.
func (s *Socket) IntoDatagram() *Datagram {
	o := s.mustTake("IntoDatagram")
	d := &Datagram{family: s.family}
	attach(d, &d.handle, o)
	return d
}

// IntoFd gives the descriptor to the caller, who becomes responsible for
// closing it. It panics if the socket was already released.
func (s *Socket) IntoFd() int32 {
	return s.mustTake("IntoFd").fd
}

// Close releases the descriptor. Only the first Close reaches the platform;
// later calls, and calls after a conversion, return a released error.
func (s *Socket) Close() error {
	return s.close()
}

func (s *Socket) String() string {
	return fmt.Sprintf("socket(fd=%d %s %s)", s.Fd(), s.family, s.sotype)
}

func (s *Socket) mustTake(op string) *owner {
	o := s.take()
	if o == nil {
		panic("socket: " + op + " on released socket")
	}
	return o
}
