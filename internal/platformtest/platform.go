// Package platformtest provides an in-memory socket.Platform that records
// every call and can be told to fail.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wippyai/wasi-sockets/abi"
)

// Call is one recorded platform invocation.
type Call struct {
	Op    string
	FD    int32
	Arg   int32
	Addr  abi.Sockaddr
	Errno abi.Errno
}

func (c Call) String() string {
	return fmt.Sprintf("%s(fd=%d arg=%d) = %s", c.Op, c.FD, c.Arg, c.Errno.Name())
}

type sock struct {
	family    abi.Family
	sotype    abi.SocketType
	local     abi.Sockaddr
	listening bool
	connected bool
	flags     int32
}

// Platform is a fake socket platform. It tracks descriptor state closely
// enough for ownership tests and never touches the host network.
type Platform struct {
	mu     sync.Mutex
	calls  []Call
	socks  map[int32]*sock
	fail   map[string]abi.Errno
	nextFD int32
	port   uint16
}

// New returns a fake whose first descriptor is firstFD.
func New(firstFD int32) *Platform {
	return &Platform{
		socks:  make(map[int32]*sock),
		fail:   make(map[string]abi.Errno),
		nextFD: firstFD,
		port:   40000,
	}
}

// Fail makes every later call to op return errno. ESUCCESS clears it.
func (p *Platform) Fail(op string, errno abi.Errno) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if errno == abi.ESUCCESS {
		delete(p.fail, op)
		return
	}
	p.fail[op] = errno
}

// Calls returns a copy of the call log.
func (p *Platform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Count returns how many times op was called.
func (p *Platform) Count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Open reports whether fd is still open.
func (p *Platform) Open(fd int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.socks[fd]
	return ok
}

// Live returns the number of open descriptors.
func (p *Platform) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.socks)
}

// Flags returns the descriptor flags last set on fd.
func (p *Platform) Flags(fd int32) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.socks[fd]; ok {
		return s.flags
	}
	return 0
}

func (p *Platform) record(c Call) error {
	if errno, ok := p.fail[c.Op]; ok {
		c.Errno = errno
	}
	p.calls = append(p.calls, c)
	if c.Errno != abi.ESUCCESS {
		return c.Errno
	}
	return nil
}

func (p *Platform) lookup(op string, fd int32, arg int32, sa abi.Sockaddr) (*sock, error) {
	s, ok := p.socks[fd]
	if !ok {
		p.calls = append(p.calls, Call{Op: op, FD: fd, Arg: arg, Addr: sa, Errno: abi.EBADF})
		return nil, abi.EBADF
	}
	return s, nil
}

func (p *Platform) Socket(_ context.Context, family abi.Family, sotype abi.SocketType, proto int32) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := Call{Op: "socket", FD: abi.InvalidFd, Arg: proto}
	switch {
	case !family.Valid():
		c.Errno = abi.EAFNOSUPPORT
	case !sotype.Valid():
		c.Errno = abi.EPROTOTYPE
	}
	if err := p.record(c); err != nil {
		return abi.InvalidFd, err
	}

	fd := p.nextFD
	p.nextFD++
	p.calls[len(p.calls)-1].FD = fd
	p.socks[fd] = &sock{family: family, sotype: sotype}
	return fd, nil
}

func (p *Platform) Bind(_ context.Context, fd int32, sa abi.Sockaddr) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.lookup("bind", fd, 0, sa)
	if err != nil {
		return err
	}
	c := Call{Op: "bind", FD: fd, Addr: sa}
	if sa.Family() != s.family {
		c.Errno = abi.EAFNOSUPPORT
	}
	if err := p.record(c); err != nil {
		return err
	}
	s.local = p.assignPort(sa)
	return nil
}

func (p *Platform) Listen(_ context.Context, fd int32, backlog int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.lookup("listen", fd, backlog, nil)
	if err != nil {
		return err
	}
	c := Call{Op: "listen", FD: fd, Arg: backlog}
	if s.sotype != abi.SocketStream {
		c.Errno = abi.ENOTSUP
	}
	if err := p.record(c); err != nil {
		return err
	}
	s.listening = true
	return nil
}

func (p *Platform) Connect(_ context.Context, fd int32, sa abi.Sockaddr) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.lookup("connect", fd, 0, sa)
	if err != nil {
		return err
	}
	c := Call{Op: "connect", FD: fd, Addr: sa}
	switch {
	case sa.Family() != s.family:
		c.Errno = abi.EAFNOSUPPORT
	case s.listening:
		c.Errno = abi.EINVAL
	}
	if err := p.record(c); err != nil {
		return err
	}
	s.connected = true
	if s.local == nil {
		s.local = p.assignPort(unspecified(s.family))
	}
	return nil
}

func (p *Platform) Getsockname(_ context.Context, fd int32) (abi.Sockaddr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.lookup("getsockname", fd, 0, nil)
	if err != nil {
		return nil, err
	}
	if err := p.record(Call{Op: "getsockname", FD: fd}); err != nil {
		return nil, err
	}
	if s.local == nil {
		return unspecified(s.family), nil
	}
	return s.local, nil
}

func (p *Platform) SetDescriptorFlags(_ context.Context, fd int32, flags int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.lookup("fcntl", fd, flags, nil)
	if err != nil {
		return err
	}
	if err := p.record(Call{Op: "fcntl", FD: fd, Arg: flags}); err != nil {
		return err
	}
	s.flags = flags
	return nil
}

func (p *Platform) Close(_ context.Context, fd int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.lookup("close", fd, 0, nil); err != nil {
		return err
	}
	if err := p.record(Call{Op: "close", FD: fd}); err != nil {
		return err
	}
	delete(p.socks, fd)
	return nil
}

// assignPort returns sa with an ephemeral port if its port is zero.
func (p *Platform) assignPort(sa abi.Sockaddr) abi.Sockaddr {
	switch sa := sa.(type) {
	case *abi.SockaddrInet4:
		out := *sa
		if out.Port == 0 {
			p.port++
			out.Port = p.port
		}
		return &out
	case *abi.SockaddrInet6:
		out := *sa
		if out.Port == 0 {
			p.port++
			out.Port = p.port
		}
		return &out
	}
	return sa
}

func unspecified(family abi.Family) abi.Sockaddr {
	if family == abi.FamilyInet6 {
		return &abi.SockaddrInet6{}
	}
	return &abi.SockaddrInet4{}
}
