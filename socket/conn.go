package socket

import (
	"context"
	"fmt"

	"github.com/wippyai/wasi-sockets/abi"
)

// Listener owns a descriptor that accepts stream connections.
type Listener struct {
	handle
	family abi.Family
}

func (l *Listener) Fd() int32          { return l.fd() }
func (l *Listener) State() State       { return l.state() }
func (l *Listener) Family() abi.Family { return l.family }

func (l *Listener) LocalAddr(ctx context.Context) (abi.Sockaddr, error) {
	return l.localAddr(ctx)
}

// Close releases the descriptor exactly once.
func (l *Listener) Close() error { return l.close() }

func (l *Listener) String() string {
	return fmt.Sprintf("listener(fd=%d %s)", l.Fd(), l.family)
}

// Stream owns a connected stream descriptor.
type Stream struct {
	handle
	family abi.Family
}

func (st *Stream) Fd() int32          { return st.fd() }
func (st *Stream) State() State       { return st.state() }
func (st *Stream) Family() abi.Family { return st.family }

func (st *Stream) LocalAddr(ctx context.Context) (abi.Sockaddr, error) {
	return st.localAddr(ctx)
}

// Close releases the descriptor exactly once.
func (st *Stream) Close() error { return st.close() }

func (st *Stream) String() string {
	return fmt.Sprintf("stream(fd=%d %s)", st.Fd(), st.family)
}

// Datagram owns a datagram descriptor. It may be bound and given a default
// peer after conversion.
type Datagram struct {
	handle
	family abi.Family
}

func (d *Datagram) Fd() int32          { return d.fd() }
func (d *Datagram) State() State       { return d.state() }
func (d *Datagram) Family() abi.Family { return d.family }

func (d *Datagram) Bind(ctx context.Context, sa abi.Sockaddr) error {
	return d.bind(ctx, sa)
}

// Connect sets the default peer.
func (d *Datagram) Connect(ctx context.Context, sa abi.Sockaddr) error {
	return d.connect(ctx, sa)
}

func (d *Datagram) LocalAddr(ctx context.Context) (abi.Sockaddr, error) {
	return d.localAddr(ctx)
}

// Close releases the descriptor exactly once.
func (d *Datagram) Close() error { return d.close() }

func (d *Datagram) String() string {
	return fmt.Sprintf("datagram(fd=%d %s)", d.Fd(), d.family)
}
