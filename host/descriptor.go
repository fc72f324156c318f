package host

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-sockets/abi"
)

// Kind is the role of a descriptor in the table. It doubles as the table
// type ID.
type Kind uint32

const (
	KindSocket Kind = iota + 1
	KindListener
	KindStream
	KindDatagram
)

func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "socket"
	case KindListener:
		return "listener"
	case KindStream:
		return "stream"
	case KindDatagram:
		return "datagram"
	}
	return "unknown"
}

// owned is what socket.Socket, Listener, Stream and Datagram have in common.
type owned interface {
	Fd() int32
	LocalAddr(ctx context.Context) (abi.Sockaddr, error)
	Close() error
}

// descriptor is a table entry. Converting the socket replaces the entry, so
// a descriptor never outlives the owner it wraps. The replacement shares mu
// with the entry it replaces.
type descriptor struct {
	mu       *sync.Mutex
	conn     owned
	kind     Kind
	family   abi.Family
	sotype   abi.SocketType
	closeErr error
	log      *zap.Logger
}

// Drop releases the wrapped owner. The table calls it exactly once.
func (d *descriptor) Drop() {
	d.closeErr = d.conn.Close()
	if d.closeErr != nil {
		d.log.Debug("descriptor close failed",
			zap.Stringer("kind", d.kind),
			zap.Error(d.closeErr))
	}
}

// KindOf returns the kind of a table value, or 0 for values the module did
// not create.
func KindOf(v any) Kind {
	if d, ok := v.(*descriptor); ok {
		return d.kind
	}
	return 0
}

// Entry describes one live descriptor.
type Entry struct {
	Handle uint32
	Kind   Kind
	Family abi.Family
	Type   abi.SocketType
	FD     int32
}
