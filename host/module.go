package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/errors"
	"github.com/wippyai/wasi-sockets/resource"
	"github.com/wippyai/wasi-sockets/socket"
)

// ModuleName is the import module guests link against.
const ModuleName = "wasi_sock_v0"

// Module exposes a socket.Platform to guests. Guests only ever see table
// handles; the platform descriptors behind them stay on the host.
//
// Configure with the builder methods before the first call to Table or
// Instantiate.
type Module struct {
	platform     socket.Platform
	logger       *zap.Logger
	allow        []netip.Prefix
	unrestricted bool
	maxFDs       int
	firstFD      resource.Handle

	descs     *resource.Typed[*descriptor]
	tableOnce sync.Once
	closed    atomic.Bool
}

// New creates a module over p. By default no address may be bound or
// connected to; use WithAllow or Unrestricted to grant access.
func New(p socket.Platform) *Module {
	return &Module{
		platform: p,
		firstFD:  resource.DefaultBase,
	}
}

// WithLogger sets the logger used for guest calls. It defaults to Logger().
func (m *Module) WithLogger(l *zap.Logger) *Module {
	m.logger = l
	return m
}

// WithAllow adds address ranges guests may bind and connect to.
func (m *Module) WithAllow(prefixes ...netip.Prefix) *Module {
	for _, p := range prefixes {
		m.allow = append(m.allow, p.Masked())
	}
	return m
}

// Unrestricted lets guests use any address.
func (m *Module) Unrestricted() *Module {
	m.unrestricted = true
	return m
}

// WithMaxDescriptors caps the number of descriptors a guest may hold open.
// Zero means no limit.
func (m *Module) WithMaxDescriptors(n int) *Module {
	m.maxFDs = n
	return m
}

// WithFirstDescriptor sets the first handle given to guests.
func (m *Module) WithFirstDescriptor(n uint32) *Module {
	m.firstFD = resource.Handle(n)
	return m
}

// descriptorType is the table type ID of every descriptor.
const descriptorType uint32 = 1

// Table returns the descriptor table, creating it on first use.
func (m *Module) Table() *resource.Table {
	return m.descriptors().Table()
}

func (m *Module) descriptors() *resource.Typed[*descriptor] {
	m.tableOnce.Do(func() {
		t := resource.NewTableWithConfig(&resource.Config{
			Base:  m.firstFD,
			Limit: m.maxFDs,
		})
		m.descs = resource.NewTyped[*descriptor](t, descriptorType)
	})
	return m.descs
}

func (m *Module) log() *zap.Logger {
	if m.logger != nil {
		return m.logger
	}
	return Logger()
}

// Permitted reports whether guests may use ap under the configured policy.
func (m *Module) Permitted(ap netip.AddrPort) bool {
	if m.unrestricted {
		return true
	}
	addr := ap.Addr().Unmap()
	for _, p := range m.allow {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (m *Module) check(phase errors.Phase, fd int32, sa abi.Sockaddr) error {
	ap, ok := abi.AddrPort(sa)
	if !ok {
		return errors.New(phase, errors.KindInvalidInput).
			FD(fd).
			Errno(abi.EAFNOSUPPORT).
			Detail("family %s", sa.Family()).
			Build()
	}
	if !m.Permitted(ap) {
		return errors.Denied(phase, fd, ap.String())
	}
	return nil
}

// borrow looks fd up and holds it, together with its state lock, until the
// returned func runs. The entry is reloaded once the lock is held, so a
// conversion made by a concurrent call is always observed.
func (m *Module) borrow(phase errors.Phase, fd int32) (*descriptor, func(), error) {
	if m.closed.Load() || fd < 0 {
		return nil, nil, errors.NotFound(phase, "descriptor", fd)
	}
	h := resource.Handle(fd)
	d, ok := m.descriptors().Borrow(h)
	if !ok {
		return nil, nil, errors.NotFound(phase, "descriptor", fd)
	}
	d.mu.Lock()
	done := func() {
		d.mu.Unlock()
		m.descriptors().ReturnBorrow(h)
	}
	cur, ok := m.descriptors().Get(h)
	if !ok {
		done()
		return nil, nil, errors.NotFound(phase, "descriptor", fd)
	}
	return cur, done, nil
}

// Open creates a socket and returns its guest handle. Datagram sockets are
// converted immediately since they need no listen or connect step.
func (m *Module) Open(ctx context.Context, family abi.Family, sotype abi.SocketType, proto int32) (int32, error) {
	if m.closed.Load() {
		return abi.InvalidFd, errors.New(errors.PhaseCreate, errors.KindReleased).Errno(abi.EBADF).Detail("module closed").Build()
	}
	if proto != 0 {
		e := errors.Unsupported(errors.PhaseCreate, fmt.Sprintf("protocol %d", proto))
		e.Errno = abi.EPROTONOSUPPORT
		e.Value = proto
		return abi.InvalidFd, e
	}

	s, err := socket.New(ctx, m.platform, family, sotype)
	if err != nil {
		return abi.InvalidFd, err
	}

	d := &descriptor{mu: new(sync.Mutex), family: family, sotype: sotype, log: m.log()}
	if sotype == abi.SocketDatagram {
		d.conn, d.kind = s.IntoDatagram(), KindDatagram
	} else {
		d.conn, d.kind = s, KindSocket
	}

	h, err := m.descriptors().Insert(d)
	if err != nil {
		closeErr := d.conn.Close()
		errno := abi.EBADF
		if stderrors.Is(err, resource.ErrLimit) {
			errno = abi.EMFILE
		}
		return abi.InvalidFd, multierr.Append(
			errors.New(errors.PhaseCreate, errors.KindPlatform).Errno(errno).Cause(err).Build(),
			closeErr)
	}

	m.log().Debug("sock_open",
		zap.Uint32("handle", uint32(h)),
		zap.Int32("fd", d.conn.Fd()),
		zap.Stringer("family", family),
		zap.Stringer("type", sotype))
	return int32(h), nil
}

// Bind binds fd to sa if the policy allows it.
func (m *Module) Bind(ctx context.Context, fd int32, sa abi.Sockaddr) error {
	d, done, err := m.borrow(errors.PhaseBind, fd)
	if err != nil {
		return err
	}
	defer done()

	if err := m.check(errors.PhaseBind, fd, sa); err != nil {
		return err
	}
	switch c := d.conn.(type) {
	case *socket.Socket:
		err = c.Bind(ctx, sa)
	case *socket.Datagram:
		err = c.Bind(ctx, sa)
	default:
		return invalidState(errors.PhaseBind, fd, d.kind, abi.EINVAL)
	}
	if err == nil {
		m.Table().Touch(resource.Handle(fd))
	}
	return err
}

// Listen starts listening on a stream socket and turns it into a listener.
func (m *Module) Listen(ctx context.Context, fd int32, backlog int32) error {
	d, done, err := m.borrow(errors.PhaseListen, fd)
	if err != nil {
		return err
	}
	defer done()

	s, ok := d.conn.(*socket.Socket)
	if !ok {
		if d.kind == KindDatagram {
			e := errors.Unsupported(errors.PhaseListen, "listen on a datagram socket")
			e.FD = fd
			return e
		}
		return invalidState(errors.PhaseListen, fd, d.kind, abi.EINVAL)
	}
	if err := s.Listen(ctx, backlog); err != nil {
		return err
	}

	m.replace(fd, d, s.IntoListener(), KindListener)
	return nil
}

// Connect connects fd to sa if the policy allows it. A stream socket becomes
// a stream; a datagram socket keeps sa as its default peer.
func (m *Module) Connect(ctx context.Context, fd int32, sa abi.Sockaddr) error {
	d, done, err := m.borrow(errors.PhaseConnect, fd)
	if err != nil {
		return err
	}
	defer done()

	if err := m.check(errors.PhaseConnect, fd, sa); err != nil {
		return err
	}
	switch c := d.conn.(type) {
	case *socket.Socket:
		if err := c.Connect(ctx, sa); err != nil {
			return err
		}
		m.replace(fd, d, c.IntoStream(), KindStream)
		return nil
	case *socket.Datagram:
		if err := c.Connect(ctx, sa); err != nil {
			return err
		}
		m.Table().Touch(resource.Handle(fd))
		return nil
	case *socket.Stream:
		return invalidState(errors.PhaseConnect, fd, d.kind, abi.EISCONN)
	}
	return invalidState(errors.PhaseConnect, fd, d.kind, abi.EINVAL)
}

// LocalAddr returns the address fd is bound to.
func (m *Module) LocalAddr(ctx context.Context, fd int32) (abi.Sockaddr, error) {
	d, done, err := m.borrow(errors.PhaseAddr, fd)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.conn.LocalAddr(ctx)
}

// SetDescriptorFlags forwards flags to the platform descriptor behind fd.
func (m *Module) SetDescriptorFlags(ctx context.Context, fd int32, flags int32) error {
	d, done, err := m.borrow(errors.PhaseFlags, fd)
	if err != nil {
		return err
	}
	defer done()

	native := d.conn.Fd()
	if err := m.platform.SetDescriptorFlags(ctx, native, flags); err != nil {
		return errors.Platform(errors.PhaseFlags, fd, err)
	}
	return nil
}

// CloseDescriptor removes fd from the table and releases it. A descriptor
// in use by another call reports EBUSY.
func (m *Module) CloseDescriptor(_ context.Context, fd int32) error {
	if m.closed.Load() || fd < 0 {
		return errors.NotFound(errors.PhaseClose, "descriptor", fd)
	}
	d, err := m.descriptors().Remove(resource.Handle(fd))
	switch {
	case stderrors.Is(err, resource.ErrOutstandingBorrow):
		return errors.New(errors.PhaseClose, errors.KindInvalidInput).FD(fd).Errno(abi.EBUSY).Cause(err).Build()
	case err != nil:
		return errors.NotFound(errors.PhaseClose, "descriptor", fd)
	}

	m.log().Debug("sock_close",
		zap.Int32("handle", fd),
		zap.Stringer("kind", d.kind))
	return d.closeErr
}

// Entries returns the live descriptors in handle order.
func (m *Module) Entries() []Entry {
	var out []Entry
	m.descriptors().Each(func(h resource.Handle, d *descriptor) bool {
		out = append(out, Entry{
			Handle: uint32(h),
			Kind:   d.kind,
			Family: d.family,
			Type:   d.sotype,
			FD:     d.conn.Fd(),
		})
		return true
	})
	return out
}

// Close releases every descriptor still held by guests. Later guest calls
// fail with EBADF.
func (m *Module) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	var held []*descriptor
	m.descriptors().Each(func(_ resource.Handle, d *descriptor) bool {
		held = append(held, d)
		return true
	})

	err := m.Table().Close()
	for _, d := range held {
		err = multierr.Append(err, d.closeErr)
	}
	if len(held) > 0 {
		m.log().Debug("released guest descriptors", zap.Int("count", len(held)))
	}
	return err
}

// replace swaps the entry for fd after a conversion.
func (m *Module) replace(fd int32, old *descriptor, conn owned, kind Kind) {
	d := &descriptor{
		mu:     old.mu,
		conn:   conn,
		kind:   kind,
		family: old.family,
		sotype: old.sotype,
		log:    old.log,
	}
	m.descriptors().Replace(resource.Handle(fd), d)
}

func invalidState(phase errors.Phase, fd int32, kind Kind, errno abi.Errno) error {
	e := errors.InvalidInput(phase, fmt.Sprintf("not valid on a %s", kind))
	e.FD = fd
	e.Errno = errno
	return e
}
