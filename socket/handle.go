package socket

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/errors"
)

// State reports whether a handle still owns its descriptor.
type State uint8

const (
	StateOwning State = iota
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateOwning:
		return "owning"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// owner is the single record allowed to release a descriptor. Conversions
// move it between handles, they never copy it.
type owner struct {
	p        Platform
	fd       int32
	released atomic.Bool
}

// release closes the descriptor. Only the first call reaches the platform.
func (o *owner) release(ctx context.Context) error {
	if !o.released.CompareAndSwap(false, true) {
		return nil
	}
	return o.p.Close(ctx, o.fd)
}

func releaseUnreachable(o *owner) {
	if o.released.Load() {
		return
	}
	if err := o.release(context.Background()); err != nil {
		Logger().Warn("release unreachable socket", zap.Int32("fd", o.fd), zap.Error(err))
		return
	}
	Logger().Debug("released unreachable socket", zap.Int32("fd", o.fd))
}

// handle is embedded by every type that owns a descriptor.
type handle struct {
	own     atomic.Pointer[owner]
	cleanup runtime.Cleanup
}

// attach gives o to h, and releases it if obj becomes unreachable first.
func attach[T any](obj *T, h *handle, o *owner) {
	h.own.Store(o)
	h.cleanup = runtime.AddCleanup(obj, releaseUnreachable, o)
}

// take removes the owner from h. It returns nil if h was already released.
func (h *handle) take() *owner {
	o := h.own.Swap(nil)
	if o != nil {
		h.cleanup.Stop()
	}
	return o
}

func (h *handle) fd() int32 {
	if o := h.own.Load(); o != nil {
		return o.fd
	}
	return abi.InvalidFd
}

func (h *handle) state() State {
	if h.own.Load() == nil {
		return StateReleased
	}
	return StateOwning
}

func (h *handle) close() error {
	o := h.take()
	if o == nil {
		return errors.Released(errors.PhaseClose)
	}
	if err := o.release(context.Background()); err != nil {
		return errors.Platform(errors.PhaseClose, o.fd, err)
	}
	Logger().Debug("socket closed", zap.Int32("fd", o.fd))
	return nil
}

func (h *handle) bind(ctx context.Context, sa abi.Sockaddr) error {
	o := h.own.Load()
	if o == nil {
		return errors.Released(errors.PhaseBind)
	}
	if err := o.p.Bind(ctx, o.fd, sa); err != nil {
		return platformError(errors.PhaseBind, o.fd, err, sa)
	}
	return nil
}

func (h *handle) listen(ctx context.Context, backlog int32) error {
	o := h.own.Load()
	if o == nil {
		return errors.Released(errors.PhaseListen)
	}
	if err := o.p.Listen(ctx, o.fd, backlog); err != nil {
		return platformError(errors.PhaseListen, o.fd, err, nil)
	}
	return nil
}

func (h *handle) connect(ctx context.Context, sa abi.Sockaddr) error {
	o := h.own.Load()
	if o == nil {
		return errors.Released(errors.PhaseConnect)
	}
	if err := o.p.Connect(ctx, o.fd, sa); err != nil {
		return platformError(errors.PhaseConnect, o.fd, err, sa)
	}
	return nil
}

func (h *handle) localAddr(ctx context.Context) (abi.Sockaddr, error) {
	o := h.own.Load()
	if o == nil {
		return nil, errors.Released(errors.PhaseAddr)
	}
	sa, err := o.p.Getsockname(ctx, o.fd)
	if err != nil {
		return nil, platformError(errors.PhaseAddr, o.fd, err, nil)
	}
	return sa, nil
}

func platformError(phase errors.Phase, fd int32, cause error, sa abi.Sockaddr) *errors.Error {
	e := errors.Platform(phase, fd, cause)
	if sa != nil {
		e.Detail = FormatSockaddr(sa)
		e.Value = sa
	}
	return e
}

// FormatSockaddr renders sa as host:port, or by family when it has no
// address form.
func FormatSockaddr(sa abi.Sockaddr) string {
	if sa == nil {
		return "<nil>"
	}
	if ap, ok := abi.AddrPort(sa); ok {
		return ap.String()
	}
	return fmt.Sprintf("%s(raw)", sa.Family())
}
