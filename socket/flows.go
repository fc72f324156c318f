package socket

import (
	"context"
	"net/netip"

	"go.uber.org/multierr"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/errors"
)

// DefaultBacklog is the listen backlog used when a caller passes 0.
const DefaultBacklog = 128

func sockaddrFor(phase errors.Phase, ap netip.AddrPort) (abi.Family, abi.Sockaddr, error) {
	sa, err := abi.SockaddrFromAddrPort(ap)
	if err != nil {
		return abi.FamilyUnspec, nil, errors.New(phase, errors.KindInvalidInput).
			Errno(abi.EAFNOSUPPORT).
			Detail("address %s", ap).
			Build()
	}
	return sa.Family(), sa, nil
}

// ListenTCP creates a stream socket, binds it to ap and starts listening.
// A zero backlog selects DefaultBacklog.
func ListenTCP(ctx context.Context, p Platform, ap netip.AddrPort, backlog int32) (*Listener, error) {
	family, sa, err := sockaddrFor(errors.PhaseBind, ap)
	if err != nil {
		return nil, err
	}
	if backlog == 0 {
		backlog = DefaultBacklog
	}

	s, err := New(ctx, p, family, abi.SocketStream)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(ctx, sa); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	if err := s.Listen(ctx, backlog); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s.IntoListener(), nil
}

// DialTCP creates a stream socket and connects it to ap.
func DialTCP(ctx context.Context, p Platform, ap netip.AddrPort) (*Stream, error) {
	family, sa, err := sockaddrFor(errors.PhaseConnect, ap)
	if err != nil {
		return nil, err
	}

	s, err := New(ctx, p, family, abi.SocketStream)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx, sa); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s.IntoStream(), nil
}

// ListenUDP creates a datagram socket bound to ap.
func ListenUDP(ctx context.Context, p Platform, ap netip.AddrPort) (*Datagram, error) {
	family, sa, err := sockaddrFor(errors.PhaseBind, ap)
	if err != nil {
		return nil, err
	}

	s, err := New(ctx, p, family, abi.SocketDatagram)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(ctx, sa); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s.IntoDatagram(), nil
}
