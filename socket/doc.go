// Package socket provides descriptor-owning socket handles over a Platform.
//
// A Socket owns exactly one descriptor. It is either closed, which releases
// the descriptor, or converted into a Listener, Stream or Datagram, which
// moves ownership without touching the descriptor:
//
//	s, err := socket.New(ctx, p, abi.FamilyInet, abi.SocketStream)
//	if err != nil {
//	    return err
//	}
//	if err := s.Bind(ctx, sa); err != nil {
//	    s.Close()
//	    return err
//	}
//	if err := s.Listen(ctx, socket.DefaultBacklog); err != nil {
//	    s.Close()
//	    return err
//	}
//	l := s.IntoListener() // s.Fd() == abi.InvalidFd from here on
//
// After a conversion the source reports StateReleased, its Fd returns
// abi.InvalidFd and Close returns a released error without calling the
// platform. Converting a released socket panics.
//
// Handles that become unreachable while still owning a descriptor are
// released by a runtime cleanup, at most once.
//
// ListenTCP, DialTCP and ListenUDP wrap the common create, bind, listen and
// connect sequences and close the socket if a step fails.
package socket
