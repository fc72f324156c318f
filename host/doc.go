// Package host provides the wasi_sock_v0 host module for wazero.
//
// The module gives a guest socket descriptors backed by a socket.Platform,
// usually platform/native. Guests receive table handles, never platform
// descriptors. Each handle is owned by the module's descriptor table and is
// released exactly once: when the guest calls sock_close, or when the module
// is closed.
//
//	m := host.New(native.New()).
//	    WithAllow(netip.MustParsePrefix("127.0.0.0/8")).
//	    WithMaxDescriptors(64)
//	defer m.Close()
//
//	if _, err := m.Instantiate(ctx, runtime); err != nil {
//	    return err
//	}
//
// Exports take and return i32 values. The result is an abi.Errno, 0 on
// success:
//
//	sock_open(af, socktype, proto, fd_ptr)
//	sock_bind(fd, addr_ptr, addr_len)
//	sock_listen(fd, backlog)
//	sock_connect(fd, addr_ptr, addr_len)
//	sock_getsockname(fd, addr_ptr, addrlen_ptr)
//	sock_setfdflags(fd, flags)
//	sock_close(fd)
//
// Addresses outside the allow-list fail with ENOTCAPABLE. Unknown handles
// fail with EBADF and out-of-range pointers with EFAULT.
package host
