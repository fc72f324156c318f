// Package wasisockets gives WebAssembly guests BSD-style sockets through a
// small host module, and gives Go code a socket handle that owns its
// descriptor.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	wasisockets/          Root package (documentation only)
//	├── abi/              Address families, socket types, errno and sockaddr layouts
//	├── errors/           Structured error types for debugging
//	├── socket/           Owning Socket handle and its Listener/Stream/Datagram forms
//	├── platform/native/  Platform backed by the host operating system
//	├── platform/guest/   Platform for wasip1 guests calling the host module
//	├── host/             wasi_sock_v0 host module for wazero
//	├── resource/         Descriptor table handing out guest handles
//	└── cmd/wasisock/     Runner for wasip1 modules with socket access
//
// # Quick Start
//
// Open a listener on the host:
//
//	p := native.New()
//	ln, err := socket.ListenTCP(ctx, p, netip.MustParseAddrPort("127.0.0.1:0"), 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ln.Close()
//
// Or build one step by step. Each conversion moves the descriptor into the
// new value and leaves the socket released:
//
//	s, err := socket.New(ctx, p, abi.FamilyInet, abi.SocketStream)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Bind(ctx, sa); err != nil {
//	    s.Close()
//	    log.Fatal(err)
//	}
//	if err := s.Listen(ctx, 128); err != nil {
//	    s.Close()
//	    log.Fatal(err)
//	}
//	ln := s.IntoListener()
//
// # Guests
//
// Expose sockets to a wasip1 guest running under wazero:
//
//	r := wazero.NewRuntime(ctx)
//	wasi_snapshot_preview1.MustInstantiate(ctx, r)
//
//	mod := host.New(native.New()).WithAllow(netip.MustParsePrefix("127.0.0.0/8"))
//	defer mod.Close()
//	if _, err := mod.Instantiate(ctx, r); err != nil {
//	    log.Fatal(err)
//	}
//
// Inside the guest, platform/guest implements socket.Platform over the
// imports, so the same socket package runs on both sides.
//
// # Ownership
//
// A descriptor is released exactly once: by Close, or by a garbage
// collector cleanup when the owning value becomes unreachable. Converting
// a released socket panics. Guest handles held when the host module closes
// are released with it.
//
// # Thread Safety
//
// Socket values may be closed from any goroutine. The host module is safe
// for concurrent guest calls; a descriptor in use by one call cannot be
// closed by another.
package wasisockets
