package guest

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/socket"
)

// fakeHost answers the raw ABI the way wasi_sock_v0 does.
type fakeHost struct {
	nextFD  int32
	status  int32
	lastFD  int32
	lastArg int32
	addr    []byte
	local   []byte
	closed  []int32
}

func (h *fakeHost) open(af, sotype, proto int32, fd *int32) int32 {
	if h.status != 0 {
		return h.status
	}
	h.lastArg = proto
	*fd = h.nextFD
	h.nextFD++
	return 0
}

func (h *fakeHost) bind(fd int32, addr []byte) int32 {
	h.lastFD = fd
	h.addr = append([]byte(nil), addr...)
	return h.status
}

func (h *fakeHost) listen(fd, backlog int32) int32 {
	h.lastFD, h.lastArg = fd, backlog
	return h.status
}

func (h *fakeHost) connect(fd int32, addr []byte) int32 {
	h.lastFD = fd
	h.addr = append([]byte(nil), addr...)
	return h.status
}

func (h *fakeHost) getsockname(fd int32, addr []byte, addrlen *uint32) int32 {
	if h.status != 0 {
		return h.status
	}
	if int(*addrlen) < len(h.local) {
		return int32(abi.EINVAL)
	}
	*addrlen = uint32(copy(addr, h.local))
	return 0
}

func (h *fakeHost) setfdflags(fd, flags int32) int32 {
	h.lastFD, h.lastArg = fd, flags
	return h.status
}

func (h *fakeHost) close(fd int32) int32 {
	if h.status != 0 {
		return h.status
	}
	h.closed = append(h.closed, fd)
	return 0
}

func TestPlatform_ListenFlow(t *testing.T) {
	ctx := context.Background()
	h := &fakeHost{nextFD: 3}
	h.local = abi.EncodeSockaddr(&abi.SockaddrInet4{Port: 9000, Addr: [4]byte{127, 0, 0, 1}})
	p := &Platform{c: h}

	s, err := socket.New(ctx, p, abi.FamilyInet, abi.SocketStream)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Fd() != 3 {
		t.Fatalf("Fd() = %d", s.Fd())
	}
	if h.lastFD != 3 || h.lastArg != abi.FDCloexec {
		t.Fatalf("fdflags call fd=%d flags=%d", h.lastFD, h.lastArg)
	}

	if err := s.Bind(ctx, &abi.SockaddrInet4{Port: 9000, Addr: [4]byte{127, 0, 0, 1}}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(h.addr) != abi.SizeofSockaddrInet4 {
		t.Fatalf("bind passed %d bytes", len(h.addr))
	}
	if fam := binary.LittleEndian.Uint16(h.addr); fam != uint16(abi.FamilyInet) {
		t.Fatalf("bind family tag = %d", fam)
	}
	if port := binary.BigEndian.Uint16(h.addr[2:]); port != 9000 {
		t.Fatalf("bind port = %d", port)
	}

	if err := s.Listen(ctx, 5); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if h.lastArg != 5 {
		t.Fatalf("backlog = %d", h.lastArg)
	}

	l := s.IntoListener()
	sa, err := l.LocalAddr(ctx)
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}
	if got := socket.FormatSockaddr(sa); got != "127.0.0.1:9000" {
		t.Fatalf("LocalAddr = %s", got)
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if len(h.closed) != 1 || h.closed[0] != 3 {
		t.Fatalf("closed = %v", h.closed)
	}
}

func TestPlatform_Errors(t *testing.T) {
	ctx := context.Background()
	h := &fakeHost{nextFD: 3, status: int32(abi.ENOTCAPABLE)}
	p := &Platform{c: h}

	if _, err := p.Socket(ctx, abi.FamilyInet, abi.SocketStream, 0); err != abi.ENOTCAPABLE {
		t.Fatalf("Socket = %v", err)
	}
	if err := p.Connect(ctx, 3, &abi.SockaddrInet6{Port: 1}); err != abi.ENOTCAPABLE {
		t.Fatalf("Connect = %v", err)
	}
	if len(h.addr) != abi.SizeofSockaddrInet6 {
		t.Fatalf("connect passed %d bytes", len(h.addr))
	}
	if err := p.Bind(ctx, 3, nil); err != abi.EINVAL {
		t.Fatalf("Bind(nil) = %v", err)
	}
	if _, err := p.Getsockname(ctx, 3); err != abi.ENOTCAPABLE {
		t.Fatalf("Getsockname = %v", err)
	}
}

func TestPlatform_GetsocknameInet6(t *testing.T) {
	want := &abi.SockaddrInet6{Port: 443, ScopeID: 4, Addr: [16]byte{15: 1}}
	h := &fakeHost{local: abi.EncodeSockaddr(want)}
	p := &Platform{c: h}

	sa, err := p.Getsockname(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := sa.(*abi.SockaddrInet6)
	if !ok || *got != *want {
		t.Fatalf("Getsockname = %+v", sa)
	}
}

func TestDecodeAddr(t *testing.T) {
	buf := abi.EncodeSockaddr(&abi.SockaddrInet4{Port: 1})
	if _, err := decodeAddr(buf, uint32(len(buf)+1)); err != abi.EINVAL {
		t.Fatalf("oversized length = %v", err)
	}
	if _, err := decodeAddr(buf, 4); err != abi.EINVAL {
		t.Fatalf("short length = %v", err)
	}
	if _, err := decodeAddr(buf, uint32(len(buf))); err != nil {
		t.Fatal(err)
	}
}

func TestResult(t *testing.T) {
	if result(0) != nil {
		t.Fatal("0 should be success")
	}
	if err := result(int32(abi.EBADF)); err != abi.EBADF {
		t.Fatalf("result = %v", err)
	}
}
