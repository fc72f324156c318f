package abi

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"
)

func TestEncodeSockaddr_Inet4Layout(t *testing.T) {
	sa := &SockaddrInet4{Port: 8080, Addr: [4]byte{127, 0, 0, 1}}
	got := EncodeSockaddr(sa)

	want := []byte{
		0x01, 0x00, // family, little-endian
		0x1f, 0x90, // port 8080, network order
		127, 0, 0, 1,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("layout mismatch\n got  %x\n want %x", got, want)
	}
	if len(got) != SizeofSockaddrInet4 {
		t.Errorf("len = %d, want %d", len(got), SizeofSockaddrInet4)
	}
}

func TestEncodeSockaddr_Inet6Layout(t *testing.T) {
	sa := &SockaddrInet6{
		Port:     443,
		FlowInfo: 0x01020304,
		Addr:     [16]byte{15: 1},
		ScopeID:  7,
	}
	got := EncodeSockaddr(sa)
	if len(got) != SizeofSockaddrInet6 {
		t.Fatalf("len = %d, want %d", len(got), SizeofSockaddrInet6)
	}

	checks := []struct {
		name   string
		offset int
		want   []byte
	}{
		{"family", 0, []byte{0x02, 0x00}},
		{"port", 2, []byte{0x01, 0xbb}},
		{"flowinfo", 4, []byte{0x04, 0x03, 0x02, 0x01}},
		{"addr tail", 23, []byte{0x01}},
		{"scope", 24, []byte{0x07, 0x00, 0x00, 0x00}},
	}
	for _, c := range checks {
		if !bytes.Equal(got[c.offset:c.offset+len(c.want)], c.want) {
			t.Errorf("%s at %d = %x, want %x", c.name, c.offset, got[c.offset:c.offset+len(c.want)], c.want)
		}
	}
}

func TestDecodeSockaddr_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		sa   Sockaddr
	}{
		{"inet4", &SockaddrInet4{Port: 53, Addr: [4]byte{10, 1, 2, 3}}},
		{"inet4 any", &SockaddrInet4{}},
		{"inet6", &SockaddrInet6{Port: 65535, FlowInfo: 9, Addr: [16]byte{0: 0xfe, 1: 0x80, 15: 0x2}, ScopeID: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeSockaddr(EncodeSockaddr(tt.sa))
			if err != nil {
				t.Fatalf("DecodeSockaddr: %v", err)
			}
			switch want := tt.sa.(type) {
			case *SockaddrInet4:
				got, ok := decoded.(*SockaddrInet4)
				if !ok || *got != *want {
					t.Errorf("got %#v, want %#v", decoded, want)
				}
			case *SockaddrInet6:
				got, ok := decoded.(*SockaddrInet6)
				if !ok || *got != *want {
					t.Errorf("got %#v, want %#v", decoded, want)
				}
			}
		})
	}
}

func TestDecodeSockaddr_Errors(t *testing.T) {
	inet6 := EncodeSockaddr(&SockaddrInet6{Port: 1})

	tests := []struct {
		name string
		buf  []byte
		want Errno
	}{
		{"empty", nil, EINVAL},
		{"one byte", []byte{1}, EINVAL},
		{"short inet4", []byte{1, 0, 0, 80, 127, 0, 0}, EINVAL},
		{"short inet6", inet6[:SizeofSockaddrInet6-1], EINVAL},
		{"unspec", make([]byte, SizeofSockaddr), EAFNOSUPPORT},
		{"unknown family", []byte{9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, EAFNOSUPPORT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSockaddr(tt.buf)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRawSockaddr_Encode(t *testing.T) {
	raw := &RawSockaddr{Fam: 42, Data: [14]byte{0: 0xaa, 13: 0xbb}}
	buf := EncodeSockaddr(raw)
	if len(buf) != SizeofSockaddr {
		t.Fatalf("len = %d, want %d", len(buf), SizeofSockaddr)
	}
	fam, err := StorageFamily(buf)
	if err != nil || fam != 42 {
		t.Fatalf("StorageFamily = %v, %v", fam, err)
	}
	if buf[2] != 0xaa || buf[15] != 0xbb {
		t.Errorf("data not copied: %x", buf)
	}
}

func TestSockaddrFromAddrPort(t *testing.T) {
	tests := []struct {
		in     string
		family Family
	}{
		{"127.0.0.1:80", FamilyInet},
		{"[::ffff:10.0.0.1]:80", FamilyInet},
		{"[::1]:8080", FamilyInet6},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ap := netip.MustParseAddrPort(tt.in)
			sa, err := SockaddrFromAddrPort(ap)
			if err != nil {
				t.Fatalf("SockaddrFromAddrPort: %v", err)
			}
			if sa.Family() != tt.family {
				t.Errorf("family = %v, want %v", sa.Family(), tt.family)
			}
			back, ok := AddrPort(sa)
			if !ok {
				t.Fatal("AddrPort not convertible")
			}
			if back.Port() != ap.Port() || back.Addr() != ap.Addr().Unmap() {
				t.Errorf("round trip = %v, want %v", back, ap)
			}
		})
	}

	if _, err := SockaddrFromAddrPort(netip.AddrPort{}); !errors.Is(err, EAFNOSUPPORT) {
		t.Errorf("zero AddrPort err = %v, want EAFNOSUPPORT", err)
	}
	if _, ok := AddrPort(&RawSockaddr{}); ok {
		t.Error("RawSockaddr should not convert")
	}
}

func TestInAddrToU32(t *testing.T) {
	if got := InAddrToU32([4]byte{192, 168, 1, 2}); got != 0xc0a80102 {
		t.Errorf("InAddrToU32 = %#x, want 0xc0a80102", got)
	}
	sa := &SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}
	if got := SockaddrInU32(sa); got != 0x7f000001 {
		t.Errorf("SockaddrInU32 = %#x, want 0x7f000001", got)
	}
}

func TestPlatformConstants(t *testing.T) {
	if SocketDatagram != 0 {
		t.Errorf("SOCK_DGRAM = %d, want 0", SocketDatagram)
	}
	if FDCloexec != 0 {
		t.Errorf("FD_CLOEXEC = %d, want 0", FDCloexec)
	}
	if SOReusePort != 0 {
		t.Errorf("SO_REUSEPORT = %d, want 0", SOReusePort)
	}
	if SizeofSockaddrStorage < SizeofSockaddrInet6 || SizeofSockaddrStorage < SizeofSockaddr {
		t.Errorf("storage too small: %d", SizeofSockaddrStorage)
	}
}
