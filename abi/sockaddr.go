package abi

import (
	"encoding/binary"
	"net/netip"
)

// Sockaddr is a decoded socket address.
type Sockaddr interface {
	Family() Family
	sockaddr()
}

// SockaddrInet4 mirrors sockaddr_in.
type SockaddrInet4 struct {
	Port uint16
	Addr [4]byte
}

// SockaddrInet6 mirrors sockaddr_in6.
type SockaddrInet6 struct {
	Port     uint16
	FlowInfo uint32
	Addr     [16]byte
	ScopeID  uint32
}

// RawSockaddr mirrors the generic sockaddr. It carries families this package
// does not interpret.
type RawSockaddr struct {
	Fam  Family
	Data [14]byte
}

func (*SockaddrInet4) Family() Family { return FamilyInet }
func (*SockaddrInet6) Family() Family { return FamilyInet6 }
func (s *RawSockaddr) Family() Family { return s.Fam }

func (*SockaddrInet4) sockaddr() {}
func (*SockaddrInet6) sockaddr() {}
func (*RawSockaddr) sockaddr()   {}

// SizeofSockaddrFor returns the encoded length of sa.
func SizeofSockaddrFor(sa Sockaddr) int {
	switch sa.(type) {
	case *SockaddrInet6:
		return SizeofSockaddrInet6
	case *SockaddrInet4:
		return SizeofSockaddrInet4
	}
	return SizeofSockaddr
}

// EncodeSockaddr returns the guest-memory representation of sa.
func EncodeSockaddr(sa Sockaddr) []byte {
	buf := make([]byte, SizeofSockaddrFor(sa))
	PutSockaddr(buf, sa)
	return buf
}

// PutSockaddr writes sa into buf and returns the number of bytes written.
// It panics if buf is shorter than SizeofSockaddrFor(sa).
func PutSockaddr(buf []byte, sa Sockaddr) int {
	n := SizeofSockaddrFor(sa)
	_ = buf[n-1]
	clear(buf[:n])
	binary.LittleEndian.PutUint16(buf[0:2], uint16(sa.Family()))
	switch sa := sa.(type) {
	case *SockaddrInet4:
		binary.BigEndian.PutUint16(buf[2:4], sa.Port)
		copy(buf[4:8], sa.Addr[:])
	case *SockaddrInet6:
		binary.BigEndian.PutUint16(buf[2:4], sa.Port)
		binary.LittleEndian.PutUint32(buf[4:8], sa.FlowInfo)
		copy(buf[8:24], sa.Addr[:])
		binary.LittleEndian.PutUint32(buf[24:28], sa.ScopeID)
	case *RawSockaddr:
		copy(buf[2:16], sa.Data[:])
	}
	return n
}

// DecodeSockaddr parses a sockaddr from guest memory.
//
// The family tag selects the layout. A buffer shorter than that layout
// yields EINVAL; a family other than inet/inet6 yields EAFNOSUPPORT.
func DecodeSockaddr(buf []byte) (Sockaddr, error) {
	if len(buf) < 2 {
		return nil, EINVAL
	}
	switch fam := Family(binary.LittleEndian.Uint16(buf[0:2])); fam {
	case FamilyInet:
		if len(buf) < SizeofSockaddrInet4 {
			return nil, EINVAL
		}
		sa := &SockaddrInet4{Port: binary.BigEndian.Uint16(buf[2:4])}
		copy(sa.Addr[:], buf[4:8])
		return sa, nil
	case FamilyInet6:
		if len(buf) < SizeofSockaddrInet6 {
			return nil, EINVAL
		}
		sa := &SockaddrInet6{
			Port:     binary.BigEndian.Uint16(buf[2:4]),
			FlowInfo: binary.LittleEndian.Uint32(buf[4:8]),
			ScopeID:  binary.LittleEndian.Uint32(buf[24:28]),
		}
		copy(sa.Addr[:], buf[8:24])
		return sa, nil
	default:
		return nil, EAFNOSUPPORT
	}
}

// StorageFamily reads the family tag of a sockaddr_storage without
// interpreting the rest.
func StorageFamily(buf []byte) (Family, error) {
	if len(buf) < 2 {
		return FamilyUnspec, EINVAL
	}
	return Family(binary.LittleEndian.Uint16(buf[0:2])), nil
}

// FamilyOf returns the family an address would be bound under.
func FamilyOf(addr netip.Addr) Family {
	if addr.Is4() || addr.Is4In6() {
		return FamilyInet
	}
	if addr.Is6() {
		return FamilyInet6
	}
	return FamilyUnspec
}

// SockaddrFromAddrPort converts ap into the matching layout. IPv4-mapped
// IPv6 addresses are unmapped first.
func SockaddrFromAddrPort(ap netip.AddrPort) (Sockaddr, error) {
	addr := ap.Addr()
	switch FamilyOf(addr) {
	case FamilyInet:
		return &SockaddrInet4{Port: ap.Port(), Addr: addr.Unmap().As4()}, nil
	case FamilyInet6:
		return &SockaddrInet6{Port: ap.Port(), Addr: addr.As16()}, nil
	}
	return nil, EAFNOSUPPORT
}

// AddrPort converts sa back to a netip.AddrPort. RawSockaddr values are not
// convertible.
func AddrPort(sa Sockaddr) (netip.AddrPort, bool) {
	switch sa := sa.(type) {
	case *SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), sa.Port), true
	case *SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), sa.Port), true
	}
	return netip.AddrPort{}, false
}

// InAddrToU32 converts a network-order in_addr to a host integer.
func InAddrToU32(addr [4]byte) uint32 {
	return binary.BigEndian.Uint32(addr[:])
}

// SockaddrInU32 returns the IPv4 address of sa as a host integer.
func SockaddrInU32(sa *SockaddrInet4) uint32 {
	return InAddrToU32(sa.Addr)
}
