package abi

import "fmt"

// Family is a socket address family.
type Family uint16

const (
	FamilyUnspec Family = 0
	FamilyInet   Family = 1
	FamilyInet6  Family = 2
)

func (f Family) String() string {
	switch f {
	case FamilyUnspec:
		return "AF_UNSPEC"
	case FamilyInet:
		return "AF_INET"
	case FamilyInet6:
		return "AF_INET6"
	}
	return fmt.Sprintf("AF(%d)", uint16(f))
}

// Valid reports whether f names a family sockets can be created for.
func (f Family) Valid() bool {
	return f == FamilyInet || f == FamilyInet6
}

// SocketType selects stream or datagram semantics.
type SocketType int32

const (
	SocketDatagram SocketType = 0x00
	SocketStream   SocketType = 0x01
)

func (t SocketType) String() string {
	switch t {
	case SocketDatagram:
		return "SOCK_DGRAM"
	case SocketStream:
		return "SOCK_STREAM"
	}
	return fmt.Sprintf("SOCK(%d)", int32(t))
}

// Valid reports whether t is a known socket type.
func (t SocketType) Valid() bool {
	return t == SocketDatagram || t == SocketStream
}

const (
	SOLSocket   int32 = 0x7fffffff
	SOReusePort int32 = 0x0
	FDCloexec   int32 = 0x0
)

// InvalidFd is returned by descriptor accessors once ownership has moved.
const InvalidFd int32 = -1

// Structure sizes in guest memory.
const (
	SizeofSockaddr        = 16
	SizeofSockaddrInet4   = 16
	SizeofSockaddrInet6   = 28
	SizeofSockaddrStorage = SizeofSockaddrInet6
)
