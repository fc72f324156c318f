// Package abi defines the socket ABI shared by sandboxed guests and the host
// module that serves them.
//
// Everything here is data: constant values, errno numbering and the byte
// layout of the socket address structures as they appear in guest linear
// memory. Values must stay bit-exact; a guest compiled against one layout and
// a host reading another will silently disagree about addresses.
//
// # Layouts
//
// WebAssembly linear memory is little-endian, so the family tag and the IPv6
// flow/scope fields are stored little-endian. Ports and addresses keep network
// byte order, matching the C definitions:
//
//	sockaddr       family u16 | data [14]byte                               (16)
//	sockaddr_in    family u16 | port u16be | addr [4] | zero [8]            (16)
//	sockaddr_in6   family u16 | port u16be | flowinfo u32 | addr [16] |
//	               scope_id u32                                             (28)
//	sockaddr_storage family u16 | padding                                   (28)
//
// # Platform flags
//
// FDCloexec and SOReusePort are zero on this target. Setting them is legal and
// has no effect; callers still pass them so a platform that grows support does
// not need new call sites.
package abi
