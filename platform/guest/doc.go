// Package guest implements socket.Platform inside a GOOS=wasip1 module.
//
// Every call is forwarded to the host module wasi_sock_v0 (see package
// host). Addresses cross the boundary in the layouts defined by package abi
// and results come back as abi.Errno values. Outside wasip1 the platform
// reports every call as unsupported.
package guest
