//go:build wasip1

package guest

import "unsafe"

//go:wasmimport wasi_sock_v0 sock_open
//go:noescape
func sock_open(af, sotype, proto int32, fd unsafe.Pointer) int32

//go:wasmimport wasi_sock_v0 sock_bind
//go:noescape
func sock_bind(fd int32, addr unsafe.Pointer, addrlen uint32) int32

//go:wasmimport wasi_sock_v0 sock_listen
func sock_listen(fd, backlog int32) int32

//go:wasmimport wasi_sock_v0 sock_connect
//go:noescape
func sock_connect(fd int32, addr unsafe.Pointer, addrlen uint32) int32

//go:wasmimport wasi_sock_v0 sock_getsockname
//go:noescape
func sock_getsockname(fd int32, addr unsafe.Pointer, addrlen unsafe.Pointer) int32

//go:wasmimport wasi_sock_v0 sock_setfdflags
func sock_setfdflags(fd, flags int32) int32

//go:wasmimport wasi_sock_v0 sock_close
func sock_close(fd int32) int32

type hostCalls struct{}

func (hostCalls) open(af, sotype, proto int32, fd *int32) int32 {
	return sock_open(af, sotype, proto, unsafe.Pointer(fd))
}

func (hostCalls) bind(fd int32, addr []byte) int32 {
	return sock_bind(fd, unsafe.Pointer(unsafe.SliceData(addr)), uint32(len(addr)))
}

func (hostCalls) listen(fd, backlog int32) int32 {
	return sock_listen(fd, backlog)
}

func (hostCalls) connect(fd int32, addr []byte) int32 {
	return sock_connect(fd, unsafe.Pointer(unsafe.SliceData(addr)), uint32(len(addr)))
}

func (hostCalls) getsockname(fd int32, addr []byte, addrlen *uint32) int32 {
	return sock_getsockname(fd, unsafe.Pointer(unsafe.SliceData(addr)), unsafe.Pointer(addrlen))
}

func (hostCalls) setfdflags(fd, flags int32) int32 {
	return sock_setfdflags(fd, flags)
}

func (hostCalls) close(fd int32) int32 {
	return sock_close(fd)
}
