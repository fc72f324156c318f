//go:build !wasip1

package guest

import "github.com/wippyai/wasi-sockets/abi"

// hostCalls has no host to reach outside wasip1.
type hostCalls struct{}

const unsupported = int32(abi.ENOTSUP)

func (hostCalls) open(int32, int32, int32, *int32) int32 { return unsupported }
func (hostCalls) bind(int32, []byte) int32 { return unsupported }
func (hostCalls) listen(int32, int32) int32 { return unsupported }
func (hostCalls) connect(int32, []byte) int32 { return unsupported }
func (hostCalls) getsockname(int32, []byte, *uint32) int32 { return unsupported }
func (hostCalls) setfdflags(int32, int32) int32 { return unsupported }
func (hostCalls) close(int32) int32 { return unsupported }
