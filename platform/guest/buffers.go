package guest

import "github.com/wippyai/wasi-sockets/abi"

func encodeAddr(sa abi.Sockaddr) ([]byte, error) {
	if sa == nil {
		return nil, abi.EINVAL
	}
	return abi.EncodeSockaddr(sa), nil
}

// decodeAddr parses the first n bytes the host wrote into buf.
func decodeAddr(buf []byte, n uint32) (abi.Sockaddr, error) {
	if uint64(n) > uint64(len(buf)) {
		return nil, abi.EINVAL
	}
	return abi.DecodeSockaddr(buf[:n])
}

func result(code int32) error {
	if code == 0 {
		return nil
	}
	return abi.Errno(code)
}
