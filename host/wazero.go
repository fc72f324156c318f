package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasi-sockets/abi"
	"github.com/wippyai/wasi-sockets/errors"
)

var i32 = api.ValueTypeI32

type hostFunc struct {
	name   string
	fn     func(ctx context.Context, mem api.Memory, args []uint64) error
	params []string
}

func (m *Module) functions() []hostFunc {
	return []hostFunc{
		{"sock_open", m.sockOpen, []string{"af", "socktype", "proto", "fd_ptr"}},
		{"sock_bind", m.sockBind, []string{"fd", "addr_ptr", "addr_len"}},
		{"sock_listen", m.sockListen, []string{"fd", "backlog"}},
		{"sock_connect", m.sockConnect, []string{"fd", "addr_ptr", "addr_len"}},
		{"sock_getsockname", m.sockGetsockname, []string{"fd", "addr_ptr", "addrlen_ptr"}},
		{"sock_setfdflags", m.sockSetfdflags, []string{"fd", "flags"}},
		{"sock_close", m.sockClose, []string{"fd"}},
	}
}

// Instantiate registers the module in r under ModuleName.
func (m *Module) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(ModuleName)

	for _, f := range m.functions() {
		params := make([]api.ValueType, len(f.params))
		for i := range params {
			params[i] = i32
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(m.wrap(f), params, []api.ValueType{i32}).
			WithParameterNames(f.params...).
			WithResultNames("errno").
			Export(f.name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(ModuleName, "*", err)
	}
	return mod, nil
}

// wrap turns f into a wazero function that returns its errno in stack[0].
func (m *Module) wrap(f hostFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var err error
		if mem := mod.Memory(); mem == nil {
			err = errors.OutOfBounds(errors.PhaseDecode, 0, 0)
		} else {
			err = f.fn(ctx, mem, stack[:len(f.params)])
		}

		errno := errors.ErrnoOf(err)
		if err != nil {
			m.log().Debug(f.name,
				zap.String("errno", errno.Name()),
				zap.Error(err))
		}
		stack[0] = api.EncodeI32(int32(errno))
	}
}

func (m *Module) sockOpen(ctx context.Context, mem api.Memory, args []uint64) error {
	af := api.DecodeU32(args[0])
	sotype := abi.SocketType(api.DecodeI32(args[1]))
	proto := api.DecodeI32(args[2])
	fdPtr := api.DecodeU32(args[3])

	// Check the result slot first so a created socket is never orphaned.
	if _, ok := mem.ReadUint32Le(fdPtr); !ok {
		return errors.OutOfBounds(errors.PhaseEncode, fdPtr, 4)
	}

	if af > 0xffff {
		return errors.New(errors.PhaseCreate, errors.KindInvalidInput).Errno(abi.EAFNOSUPPORT).Value(af).Build()
	}

	fd, err := m.Open(ctx, abi.Family(af), sotype, proto)
	if err != nil {
		return err
	}
	mem.WriteUint32Le(fdPtr, uint32(fd))
	return nil
}

func (m *Module) sockBind(ctx context.Context, mem api.Memory, args []uint64) error {
	fd := api.DecodeI32(args[0])
	sa, err := readSockaddr(mem, api.DecodeU32(args[1]), api.DecodeU32(args[2]))
	if err != nil {
		return err
	}
	return m.Bind(ctx, fd, sa)
}

func (m *Module) sockListen(ctx context.Context, _ api.Memory, args []uint64) error {
	return m.Listen(ctx, api.DecodeI32(args[0]), api.DecodeI32(args[1]))
}

func (m *Module) sockConnect(ctx context.Context, mem api.Memory, args []uint64) error {
	fd := api.DecodeI32(args[0])
	sa, err := readSockaddr(mem, api.DecodeU32(args[1]), api.DecodeU32(args[2]))
	if err != nil {
		return err
	}
	return m.Connect(ctx, fd, sa)
}

func (m *Module) sockGetsockname(ctx context.Context, mem api.Memory, args []uint64) error {
	fd := api.DecodeI32(args[0])
	addrPtr := api.DecodeU32(args[1])
	lenPtr := api.DecodeU32(args[2])

	capacity, ok := mem.ReadUint32Le(lenPtr)
	if !ok {
		return errors.OutOfBounds(errors.PhaseDecode, lenPtr, 4)
	}

	sa, err := m.LocalAddr(ctx, fd)
	if err != nil {
		return err
	}

	buf := abi.EncodeSockaddr(sa)
	if uint32(len(buf)) > capacity {
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			FD(fd).
			Errno(abi.EINVAL).
			Detail("address needs %d bytes, buffer has %d", len(buf), capacity).
			Build()
	}
	if !mem.Write(addrPtr, buf) {
		return errors.OutOfBounds(errors.PhaseEncode, addrPtr, uint32(len(buf)))
	}
	mem.WriteUint32Le(lenPtr, uint32(len(buf)))
	return nil
}

func (m *Module) sockSetfdflags(ctx context.Context, _ api.Memory, args []uint64) error {
	return m.SetDescriptorFlags(ctx, api.DecodeI32(args[0]), api.DecodeI32(args[1]))
}

func (m *Module) sockClose(ctx context.Context, _ api.Memory, args []uint64) error {
	return m.CloseDescriptor(ctx, api.DecodeI32(args[0]))
}

// readSockaddr decodes the sockaddr at ptr. Bytes past the largest layout
// are ignored.
func readSockaddr(mem api.Memory, ptr, length uint32) (abi.Sockaddr, error) {
	if length > abi.SizeofSockaddrStorage {
		length = abi.SizeofSockaddrStorage
	}
	view, ok := mem.Read(ptr, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, ptr, length)
	}
	sa, err := abi.DecodeSockaddr(view)
	if err != nil {
		e := errors.InvalidData(errors.PhaseDecode, fmt.Sprintf("sockaddr of %d bytes", length))
		e.Errno = errors.ErrnoOf(err)
		e.Value = ptr
		e.Cause = err
		return nil, e
	}
	return sa, nil
}
