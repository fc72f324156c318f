package wasmtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestWriter_U32(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tt := range tests {
		var w writer
		w.WriteU32(tt.v)
		if !bytes.Equal(w.Bytes(), tt.want) {
			t.Errorf("WriteU32(%d) = %x, want %x", tt.v, w.Bytes(), tt.want)
		}
	}
}

func TestForwarder_Header(t *testing.T) {
	bin := Forwarder(1)
	want := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(bin[:8], want) {
		t.Fatalf("header = %x", bin[:8])
	}
}

func TestForwarder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	var got []uint64
	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			got = append([]uint64(nil), stack[:3]...)
			stack[0] = api.EncodeI32(api.DecodeI32(stack[0]) + api.DecodeI32(stack[1]) + api.DecodeI32(stack[2]))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("sum3").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(-1)
		}), nil, []api.ValueType{api.ValueTypeI32}).
		Export("neg").
		Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	bin := Forwarder(2, Func{"env", "sum3", 3}, Func{"env", "neg", 0})
	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	if n := len(compiled.ImportedFunctions()); n != 2 {
		t.Fatalf("imports = %d", n)
	}
	if _, ok := compiled.ExportedMemories()[MemoryName]; !ok {
		t.Fatal("memory not exported")
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("InstantiateModule: %v", err)
	}
	if size := mod.Memory().Size(); size != 2*65536 {
		t.Fatalf("memory size = %d", size)
	}

	res, err := mod.ExportedFunction("sum3").Call(ctx, 1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if api.DecodeI32(res[0]) != 6 || len(got) != 3 || got[2] != 3 {
		t.Fatalf("sum3 = %v, host saw %v", res, got)
	}

	res, err = mod.ExportedFunction("neg").Call(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if api.DecodeI32(res[0]) != -1 {
		t.Fatalf("neg = %v", res)
	}
}
