// Package wasmtest builds minimal WebAssembly modules for tests.
//
// The modules are hand-encoded so tests need neither a wat compiler nor a
// wasm toolchain. A forwarder module imports host functions and re-exports
// each one under its own name, together with its linear memory, so a test
// can fill memory and call the import as a guest would.
package wasmtest

const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionExport   byte = 7
	sectionCode     byte = 10

	typeFunc byte = 0x60
	typeI32  byte = 0x7f

	kindFunc   byte = 0x00
	kindMemory byte = 0x02

	opLocalGet byte = 0x20
	opCall     byte = 0x10
	opEnd      byte = 0x0b
)

// MemoryName is the export name of the forwarder's memory.
const MemoryName = "memory"

// Func is an imported host function with Params i32 parameters and a
// single i32 result.
type Func struct {
	Module string
	Name   string
	Params int
}

// Forwarder returns a module that imports every fn and exports a function
// of the same name passing its arguments straight through. It also exports
// a memory of pages 64KiB pages.
func Forwarder(pages uint32, fns ...Func) []byte {
	var w writer
	w.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6d})
	w.WriteBytes([]byte{0x01, 0x00, 0x00, 0x00})

	n := uint32(len(fns))

	w.Section(sectionType, func(s *writer) {
		s.WriteU32(n)
		for _, fn := range fns {
			s.Byte(typeFunc)
			s.WriteU32(uint32(fn.Params))
			for i := 0; i < fn.Params; i++ {
				s.Byte(typeI32)
			}
			s.WriteU32(1)
			s.Byte(typeI32)
		}
	})

	w.Section(sectionImport, func(s *writer) {
		s.WriteU32(n)
		for i, fn := range fns {
			s.WriteName(fn.Module)
			s.WriteName(fn.Name)
			s.Byte(kindFunc)
			s.WriteU32(uint32(i))
		}
	})

	// Defined functions follow the imports in the function index space.
	w.Section(sectionFunction, func(s *writer) {
		s.WriteU32(n)
		for i := range fns {
			s.WriteU32(uint32(i))
		}
	})

	w.Section(sectionMemory, func(s *writer) {
		s.WriteU32(1)
		s.Byte(0x00)
		s.WriteU32(pages)
	})

	w.Section(sectionExport, func(s *writer) {
		s.WriteU32(n + 1)
		for i, fn := range fns {
			s.WriteName(fn.Name)
			s.Byte(kindFunc)
			s.WriteU32(n + uint32(i))
		}
		s.WriteName(MemoryName)
		s.Byte(kindMemory)
		s.WriteU32(0)
	})

	w.Section(sectionCode, func(s *writer) {
		s.WriteU32(n)
		for i, fn := range fns {
			var body writer
			body.WriteU32(0) // no locals
			for p := 0; p < fn.Params; p++ {
				body.Byte(opLocalGet)
				body.WriteU32(uint32(p))
			}
			body.Byte(opCall)
			body.WriteU32(uint32(i))
			body.Byte(opEnd)

			s.WriteU32(uint32(len(body.Bytes())))
			s.WriteBytes(body.Bytes())
		}
	})

	return w.Bytes()
}
