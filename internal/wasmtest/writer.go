package wasmtest

import "bytes"

// writer provides the few binary encodings a test module needs.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *writer) WriteU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// WriteName writes a length-prefixed UTF-8 name.
func (w *writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// Section writes a section with the given id whose contents are produced by
// fn. The size prefix is computed after fn runs.
func (w *writer) Section(id byte, fn func(*writer)) {
	var body writer
	fn(&body)
	w.Byte(id)
	w.WriteU32(uint32(body.buf.Len()))
	w.WriteBytes(body.Bytes())
}
