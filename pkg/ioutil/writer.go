package ioutil

import "encoding/binary"

// Writer is an append-only byte sink used to build frame/tag payloads
// (the inverse of Reader), backing the Stream's typed Scatter helper
// from the typed Stream helpers.
type Writer struct {
	data []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte { return w.data }

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) { w.data = append(w.data, v) }

// WriteU16LE / WriteU16BE append a 16-bit integer in the given endian.
func (w *Writer) WriteU16LE(v uint16) { w.data = binary.LittleEndian.AppendUint16(w.data, v) }
func (w *Writer) WriteU16BE(v uint16) { w.data = binary.BigEndian.AppendUint16(w.data, v) }

// WriteU24BE appends a 24-bit big-endian integer (ID3v2.2 frame sizes).
func (w *Writer) WriteU24BE(v uint32) {
	w.data = append(w.data, byte(v>>16), byte(v>>8), byte(v))
}

// WriteU32LE / WriteU32BE append a 32-bit integer in the given endian.
func (w *Writer) WriteU32LE(v uint32) { w.data = binary.LittleEndian.AppendUint32(w.data, v) }
func (w *Writer) WriteU32BE(v uint32) { w.data = binary.BigEndian.AppendUint32(w.data, v) }

// WriteSynchsafe32 writes an ID3v2.4 synchsafe 32-bit integer.
func (w *Writer) WriteSynchsafe32(v uint32) {
	w.data = append(w.data,
		byte((v>>21)&0x7F),
		byte((v>>14)&0x7F),
		byte((v>>7)&0x7F),
		byte(v&0x7F),
	)
}

// WriteBytes appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) { w.data = append(w.data, b...) }

// Scatter writes a fixed-layout tuple of integers in the given byte
// order, the write-side counterpart of Reader.Gather.
func (w *Writer) Scatter(order binary.ByteOrder, vars ...any) {
	for _, v := range vars {
		w.scatterOne(order, v)
	}
}

func (w *Writer) scatterOne(order binary.ByteOrder, v any) {
	switch x := v.(type) {
	case uint8:
		w.WriteU8(x)
	case int8:
		w.WriteU8(uint8(x))
	case uint16:
		if order == binary.BigEndian {
			w.WriteU16BE(x)
		} else {
			w.WriteU16LE(x)
		}
	case uint32:
		if order == binary.BigEndian {
			w.WriteU32BE(x)
		} else {
			w.WriteU32LE(x)
		}
	}
}
