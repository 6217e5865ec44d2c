package ustring

import "fmt"

// Buffer is the mutable companion to U8: construct by Append/Appendf, then
// Promote into an immutable, validated U8.
type Buffer struct {
	b []byte
}

// Append appends raw bytes (assumed UTF-8) to the buffer.
func (buf *Buffer) Append(s string) *Buffer {
	buf.b = append(buf.b, s...)
	return buf
}

// AppendByte appends a single byte.
func (buf *Buffer) AppendByte(c byte) *Buffer {
	buf.b = append(buf.b, c)
	return buf
}

// Appendf appends a printf-formatted string.
func (buf *Buffer) Appendf(format string, args ...any) *Buffer {
	buf.b = append(buf.b, fmt.Sprintf(format, args...)...)
	return buf
}

// Len returns the number of bytes accumulated so far.
func (buf *Buffer) Len() int { return len(buf.b) }

// Reset clears the buffer for reuse.
func (buf *Buffer) Reset() { buf.b = buf.b[:0] }

// Promote validates the accumulated bytes as UTF-8 and returns an immutable,
// interned U8. Fails (ok=false) if the content is not valid UTF-8.
func (buf *Buffer) Promote() (U8, bool) {
	s, ok := FromUTF8(string(buf.b))
	if !ok {
		return "", false
	}
	return Intern(string(s)), true
}

// PromoteLossy is the infallible counterpart of Promote.
func (buf *Buffer) PromoteLossy() U8 {
	return Intern(string(FromUTF8Lossy(string(buf.b))))
}
