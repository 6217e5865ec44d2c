// Package ustring provides an interned, immutable UTF-8 string type used
// throughout ampgo's metadata and URI layers, plus strict/lossy conversions
// from the legacy encodings found in audio container metadata (Latin-1,
// CP-1252, UTF-16, UTF-32).
package ustring

import (
	"encoding/binary"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// U8 is an immutable, reference-counted (via Go's GC) interned UTF-8 string.
// Equality and hashing are cheap because equal content always resolves to
// the same underlying string value once interned.
type U8 string

// pool is the process-wide intern pool, guarded by poolMu.
var (
	poolMu sync.Mutex
	pool   = make(map[string]U8)
)

// Intern returns the canonical, shared representation for s. Subsequent
// calls with equal content return the identical underlying value.
func Intern(s string) U8 {
	poolMu.Lock()
	defer poolMu.Unlock()
	if v, ok := pool[s]; ok {
		return v
	}
	v := U8(s)
	pool[s] = v
	return v
}

// InternedCount reports the number of distinct strings currently interned.
// Exposed for tests exercising the pool's dedup behavior.
func InternedCount() int {
	poolMu.Lock()
	defer poolMu.Unlock()
	return len(pool)
}

// String returns the plain Go string.
func (u U8) String() string { return string(u) }

// IsValidUTF8 reports whether s holds well-formed UTF-8. Every U8 returned
// by any From* constructor in this package satisfies this.
func IsValidUTF8(s string) bool { return utf8.ValidString(s) }

// FromUTF8 validates s as strict UTF-8, failing on invalid sequences.
func FromUTF8(s string) (U8, bool) {
	if !utf8.ValidString(s) {
		return "", false
	}
	return U8(s), true
}

// FromUTF8Lossy always succeeds, replacing invalid sequences with U+FFFD.
// The result is always valid UTF-8.
func FromUTF8Lossy(s string) U8 {
	if utf8.ValidString(s) {
		return U8(s)
	}
	var b []byte
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b = append(b, "�"...)
			i++
			continue
		}
		b = append(b, s[i:i+size]...)
		i += size
	}
	return U8(b)
}

// Endian selects the byte order of a UTF-16/UTF-32 source.
type Endian int

const (
	// LittleEndian is selected explicitly or by a UTF-16LE BOM (FF FE).
	LittleEndian Endian = iota
	// BigEndian is selected explicitly or by a UTF-16BE BOM (FE FF).
	BigEndian
)

// FromUTF16 decodes a UTF-16 byte sequence, consuming and honoring a
// leading BOM when present; otherwise uses the supplied endian. Strict:
// fails on unpaired surrogates.
func FromUTF16(b []byte, fallback Endian) (U8, bool) {
	b, endian := stripUTF16BOM(b, fallback)
	units, ok := utf16Units(b, endian)
	if !ok {
		return "", false
	}
	for _, r := range utf16.Decode(units) {
		if r == utf8.RuneError {
			return "", false
		}
	}
	return U8(string(utf16.Decode(units))), true
}

// FromUTF16Lossy is the lossy counterpart of FromUTF16: malformed
// surrogate pairs decode to U+FFFD rather than failing.
func FromUTF16Lossy(b []byte, fallback Endian) U8 {
	b, endian := stripUTF16BOM(b, fallback)
	units, ok := utf16Units(b, endian)
	if !ok {
		// Odd trailing byte: drop it, matching best-effort lossy decode.
		units, _ = utf16Units(b[:len(b)-len(b)%2], endian)
	}
	return U8(string(utf16.Decode(units)))
}

func stripUTF16BOM(b []byte, fallback Endian) ([]byte, Endian) {
	if len(b) >= 2 {
		switch {
		case b[0] == 0xFF && b[1] == 0xFE:
			return b[2:], LittleEndian
		case b[0] == 0xFE && b[1] == 0xFF:
			return b[2:], BigEndian
		}
	}
	return b, fallback
}

func utf16Units(b []byte, endian Endian) ([]uint16, bool) {
	if len(b)%2 != 0 {
		return nil, false
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		if endian == LittleEndian {
			units[i] = binary.LittleEndian.Uint16(b[i*2:])
		} else {
			units[i] = binary.BigEndian.Uint16(b[i*2:])
		}
	}
	return units, true
}

// FromUTF32 decodes big-or-little-endian UTF-32 (used by some ID3v2.4
// text frames in the wild, and by WAVE/AIFF chunk IDs treated as codepoints
// in degenerate cases). Strict: fails on out-of-range or surrogate code
// points.
func FromUTF32(b []byte, fallback Endian) (U8, bool) {
	b, endian := stripUTF32BOM(b, fallback)
	if len(b)%4 != 0 {
		return "", false
	}
	runes := make([]rune, 0, len(b)/4)
	for i := 0; i < len(b); i += 4 {
		var v uint32
		if endian == LittleEndian {
			v = binary.LittleEndian.Uint32(b[i:])
		} else {
			v = binary.BigEndian.Uint32(b[i:])
		}
		r := rune(v)
		if v > utf8.MaxRune || (r >= 0xD800 && r <= 0xDFFF) {
			return "", false
		}
		runes = append(runes, r)
	}
	return U8(string(runes)), true
}

// FromUTF32Lossy is the lossy counterpart of FromUTF32.
func FromUTF32Lossy(b []byte, fallback Endian) U8 {
	b, endian := stripUTF32BOM(b, fallback)
	n := len(b) - len(b)%4
	runes := make([]rune, 0, n/4)
	for i := 0; i < n; i += 4 {
		var v uint32
		if endian == LittleEndian {
			v = binary.LittleEndian.Uint32(b[i:])
		} else {
			v = binary.BigEndian.Uint32(b[i:])
		}
		r := rune(v)
		if v > utf8.MaxRune || (r >= 0xD800 && r <= 0xDFFF) {
			r = utf8.RuneError
		}
		runes = append(runes, r)
	}
	return U8(string(runes))
}

func stripUTF32BOM(b []byte, fallback Endian) ([]byte, Endian) {
	if len(b) >= 4 {
		switch {
		case b[0] == 0xFF && b[1] == 0xFE && b[2] == 0 && b[3] == 0:
			return b[4:], LittleEndian
		case b[0] == 0 && b[1] == 0 && b[2] == 0xFE && b[3] == 0xFF:
			return b[4:], BigEndian
		}
	}
	return b, fallback
}

// FromLatin1 decodes ISO-8859-1, which maps byte-for-byte onto the first
// 256 Unicode code points; this conversion never fails.
func FromLatin1(b []byte) U8 {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return U8(string(runes))
}

// FromLatin1Lossy is an alias for FromLatin1 kept for symmetry with the
// other encodings, since Latin-1 has no invalid byte sequences.
func FromLatin1Lossy(b []byte) U8 { return FromLatin1(b) }

// FromCP1252 decodes Windows-1252 using golang.org/x/text/encoding/charmap,
// which assigns meaning to the C1 control range (0x80-0x9F) that ID3v1/APE
// tags in the wild frequently rely on.
func FromCP1252(b []byte) (U8, bool) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return U8(out), true
}

// FromCP1252Lossy decodes Windows-1252, substituting U+FFFD for the small
// number of unassigned byte values (0x81, 0x8D, 0x8F, 0x90, 0x9D).
func FromCP1252Lossy(b []byte) U8 {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		dec := charmap.Windows1252.NewDecoder()
		dec.Transformer = encoding.ReplaceUnsupported(dec.Transformer)
		out, _ = dec.Bytes(b)
	}
	return U8(out)
}
