package ioutil

import (
	"github.com/jmylchreest/ampgo/pkg/uri"
)

// SeekWhence selects the origin of a Stream.Seek call.
type SeekWhence int

const (
	SeekBeg SeekWhence = iota
	SeekCur
	SeekEnd
)

// Mode is a flag-combinable open mode.
type Mode int

const (
	ModeIn Mode = 1 << iota
	ModeOut
	ModeApp
	ModeTrunc
	ModeBinary
)

// Has reports whether m includes flag.
func (m Mode) Has(flag Mode) bool { return m&flag != 0 }

// Stream is the polymorphic byte-stream capability set.
// Local-file and HTTP backends both implement it; a backend need not
// support every method (write on a read-only HTTP stream fails with an
// error of Kind errs.NotImplemented).
type Stream interface {
	// Location returns the URI this stream was opened from.
	Location() uri.URI

	// EOF reports whether the stream has been read past its end.
	EOF() bool

	// Size returns the total size in bytes. May block until known (e.g.
	// while an HTTP fetch completes).
	Size() (uint64, error)

	// Tell returns the current read/write offset.
	Tell() (uint64, error)

	// Seek repositions the stream relative to whence.
	Seek(offset int64, whence SeekWhence) error

	// Read fills buf entirely, failing with end-of-file on a short read.
	Read(buf []byte) error

	// TryRead fills as much of buf as is available, never failing on EOF;
	// it returns the number of bytes actually read.
	TryRead(buf []byte) (int, error)

	// Write writes buf in its entirety.
	Write(buf []byte) error

	// Truncate resizes the underlying stream to n bytes, if supported.
	Truncate(n uint64) error

	// Close releases any resources (file handles, in-flight fetches).
	Close() error
}

// Backend constructs a Stream for a URI under one or more schemes.
type Backend interface {
	// Schemes lists the URI schemes this backend registers for.
	Schemes() []string
	// Open opens u in the given mode.
	Open(u uri.URI, mode Mode) (Stream, error)
}
