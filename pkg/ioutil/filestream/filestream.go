// Package filestream implements the local-file Stream backend for the
// "file" URI scheme.
package filestream

import (
	"io"
	"os"

	"github.com/jmylchreest/ampgo/internal/errs"
	ioutilpkg "github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"
)

func init() {
	ioutilpkg.RegisterBackend("file", Backend{})
	// A URI with no scheme (a bare or absolute filesystem path, as
	// typed on a command line) is treated as a local file too.
	ioutilpkg.RegisterBackend("", Backend{})
}

// Backend opens local filesystem paths under the "file" scheme.
type Backend struct{}

// Schemes implements ioutil.Backend.
func (Backend) Schemes() []string { return []string{"file"} }

// Open implements ioutil.Backend.
func (Backend) Open(u uri.URI, mode ioutilpkg.Mode) (ioutilpkg.Stream, error) {
	path := u.GetFilePath()

	var flags int
	switch {
	case mode.Has(ioutilpkg.ModeOut) && mode.Has(ioutilpkg.ModeTrunc):
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case mode.Has(ioutilpkg.ModeOut) && mode.Has(ioutilpkg.ModeApp):
		flags = os.O_RDWR | os.O_CREATE | os.O_APPEND
	case mode.Has(ioutilpkg.ModeOut):
		flags = os.O_RDWR | os.O_CREATE
	default:
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.EndOfFile, err, "file: open %s", path)
		}
		return nil, errs.Wrap(errs.ReadFault, err, "file: open %s", path)
	}
	return &Stream{f: f, u: u}, nil
}

// Stream is the local-file Stream implementation.
type Stream struct {
	f   *os.File
	u   uri.URI
	eof bool
}

func (s *Stream) Location() uri.URI { return s.u }
func (s *Stream) EOF() bool         { return s.eof }

func (s *Stream) Size() (uint64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, errs.Wrap(errs.ReadFault, err, "file: stat")
	}
	return uint64(fi.Size()), nil
}

func (s *Stream) Tell() (uint64, error) {
	off, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errs.Wrap(errs.SeekError, err, "file: tell")
	}
	return uint64(off), nil
}

func (s *Stream) Seek(offset int64, whence ioutilpkg.SeekWhence) error {
	var w int
	switch whence {
	case ioutilpkg.SeekBeg:
		w = io.SeekStart
	case ioutilpkg.SeekCur:
		w = io.SeekCurrent
	case ioutilpkg.SeekEnd:
		w = io.SeekEnd
	}
	if _, err := s.f.Seek(offset, w); err != nil {
		return errs.Wrap(errs.SeekError, err, "file: seek %d", offset)
	}
	s.eof = false
	return nil
}

func (s *Stream) Read(buf []byte) error {
	_, err := io.ReadFull(s.f, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		s.eof = true
		return errs.Wrap(errs.EndOfFile, err, "file: short read")
	}
	if err != nil {
		return errs.Wrap(errs.ReadFault, err, "file: read")
	}
	return nil
}

func (s *Stream) TryRead(buf []byte) (int, error) {
	n, err := io.ReadAtLeast(s.f, buf, 1)
	if err == io.EOF || n == 0 {
		s.eof = true
		return n, nil
	}
	if err == io.ErrUnexpectedEOF {
		s.eof = true
		return n, nil
	}
	if err != nil {
		return n, errs.Wrap(errs.ReadFault, err, "file: try_read")
	}
	return n, nil
}

func (s *Stream) Write(buf []byte) error {
	if _, err := s.f.Write(buf); err != nil {
		return errs.Wrap(errs.ReadFault, err, "file: write")
	}
	return nil
}

func (s *Stream) Truncate(n uint64) error {
	if err := s.f.Truncate(int64(n)); err != nil {
		return errs.Wrap(errs.Failure, err, "file: truncate")
	}
	return nil
}

func (s *Stream) Close() error { return s.f.Close() }
