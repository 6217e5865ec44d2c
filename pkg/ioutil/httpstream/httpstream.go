// Package httpstream implements the "http"/"https" Stream backend:
// it fetches the entire payload into memory
// asynchronously on construction; Size() blocks until the fetch
// completes; seeks are then purely in-memory. Uses golang.org/x/net for
// HTTP/2-aware transport tuning.
package httpstream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/http2"

	"github.com/jmylchreest/ampgo/internal/errs"
	ioutilpkg "github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"
)

func init() {
	ioutilpkg.RegisterBackend("http", Backend{})
	ioutilpkg.RegisterBackend("https", Backend{})
}

// Backend opens remote URLs under the "http"/"https" schemes.
type Backend struct {
	// Client is the http.Client used for fetches; if nil, a client with
	// an HTTP/2-enabled transport is constructed lazily.
	Client  *http.Client
	Timeout time.Duration

	// RetryAttempts and RetryDelay configure a fixed-delay retry loop
	// around the GET, without a circuit breaker (one Stream fetches
	// once; there is no repeated-call failure history to trip a
	// breaker on).
	RetryAttempts int
	RetryDelay    time.Duration
	UserAgent     string

	// Logger receives retry/failure diagnostics; defaults to
	// slog.Default() when nil.
	Logger *slog.Logger
}

func (b Backend) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Schemes implements ioutil.Backend.
func (Backend) Schemes() []string { return []string{"http", "https"} }

func (b Backend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	transport := &http.Transport{}
	_ = http2.ConfigureTransport(transport)
	timeout := b.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Open implements ioutil.Backend. Write/Truncate are not supported over
// HTTP: writes always fail with NotImplemented.
func (b Backend) Open(u uri.URI, mode ioutilpkg.Mode) (ioutilpkg.Stream, error) {
	if mode.Has(ioutilpkg.ModeOut) {
		return nil, errs.New(errs.NotImplemented, "httpstream: write mode not supported")
	}

	s := &Stream{u: u, done: make(chan struct{})}
	go s.fetch(b, u)
	return s, nil
}

// Stream is the in-memory HTTP Stream implementation.
type Stream struct {
	u        uri.URI
	done     chan struct{}
	data     []byte
	fetchErr error
	cursor   int
	eof      bool
}

func (s *Stream) fetch(b Backend, u uri.URI) {
	defer close(s.done)

	client := b.client()
	log := b.logger()
	delay := b.RetryDelay
	if delay == 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= b.RetryAttempts; attempt++ {
		if attempt > 0 {
			log.Debug("httpstream: retrying request",
				slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("url", u.String()))
			time.Sleep(delay)
		}

		data, err := b.doFetch(client, u)
		if err == nil {
			s.data = data
			return
		}
		lastErr = err
		log.Warn("httpstream: fetch attempt failed",
			slog.Int("attempt", attempt), slog.String("url", u.String()), slog.String("error", err.Error()))
	}
	s.fetchErr = lastErr
}

func (b Backend) doFetch(client *http.Client, u uri.URI) ([]byte, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ReadFault, err, "httpstream: building request")
	}
	// Accept brotli explicitly: unlike gzip, Go's net/http does not
	// transparently negotiate or decode it.
	req.Header.Set("Accept-Encoding", "gzip, br")
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ReadFault, err, "httpstream: GET %s", u.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errs.Newf(errs.ReadFault, "httpstream: GET %s: status %d", u.String(), resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		body = brotli.NewReader(resp.Body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.Wrap(errs.ReadFault, err, "httpstream: reading body")
	}
	return data, nil
}

func (s *Stream) wait() error {
	<-s.done
	return s.fetchErr
}

func (s *Stream) Location() uri.URI { return s.u }
func (s *Stream) EOF() bool         { return s.eof }

func (s *Stream) Size() (uint64, error) {
	if err := s.wait(); err != nil {
		return 0, err
	}
	return uint64(len(s.data)), nil
}

func (s *Stream) Tell() (uint64, error) {
	return uint64(s.cursor), nil
}

func (s *Stream) Seek(offset int64, whence ioutilpkg.SeekWhence) error {
	if err := s.wait(); err != nil {
		return err
	}
	var base int
	switch whence {
	case ioutilpkg.SeekBeg:
		base = 0
	case ioutilpkg.SeekCur:
		base = s.cursor
	case ioutilpkg.SeekEnd:
		base = len(s.data)
	}
	pos := base + int(offset)
	if pos < 0 || pos > len(s.data) {
		return errs.Newf(errs.SeekError, "httpstream: seek %d out of range [0,%d]", pos, len(s.data))
	}
	s.cursor = pos
	s.eof = false
	return nil
}

func (s *Stream) Read(buf []byte) error {
	if err := s.wait(); err != nil {
		return err
	}
	if s.cursor+len(buf) > len(s.data) {
		s.eof = true
		return errs.New(errs.EndOfFile, "httpstream: short read")
	}
	copy(buf, s.data[s.cursor:s.cursor+len(buf)])
	s.cursor += len(buf)
	return nil
}

func (s *Stream) TryRead(buf []byte) (int, error) {
	if err := s.wait(); err != nil {
		return 0, err
	}
	n := copy(buf, s.data[s.cursor:])
	s.cursor += n
	if n < len(buf) {
		s.eof = true
	}
	return n, nil
}

func (s *Stream) Write(buf []byte) error {
	return errs.New(errs.NotImplemented, "httpstream: write not supported")
}

func (s *Stream) Truncate(n uint64) error {
	return errs.New(errs.NotImplemented, "httpstream: truncate not supported")
}

func (s *Stream) Close() error { return nil }
