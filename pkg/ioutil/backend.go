package ioutil

import (
	"strings"
	"sync"

	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/pkg/uri"
)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Backend{}
)

// RegisterBackend associates a URI scheme with the Backend that opens
// it, mirroring the same static-registration idiom used by
// internal/registry for container/decoder factories. Called from
// backend packages' init() (pkg/ioutil/filestream, pkg/ioutil/httpstream).
func RegisterBackend(scheme string, b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[strings.ToLower(scheme)] = b
}

// Open resolves u's scheme to a registered Backend and opens it.
func Open(u uri.URI, mode Mode) (Stream, error) {
	backendsMu.RLock()
	b, ok := backends[strings.ToLower(u.Scheme())]
	backendsMu.RUnlock()
	if !ok {
		return nil, errs.Newf(errs.ProtocolNotSupported, "ioutil: no stream backend registered for scheme %q", u.Scheme())
	}
	return b.Open(u, mode)
}
