// Package containers holds small helpers shared by the per-container
// demuxer packages (internal/containers/{aiff,au,flac,mac,mp3,tta,
// wavpack,mpc,ofr,vorbis,opus,hls}), following the convention of a thin
// internal/util package backing several sibling internal packages.
package containers

import (
	"github.com/jmylchreest/ampgo/internal/errs"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"
)

// ReadAll rewinds stream to offset 0 and drains all of it into memory,
// sized by Stream.Size. Every current container format's metadata/seek-table
// construction operates over the whole file at once (none of the
// supported containers exceed a size where this is impractical), so
// demuxers read once at Open rather than re-issuing bounded reads during
// playback.
func ReadAll(stream ioutil.Stream) ([]byte, error) {
	size, err := stream.Size()
	if err != nil {
		return nil, errs.Wrap(errs.ReadFault, err, "containers: stat stream")
	}
	if err := stream.Seek(0, ioutil.SeekBeg); err != nil {
		return nil, errs.Wrap(errs.SeekError, err, "containers: rewind stream")
	}
	buf := make([]byte, size)
	if err := stream.Read(buf); err != nil {
		return nil, errs.Wrap(errs.ReadFault, err, "containers: read stream")
	}
	return buf, nil
}

// OpenInput opens u through the registered stream backend for its
// scheme, then resolves and opens a container demuxer for its
// extension. Used by containers that nest other inputs (HLS media
// segments), dispatching on extension after opening the underlying
// stream.
func OpenInput(u uri.URI, mode registry.OpenMode) (registry.Demuxer, error) {
	stream, err := ioutil.Open(u, ioutil.ModeIn|ioutil.ModeBinary)
	if err != nil {
		return nil, err
	}
	factory, err := registry.ResolveInput(u.Extension())
	if err != nil {
		stream.Close()
		return nil, err
	}
	demuxer, err := factory(stream, mode)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return demuxer, nil
}
